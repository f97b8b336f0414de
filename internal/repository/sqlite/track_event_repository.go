package sqlite

import (
	"fmt"

	"platecensor/internal/models"
)

// TrackEventRepository implements repository.TrackEventRepository for SQLite.
type TrackEventRepository struct {
	db *DB
}

// NewTrackEventRepository creates a new SQLite track event repository.
func NewTrackEventRepository(db *DB) *TrackEventRepository {
	return &TrackEventRepository{db: db}
}

// InsertBatch adds multiple track events in a single transaction.
func (r *TrackEventRepository) InsertBatch(events []models.TrackEvent) error {
	if len(events) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO track_events (run_id, frame_index, track_id, x1, y1, x2, y2)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.RunID, ev.FrameIndex, ev.TrackID, ev.X1, ev.Y1, ev.X2, ev.Y2); err != nil {
			return fmt.Errorf("failed to insert track event: %w", err)
		}
	}

	return tx.Commit()
}

// GetByRunID retrieves all track events for a run in frame order.
func (r *TrackEventRepository) GetByRunID(runID string) ([]models.TrackEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, run_id, frame_index, track_id, x1, y1, x2, y2
		FROM track_events WHERE run_id = ? ORDER BY frame_index, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track events: %w", err)
	}
	defer rows.Close()

	var events []models.TrackEvent
	for rows.Next() {
		var ev models.TrackEvent
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.FrameIndex, &ev.TrackID, &ev.X1, &ev.Y1, &ev.X2, &ev.Y2); err != nil {
			return nil, fmt.Errorf("failed to scan track event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// CountByRunID returns the number of track events recorded for a run.
func (r *TrackEventRepository) CountByRunID(runID string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*) FROM track_events WHERE run_id = ?
	`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count track events: %w", err)
	}

	return count, nil
}

// DeleteByRunID removes all track events for a run.
func (r *TrackEventRepository) DeleteByRunID(runID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM track_events WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete track events: %w", err)
	}

	return nil
}
