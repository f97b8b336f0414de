package sqlite

import (
	"database/sql"
	"fmt"

	"platecensor/internal/models"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a new run record to the database.
func (r *RunRepository) Insert(run *models.Run) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO runs (id, input_path, output_path, status, frames_total, frames_done, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.InputPath, run.OutputPath, run.Status, run.FramesTotal, run.FramesDone, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Finish updates the terminal state of a run.
func (r *RunRepository) Finish(run *models.Run) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE runs SET status = ?, frames_total = ?, frames_done = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, run.FramesTotal, run.FramesDone, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	return nil
}

// GetByID retrieves a single run by its ID.
func (r *RunRepository) GetByID(id string) (*models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var run models.Run
	var finished sql.NullTime
	err := r.db.Conn().QueryRow(`
		SELECT id, input_path, output_path, status, frames_total, frames_done, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.InputPath, &run.OutputPath, &run.Status,
		&run.FramesTotal, &run.FramesDone, &run.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}

	return &run, nil
}

// GetAll retrieves all runs, most recent first.
func (r *RunRepository) GetAll() ([]models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, input_path, output_path, status, frames_total, frames_done, started_at, finished_at
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.InputPath, &run.OutputPath, &run.Status,
			&run.FramesTotal, &run.FramesDone, &run.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
