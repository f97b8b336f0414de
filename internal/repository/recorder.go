// Package repository defines the persistence interfaces for run
// reports and the recorder that feeds them from a censoring run.
package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"platecensor/internal/models"
	"platecensor/internal/track"
)

// RunRecorder persists the redaction report of a single censoring run:
// one runs row plus one track_events row per redacted box per frame.
// It implements censor.Recorder. Not safe for concurrent use; each run
// owns its own recorder, matching the one-pipeline-per-video model.
type RunRecorder struct {
	runs   RunRepository
	events TrackEventRepository
	run    models.Run
}

// NewRunRecorder registers a new run and returns its recorder.
func NewRunRecorder(runs RunRepository, events TrackEventRepository, inputPath, outputPath string) (*RunRecorder, error) {
	run := models.Run{
		ID:         uuid.NewString(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		Status:     models.RunStatusProcessing,
		StartedAt:  time.Now().UTC(),
	}
	if err := runs.Insert(&run); err != nil {
		return nil, fmt.Errorf("registering run: %w", err)
	}
	return &RunRecorder{runs: runs, events: events, run: run}, nil
}

// RunID returns the identifier of the run being recorded.
func (r *RunRecorder) RunID() string {
	return r.run.ID
}

// SetTotal records the frame count reported by the source.
func (r *RunRecorder) SetTotal(total int) {
	r.run.FramesTotal = total
}

// RecordFrame persists the tracks redacted on one frame, keyed by
// their stable track identities.
func (r *RunRecorder) RecordFrame(frameIndex int, tracks []track.Track) error {
	r.run.FramesDone = frameIndex

	if len(tracks) == 0 {
		return nil
	}
	events := make([]models.TrackEvent, len(tracks))
	for i, tr := range tracks {
		events[i] = models.TrackEvent{
			RunID:      r.run.ID,
			FrameIndex: frameIndex,
			TrackID:    tr.ID,
			X1:         tr.Box.X1,
			Y1:         tr.Box.Y1,
			X2:         tr.Box.X2,
			Y2:         tr.Box.Y2,
		}
	}
	return r.events.InsertBatch(events)
}

// Finish marks the run completed or failed and stamps the finish time.
func (r *RunRecorder) Finish(runErr error) error {
	if runErr != nil {
		r.run.Status = models.RunStatusFailed
	} else {
		r.run.Status = models.RunStatusCompleted
	}
	r.run.FinishedAt = time.Now().UTC()
	return r.runs.Finish(&r.run)
}
