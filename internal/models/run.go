package models

import "time"

// Run statuses.
const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// Run is the persisted report of one censoring run.
type Run struct {
	ID          string    `json:"id"`
	InputPath   string    `json:"input_path"`
	OutputPath  string    `json:"output_path"`
	Status      string    `json:"status"`
	FramesTotal int       `json:"frames_total"`
	FramesDone  int       `json:"frames_done"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
