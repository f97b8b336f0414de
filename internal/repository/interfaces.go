package repository

import "platecensor/internal/models"

// RunRepository defines the interface for run report operations.
type RunRepository interface {
	// Create operations
	Insert(run *models.Run) error

	// Read operations
	GetByID(id string) (*models.Run, error)
	GetAll() ([]models.Run, error)

	// Update operations
	Finish(run *models.Run) error
}

// TrackEventRepository defines the interface for per-frame redaction records.
type TrackEventRepository interface {
	// Create operations
	InsertBatch(events []models.TrackEvent) error

	// Read operations
	GetByRunID(runID string) ([]models.TrackEvent, error)
	CountByRunID(runID string) (int, error)

	// Delete operations
	DeleteByRunID(runID string) error
}
