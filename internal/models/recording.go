package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordingStatus represents the recording normalization lifecycle.
const (
	RecordingStatusProcessing = "PROCESSING"
	RecordingStatusReady      = "READY"
	RecordingStatusFailed     = "FAILED"
)

// Recording is a user-recorded video clip tracked through re-encoding.
type Recording struct {
	ID              uuid.UUID `json:"id"`
	Filename        string    `json:"filename"`
	StoragePath     string    `json:"storage_path"`
	FileSize        int64     `json:"file_size"`
	ContentType     string    `json:"content_type"`
	DurationMs      *int64    `json:"duration_ms,omitempty"`
	Status          string    `json:"status"`
	ProcessingError *string   `json:"processing_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
