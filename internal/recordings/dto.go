package recordings

import (
	"time"

	"github.com/vidnote/backend/internal/models"
)

// UploadResponse is the payload returned right after a successful submission.
type UploadResponse struct {
	UUID             string    `json:"uuid"`
	Filename         string    `json:"filename"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"contentType"`
	ProcessingStatus string    `json:"processingStatus"`
	CreatedAt        time.Time `json:"createdAt"`
}

// DetailResponse is the payload for polling a recording's state.
type DetailResponse struct {
	UUID             string    `json:"uuid"`
	Filename         string    `json:"filename"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"contentType"`
	DurationMs       *int64    `json:"duration"`
	ProcessingStatus string    `json:"processingStatus"`
	ProcessingError  *string   `json:"processingError"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toUploadResponse(rec *models.Recording) UploadResponse {
	return UploadResponse{
		UUID:             rec.ID.String(),
		Filename:         rec.Filename,
		FileSize:         rec.FileSize,
		ContentType:      rec.ContentType,
		ProcessingStatus: rec.Status,
		CreatedAt:        rec.CreatedAt,
	}
}

func toDetailResponse(rec *models.Recording) DetailResponse {
	return DetailResponse{
		UUID:             rec.ID.String(),
		Filename:         rec.Filename,
		FileSize:         rec.FileSize,
		ContentType:      rec.ContentType,
		DurationMs:       rec.DurationMs,
		ProcessingStatus: rec.Status,
		ProcessingError:  rec.ProcessingError,
		CreatedAt:        rec.CreatedAt,
	}
}
