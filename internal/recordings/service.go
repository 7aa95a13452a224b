package recordings

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidnote/backend/internal/models"
)

// BlobStore persists recording artifacts by identity under a date partition.
// Implemented by pkg/storage.Disk.
type BlobStore interface {
	Save(r io.Reader, id, originalFilename string) (string, error)
	Open(relPath string) (*os.File, int64, error)
	Size(relPath string) (int64, error)
	AbsolutePath(relPath string) string
}

// Scheduler dispatches the normalization of a recording to an independent
// background task. The orchestrator never invokes the processing entry point
// directly.
type Scheduler interface {
	Schedule(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates the recording lifecycle: ingest bytes, register the
// record as PROCESSING, and hand the identity to the scheduler.
type Service struct {
	registry  Registry
	store     BlobStore
	scheduler Scheduler
	logger    *zap.Logger
}

// NewService creates the lifecycle orchestrator.
func NewService(registry Registry, store BlobStore, scheduler Scheduler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, store: store, scheduler: scheduler, logger: logger}
}

// Submit durably receives an uploaded clip and returns the PROCESSING record.
// The caller gets the record immediately; re-encoding happens in the
// background. A storage failure surfaces as ErrIngestion and leaves no record.
func (s *Service) Submit(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*models.Recording, error) {
	id := uuid.New()

	relPath, err := s.store.Save(r, id.String(), filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIngestion, err)
	}

	rec := &models.Recording{
		ID:          id,
		Filename:    filename,
		StoragePath: relPath,
		FileSize:    size,
		ContentType: contentType,
	}
	if err := s.registry.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("register recording: %w", err)
	}

	if err := s.scheduler.Schedule(ctx, id); err != nil {
		// The record stays PROCESSING; better to surface the dispatch failure
		// than to return a record that will never conclude.
		return nil, fmt.Errorf("schedule processing: %w", err)
	}

	s.logger.Info("recording submitted",
		zap.String("id", id.String()),
		zap.String("path", relPath),
		zap.Int64("size", size))
	return rec, nil
}

// Get returns the recording metadata for the identity.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	return s.registry.GetByID(ctx, id)
}

// OpenArtifact looks up the recording and opens its backing artifact for
// streaming. A missing or unreadable file maps to ErrNotFound; retrieval is
// purely byte-serving and does not special-case status.
func (s *Service) OpenArtifact(ctx context.Context, id uuid.UUID) (*models.Recording, *os.File, int64, error) {
	rec, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return nil, nil, 0, err
	}
	f, size, err := s.store.Open(rec.StoragePath)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: artifact for %s", ErrNotFound, id)
	}
	return rec, f, size, nil
}
