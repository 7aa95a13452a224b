package recordings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidnote/backend/internal/models"
)

// MemoryRegistry is an in-process Registry used when no database is
// configured. It applies the same monotonic state-machine guard as the
// Postgres repository.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.Recording
	now     func() time.Time
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		records: make(map[uuid.UUID]models.Recording),
		now:     time.Now,
	}
}

// Insert stores a new recording with status PROCESSING.
func (m *MemoryRegistry) Insert(_ context.Context, rec *models.Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	now := m.now()
	rec.Status = models.RecordingStatusProcessing
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.ID] = *rec
	return nil
}

// GetByID returns a copy of the recording, or ErrNotFound.
func (m *MemoryRegistry) GetByID(_ context.Context, id uuid.UUID) (*models.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &rec, nil
}

// UpdateOnSuccess marks the recording READY and clears any processing error.
func (m *MemoryRegistry) UpdateOnSuccess(_ context.Context, id uuid.UUID, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.Status = models.RecordingStatusReady
	rec.FileSize = size
	rec.ContentType = contentType
	rec.ProcessingError = nil
	rec.UpdatedAt = m.now()
	m.records[id] = rec
	return nil
}

// UpdateOnFailure marks the recording FAILED unless it already reached READY.
func (m *MemoryRegistry) UpdateOnFailure(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.Status == models.RecordingStatusReady {
		return nil
	}
	msg := truncateError(message)
	rec.Status = models.RecordingStatusFailed
	rec.ProcessingError = &msg
	rec.UpdatedAt = m.now()
	m.records[id] = rec
	return nil
}
