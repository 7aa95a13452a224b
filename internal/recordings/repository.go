package recordings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidnote/backend/internal/models"
)

// Registry is the authoritative store for recording lifecycle state. Only the
// processing pipeline transitions status away from PROCESSING, and a record
// that reached READY is never downgraded.
type Registry interface {
	Insert(ctx context.Context, rec *models.Recording) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	UpdateOnSuccess(ctx context.Context, id uuid.UUID, size int64, contentType string) error
	UpdateOnFailure(ctx context.Context, id uuid.UUID, message string) error
}

// uniqueViolation is the Postgres error code for duplicate key inserts.
const uniqueViolation = "23505"

// Repository is the Postgres-backed Registry.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new recording with status PROCESSING and fills in the
// generated timestamps. Returns ErrDuplicateID when the identity exists.
func (r *Repository) Insert(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (id, filename, storage_path, file_size, content_type, duration_ms, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`
	rec.Status = models.RecordingStatusProcessing
	err := r.pool.QueryRow(ctx, q, rec.ID, rec.Filename, rec.StoragePath, rec.FileSize, rec.ContentType, rec.DurationMs, rec.Status).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		return err
	}
	return nil
}

// GetByID returns a recording by identity, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	const q = `SELECT id, filename, storage_path, file_size, content_type, duration_ms, status, processing_error, created_at, updated_at
		FROM recordings WHERE id = $1`
	var rec models.Recording
	err := r.pool.QueryRow(ctx, q, id).Scan(&rec.ID, &rec.Filename, &rec.StoragePath, &rec.FileSize, &rec.ContentType,
		&rec.DurationMs, &rec.Status, &rec.ProcessingError, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

// UpdateOnSuccess marks the recording READY with its post-encode size and
// content type, and clears any processing error.
func (r *Repository) UpdateOnSuccess(ctx context.Context, id uuid.UUID, size int64, contentType string) error {
	const q = `UPDATE recordings
		SET status = $1, file_size = $2, content_type = $3, processing_error = NULL, updated_at = NOW()
		WHERE id = $4`
	tag, err := r.pool.Exec(ctx, q, models.RecordingStatusReady, size, contentType, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// UpdateOnFailure marks the recording FAILED with a short diagnostic. The
// status predicate keeps the state machine monotonic: a record that already
// reached READY is left untouched.
func (r *Repository) UpdateOnFailure(ctx context.Context, id uuid.UUID, message string) error {
	const q = `UPDATE recordings
		SET status = $1, processing_error = $2, updated_at = NOW()
		WHERE id = $3 AND status <> $4`
	_, err := r.pool.Exec(ctx, q, models.RecordingStatusFailed, truncateError(message), id, models.RecordingStatusReady)
	return err
}

// truncateError keeps diagnostics inside the processing_error column width.
func truncateError(message string) string {
	const maxLen = 500
	if len(message) > maxLen {
		return message[:maxLen]
	}
	return message
}
