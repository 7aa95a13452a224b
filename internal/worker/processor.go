// Package worker runs the background normalization of uploaded recordings:
// it drives a stored clip through the external encoder and records the
// READY/FAILED outcome in the registry.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidnote/backend/internal/recordings"
	"github.com/vidnote/backend/internal/transcode"
	"github.com/vidnote/backend/pkg/queue"
	"github.com/vidnote/backend/pkg/storage"
)

// Transcoder re-encodes the file at the given absolute path in place.
type Transcoder interface {
	Reencode(ctx context.Context, absPath string) error
}

// Processor executes the normalization of one recording at a time.
type Processor struct {
	registry   recordings.Registry
	store      recordings.BlobStore
	transcoder Transcoder
	archiver   *storage.S3 // optional; nil disables archiving
	logger     *zap.Logger
}

// NewProcessor creates a recording processor. archiver may be nil.
func NewProcessor(registry recordings.Registry, store recordings.BlobStore, transcoder Transcoder, archiver *storage.S3, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{registry: registry, store: store, transcoder: transcoder, archiver: archiver, logger: logger}
}

// ProcessRecording normalizes one recording and records the terminal outcome.
// Every failure, expected or not, concludes as a best-effort FAILED update;
// nothing propagates to the submitter and no retry is attempted.
func (p *Processor) ProcessRecording(ctx context.Context, id uuid.UUID) {
	log := p.logger.With(zap.String("recording_id", id.String()))

	rec, err := p.registry.GetByID(ctx, id)
	if err != nil {
		// A scheduled identity should always resolve; this is a programming
		// error, not a user-facing condition.
		log.Error("scheduled recording not found, aborting", zap.Error(err))
		return
	}

	log.Info("processing recording", zap.String("path", rec.StoragePath))

	// Shutdown cancels the task context mid-encode, and the interruption is
	// exactly what the terminal status write must record; those writes run
	// detached from the cancellation so the record cannot stay PROCESSING.
	statusCtx := context.WithoutCancel(ctx)

	if err := p.normalize(ctx, rec.StoragePath); err != nil {
		log.Error("recording processing failed", zap.Error(err))
		if updErr := p.registry.UpdateOnFailure(statusCtx, id, failureMessage(err)); updErr != nil {
			log.Error("failed to record failure status, giving up", zap.Error(updErr))
		}
		return
	}

	size, err := p.store.Size(rec.StoragePath)
	if err != nil {
		log.Error("post-encode size probe failed", zap.Error(err))
		if updErr := p.registry.UpdateOnFailure(statusCtx, id, failureMessage(err)); updErr != nil {
			log.Error("failed to record failure status, giving up", zap.Error(updErr))
		}
		return
	}
	if err := p.registry.UpdateOnSuccess(statusCtx, id, size, transcode.CanonicalContentType); err != nil {
		log.Error("failed to record success status", zap.Error(err))
		return
	}
	log.Info("recording ready", zap.Int64("size", size))

	p.archive(ctx, rec.StoragePath, log)
}

// normalize shields the caller from panics in the encoder path so one bad
// recording cannot take down the task runner.
func (p *Processor) normalize(ctx context.Context, relPath string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("unexpected processing panic")
			p.logger.Error("panic during normalization", zap.Any("panic", r), zap.String("path", relPath))
		}
	}()
	return p.transcoder.Reencode(ctx, p.store.AbsolutePath(relPath))
}

// archive uploads the normalized artifact to S3 when configured. Archiving is
// best effort and never affects the recording status.
func (p *Processor) archive(ctx context.Context, relPath string, log *zap.Logger) {
	if p.archiver == nil {
		return
	}
	f, size, err := p.store.Open(relPath)
	if err != nil {
		log.Warn("archive skipped, artifact unreadable", zap.Error(err))
		return
	}
	defer f.Close()
	key := storage.ArchiveKey(relPath)
	if _, err := p.archiver.Upload(ctx, key, transcode.CanonicalContentType, f, size); err != nil {
		log.Warn("archive upload failed", zap.Error(err), zap.String("key", key))
	}
}

// Run consumes transcode jobs from the queue until ctx is done.
func (p *Processor) Run(ctx context.Context, q *queue.Queue) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("transcode worker stopping")
			return
		default:
		}

		job, err := q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("transcode worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}
		if job.Type != queue.JobTypeTranscode {
			p.logger.Warn("unknown job type skipped", zap.String("type", string(job.Type)), zap.String("job_id", job.ID))
			continue
		}
		var payload queue.TranscodePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			p.logger.Warn("invalid transcode payload skipped", zap.Error(err), zap.String("job_id", job.ID))
			continue
		}
		p.ProcessRecording(ctx, payload.RecordingID)
	}
}

// failureMessage produces the short diagnostic stored on the record. For
// encoder failures the exit code plus the last lines of output carry the
// useful signal.
func failureMessage(err error) string {
	var exitErr *transcode.ExitError
	if errors.As(err, &exitErr) {
		msg := exitErr.Error()
		if out := lastLine(exitErr.Output); out != "" {
			msg += ": " + out
		}
		return msg
	}
	return err.Error()
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
