package worker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidnote/backend/pkg/queue"
)

// LocalScheduler runs each normalization on its own goroutine in the server
// process. Tasks are detached from the submitting request: they run on the
// scheduler's base context so an in-flight encode survives the request and is
// interrupted only by process shutdown.
type LocalScheduler struct {
	base      context.Context
	processor *Processor
	logger    *zap.Logger
}

// NewLocalScheduler creates an in-process scheduler. base should be the
// application lifetime context; cancelling it interrupts running encodes.
func NewLocalScheduler(base context.Context, processor *Processor, logger *zap.Logger) *LocalScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalScheduler{base: base, processor: processor, logger: logger}
}

// Schedule dispatches exactly one background task for the recording.
func (s *LocalScheduler) Schedule(_ context.Context, id uuid.UUID) error {
	go s.processor.ProcessRecording(s.base, id)
	return nil
}

// QueueScheduler dispatches normalization work through the Redis queue for a
// separate worker process to pick up.
type QueueScheduler struct {
	queue *queue.Queue
}

// NewQueueScheduler creates a queue-backed scheduler.
func NewQueueScheduler(q *queue.Queue) *QueueScheduler {
	return &QueueScheduler{queue: q}
}

// Schedule enqueues one transcode job for the recording.
func (s *QueueScheduler) Schedule(ctx context.Context, id uuid.UUID) error {
	return s.queue.EnqueueTranscode(ctx, queue.TranscodePayload{RecordingID: id})
}
