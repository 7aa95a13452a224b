// Package queue provides the Redis-backed dispatch channel between the
// ingestion path and the transcode worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueTranscode is the Redis list key for transcode jobs.
	QueueTranscode = "worker:transcode"
	// QueueDead holds jobs that could not be decoded. Failed transcodes do
	// not land here; they conclude as FAILED records and are never retried.
	QueueDead = "worker:transcode:dead"
)

// JobType identifies the job kind.
type JobType string

// JobTypeTranscode normalizes one stored recording.
const JobTypeTranscode JobType = "transcode"

// TranscodePayload is the payload for transcode jobs.
type TranscodePayload struct {
	RecordingID uuid.UUID `json:"recording_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueTranscode enqueues a transcode job for the recording.
func (q *Queue) EnqueueTranscode(ctx context.Context, payload TranscodePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeTranscode,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueTranscode, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued transcode job", zap.String("job_id", job.ID), zap.String("recording_id", payload.RecordingID.String()))
	return nil
}

// Dequeue blocks until a job is available or ctx is done. Undecodable
// entries are moved to the dead-letter list and reported as a nil job.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueTranscode).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload moved to dead letter", zap.String("raw", result[1]), zap.Error(err))
		if dlErr := q.client.RPush(ctx, QueueDead, result[1]).Err(); dlErr != nil {
			q.logger.Error("dead letter push failed", zap.Error(dlErr))
		}
		return nil, nil
	}
	return &job, nil
}
