package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// JobType identifies which handler processes a job
type JobType string

// Job represents a background job
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
}

// JobHandler processes a single job
type JobHandler func(ctx context.Context, job Job) error

// Redis keys
const (
	readyKey   = "queue:jobs"
	delayedKey = "queue:jobs:delayed"
	failedKey  = "queue:jobs:failed"
)

// Queue is a Redis-backed job queue. Ready jobs live in a list, delayed and
// retrying jobs in a sorted set scored by their run-at time.
type Queue struct {
	client *redis.Client
	ctx    context.Context
}

// NewQueue creates a new queue
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client, ctx: context.Background()}
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(jobType JobType, payload interface{}, opts ...EnqueueOption) (string, error) {
	options := &EnqueueOptions{maxRetry: DefaultMaxRetries}
	for _, opt := range opts {
		opt(options)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		MaxRetries: options.maxRetry,
		CreatedAt:  time.Now(),
	}

	if options.delay > 0 {
		if err := q.pushDelayed(job, time.Now().Add(options.delay)); err != nil {
			return "", err
		}
		return job.ID.String(), nil
	}

	if err := q.pushReady(job); err != nil {
		return "", err
	}
	return job.ID.String(), nil
}

// Dequeue blocks up to timeout waiting for a ready job. A nil job with a nil
// error means the timeout elapsed.
func (q *Queue) Dequeue(timeout time.Duration) (*Job, error) {
	result, err := q.client.BRPop(q.ctx, timeout, readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Retry re-schedules a failed job with exponential backoff, parking it in
// the failed set once its retries are exhausted
func (q *Queue) Retry(job Job, cause error) error {
	job.RetryCount++
	if job.RetryCount > job.MaxRetries {
		log.Printf("job %s (%s) exhausted retries: %v", job.ID, job.Type, cause)
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return q.client.LPush(q.ctx, failedKey, data).Err()
	}

	backoff := calculateBackoff(job.RetryCount)
	log.Printf("job %s (%s) failed, retry %d/%d in %s: %v", job.ID, job.Type, job.RetryCount, job.MaxRetries, backoff, cause)
	return q.pushDelayed(job, time.Now().Add(backoff))
}

// PromoteDelayed moves due jobs from the delayed set to the ready list.
// Called periodically by the worker's scheduler.
func (q *Queue) PromoteDelayed() error {
	now := fmt.Sprintf("%d", time.Now().Unix())
	entries, err := q.client.ZRangeByScore(q.ctx, delayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	for _, entry := range entries {
		if removed, err := q.client.ZRem(q.ctx, delayedKey, entry).Result(); err != nil || removed == 0 {
			continue // another worker promoted it first
		}
		if err := q.client.LPush(q.ctx, readyKey, entry).Err(); err != nil {
			return fmt.Errorf("failed to promote delayed job: %w", err)
		}
	}
	return nil
}

func (q *Queue) pushReady(job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(q.ctx, readyKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *Queue) pushDelayed(job Job, runAt time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	err = q.client.ZAdd(q.ctx, delayedKey, &redis.Z{
		Score:  float64(runAt.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule delayed job: %w", err)
	}
	return nil
}
