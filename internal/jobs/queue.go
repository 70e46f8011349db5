// Package jobs is the intake side of the pipeline: scrape jobs are queued
// by the API (or an external scheduler) and consumed by the worker, one
// paginated run per job.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stayradar/stayradar/internal/models"
)

// ErrNoJob is returned by Dequeue when no job arrived within the blocking
// window.
var ErrNoJob = errors.New("no job available")

// RedisClient is the subset of the Redis API the queue needs.
type RedisClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Queue is a Redis-backed scrape job queue.
type Queue struct {
	client  RedisClient
	key     string
	logger  *slog.Logger
	popWait time.Duration
}

func NewQueue(client RedisClient, key string, logger *slog.Logger) *Queue {
	return &Queue{
		client:  client,
		key:     key,
		logger:  logger.With("component", "job_queue"),
		popWait: 5 * time.Second,
	}
}

// Enqueue validates and queues a job, assigning an ID when absent.
func (q *Queue) Enqueue(ctx context.Context, job models.ScrapeJob) (string, error) {
	if job.Criteria.Location == "" || job.Criteria.Checkin == "" || job.Criteria.Checkout == "" {
		return "", fmt.Errorf("job is missing required criteria (location, checkin, checkout)")
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.PageStart < 1 {
		job.PageStart = 1
	}
	if job.PageEnd < job.PageStart {
		job.PageEnd = job.PageStart
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Info("job enqueued", "job_id", job.ID, "location", job.Criteria.Location)
	return job.ID, nil
}

// Dequeue blocks for a short window and returns the next job, or ErrNoJob
// when the window elapses empty.
func (q *Queue) Dequeue(ctx context.Context) (*models.ScrapeJob, error) {
	res, err := q.client.BRPop(ctx, q.popWait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) < 2 {
		return nil, ErrNoJob
	}

	var job models.ScrapeJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	return &job, nil
}

// Size returns the number of queued jobs.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
