// Package events publishes scrape progress so callers can expose search
// completion status. Publishing is fire-and-forget: a lost update never
// slows down or fails a run.
package events

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the Redis API used here (narrowed for
// testing).
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// ProgressUpdate is one progress tick of a running scrape job.
type ProgressUpdate struct {
	JobID        string
	GroupID      int64
	PagesFetched int
	PagesTotal   int
}

type ProgressPublisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewProgressPublisher(client RedisClient, stream string, logger *slog.Logger) *ProgressPublisher {
	return &ProgressPublisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "progress_publisher"),
	}
}

// Publish appends one update to the progress stream. Errors are logged and
// swallowed.
func (p *ProgressPublisher) Publish(ctx context.Context, update ProgressUpdate) {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"job_id":        update.JobID,
			"group_id":      strconv.FormatInt(update.GroupID, 10),
			"pages_fetched": strconv.Itoa(update.PagesFetched),
			"pages_total":   strconv.Itoa(update.PagesTotal),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		p.logger.Warn("failed to publish progress", "job_id", update.JobID, "error", err)
	}
}
