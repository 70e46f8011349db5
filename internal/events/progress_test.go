package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, args *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, args)
	return redis.NewStringResult("1-0", f.err)
}

func TestPublishWritesToStream(t *testing.T) {
	stream := &fakeStream{}
	p := NewProgressPublisher(stream, "test:progress", slog.Default())

	p.Publish(context.Background(), ProgressUpdate{
		JobID:        "job-1",
		GroupID:      7,
		PagesFetched: 2,
		PagesTotal:   5,
	})

	require.Len(t, stream.args, 1)
	args := stream.args[0]
	assert.Equal(t, "test:progress", args.Stream)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, "job-1", values["job_id"])
	assert.Equal(t, "7", values["group_id"])
	assert.Equal(t, "2", values["pages_fetched"])
	assert.Equal(t, "5", values["pages_total"])
}

func TestPublishSwallowsErrors(t *testing.T) {
	p := NewProgressPublisher(&fakeStream{err: errors.New("redis down")}, "test:progress", slog.Default())

	// Must not panic or propagate; progress is fire-and-forget.
	p.Publish(context.Background(), ProgressUpdate{JobID: "job-1"})
}
