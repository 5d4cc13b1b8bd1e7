package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

func newTestQueue(t *testing.T) *RedisJobQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisJobQueue(client, "publish_jobs")
}

func TestDequeueReturnsNilWhenEmpty(t *testing.T) {
	q := newTestQueue(t)
	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	in := &model.PublishJob{
		PostID:       "post-1",
		Platform:     model.PlatformFacebook,
		ScheduledFor: time.Now().UTC().Truncate(time.Second),
		RetryCount:   2,
	}
	require.NoError(t, q.Enqueue(ctx, in, time.Now().Add(-time.Second)))

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	out, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "post-1", out.PostID)
	assert.Equal(t, model.PlatformFacebook, out.Platform)
	assert.Equal(t, 2, out.RetryCount)
	assert.False(t, out.EnqueuedAt.IsZero())

	size, err = q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestFutureJobsAreInvisibleUntilDue(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := &model.PublishJob{PostID: "later", Platform: model.PlatformTwitter}
	require.NoError(t, q.Enqueue(ctx, job, time.Now().Add(time.Hour)))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "job due in the future must not be claimable")

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestDueOrderFollowsRunAt(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &model.PublishJob{PostID: "second", Platform: model.PlatformTwitter}, time.Now().Add(-time.Minute)))
	require.NoError(t, q.Enqueue(ctx, &model.PublishJob{PostID: "first", Platform: model.PlatformTwitter}, time.Now().Add(-time.Hour)))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.PostID)
}
