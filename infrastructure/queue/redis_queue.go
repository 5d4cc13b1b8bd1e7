package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"social-publisher/domain/model"
)

// RedisJobQueue is a durable delayed queue on a Redis sorted set. The score
// is the unix time the job becomes due, so delayed retries are plain
// re-enqueues with a future score and Dequeue only ever sees due work.
type RedisJobQueue struct {
	client *redis.Client
	key    string
}

func NewRedisJobQueue(client *redis.Client, key string) *RedisJobQueue {
	return &RedisJobQueue{client: client, key: key}
}

// NewRedisClient builds the worker's Redis connection.
func NewRedisClient(host, port, username, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Username: username,
		Password: password,
	})
}

// claimDue pops the first member with a score at or below now. Running as
// a script keeps claim-and-remove atomic across worker goroutines.
var claimDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #due == 0 then
	return false
end
redis.call('ZREM', KEYS[1], due[1])
return due[1]
`)

func (q *RedisJobQueue) Enqueue(ctx context.Context, job *model.PublishJob, runAt time.Time) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(runAt.Unix()),
		Member: string(payload),
	}).Err()
}

func (q *RedisJobQueue) Dequeue(ctx context.Context) (*model.PublishJob, error) {
	now := time.Now().UTC().Unix()
	raw, err := claimDue.Run(ctx, q.client, []string{q.key}, now).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	payload, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected queue payload type %T", raw)
	}
	job := &model.PublishJob{}
	if err := json.Unmarshal([]byte(payload), job); err != nil {
		return nil, fmt.Errorf("corrupt job payload: %w", err)
	}
	return job, nil
}

func (q *RedisJobQueue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key).Result()
}
