package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"
)

// fakeQueue hands out a fixed list of jobs then reports empty.
type fakeQueue struct {
	mu   sync.Mutex
	jobs []*model.PublishJob
}

func (q *fakeQueue) Enqueue(ctx context.Context, job *model.PublishJob, runAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*model.PublishJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *fakeQueue) Size(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

type countingProcessor struct {
	mu        sync.Mutex
	processed []*model.PublishJob
}

func (p *countingProcessor) Process(ctx context.Context, job *model.PublishJob) *dto.JobResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, job)
	return &dto.JobResult{Outcome: dto.JobOutcomePublished}
}

func (p *countingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

func TestWorkerDrainsQueueAndStopsOnCancel(t *testing.T) {
	queue := &fakeQueue{}
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Enqueue(context.Background(), &model.PublishJob{PostID: "p", Platform: model.PlatformTwitter}, time.Now()))
	}
	processor := &countingProcessor{}
	worker := usecase.NewWorker(queue, processor, 3, 100, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool { return processor.count() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorkerIdlesOnEmptyQueue(t *testing.T) {
	queue := &fakeQueue{}
	processor := &countingProcessor{}
	worker := usecase.NewWorker(queue, processor, 1, 100, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, worker.Run(ctx))
	assert.Zero(t, processor.count())
}
