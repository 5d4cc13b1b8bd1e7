package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// Worker runs a fixed pool of goroutines draining the job queue. A shared
// rate limiter caps aggregate dispatch across the pool; an empty queue
// backs the loop off by the poll interval.
type Worker struct {
	queue        repository.IJobQueue
	processor    IPublishUsecase
	concurrency  int
	limiter      *rate.Limiter
	pollInterval time.Duration
}

func NewWorker(queue repository.IJobQueue, processor IPublishUsecase, concurrency int, jobsPerSecond float64, pollInterval time.Duration) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if jobsPerSecond <= 0 {
		jobsPerSecond = 1
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		queue:        queue,
		processor:    processor,
		concurrency:  concurrency,
		limiter:      rate.NewLimiter(rate.Limit(jobsPerSecond), concurrency),
		pollInterval: pollInterval,
	}
}

// Run blocks until ctx is cancelled. Jobs in flight finish before return.
func (w *Worker) Run(ctx context.Context) error {
	logger.GetLogger().
		WithField("concurrency", w.concurrency).
		Info("Publish worker starting")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.loop(ctx)
		})
	}
	err := g.Wait()
	logger.GetLogger().Info("Publish worker stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			// Wait wraps deadline errors in its own type; the context is
			// authoritative for shutdown.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while dequeueing job")
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if job == nil {
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *model.PublishJob) {
	start := time.Now()
	result := w.processor.Process(ctx, job)
	logger.GetLogger().
		WithField("post_id", job.PostID).
		WithField("platform", job.Platform).
		WithField("outcome", result.Outcome).
		WithField("duration", time.Since(start).Round(time.Millisecond).String()).
		Debug("Job processed")
}

func (w *Worker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.pollInterval):
		return true
	}
}
