package usecase

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/breaker"
	"social-publisher/infrastructure/logger"
)

const (
	// requeueInfraDelay is used when our own infrastructure (not the
	// platform) hiccups; such re-enqueues never consume a retry attempt.
	requeueInfraDelay = 30 * time.Second

	// scheduleTolerance is how early a job may be delivered and still
	// publish; anything earlier goes back on the queue until its moment.
	scheduleTolerance = 30 * time.Second
)

// ITokenManager is the slice of the token manager the processor needs.
type ITokenManager interface {
	RefreshIfNeeded(ctx context.Context, conn *model.Connection) (*model.Connection, error)
}

// IPublishUsecase processes one queued publish job end to end.
type IPublishUsecase interface {
	Process(ctx context.Context, job *model.PublishJob) *dto.JobResult
}

// PublishUsecase is the per-job state machine: load the post, resolve the
// connection, refresh the token, validate content, publish behind the
// platform's circuit, then record the outcome. Every failure goes through
// the platform classifier and the retry strategy; retries are delayed
// re-enqueues on the queue, never in-process waits.
type PublishUsecase struct {
	postRepo    repository.IPost
	connRepo    repository.IConnection
	pubRepo     repository.IPublication
	auditRepo   repository.IPublicationAudit
	queue       repository.IJobQueue
	publishers  map[model.Platform]repository.IPublisher
	tokens      ITokenManager
	breakers    *breaker.Registry
	events      repository.IEventPublisher
	notifier    repository.IFailureNotifier
	maxAttempts int
}

func NewPublishUsecase(
	postRepo repository.IPost,
	connRepo repository.IConnection,
	pubRepo repository.IPublication,
	auditRepo repository.IPublicationAudit,
	queue repository.IJobQueue,
	publishers []repository.IPublisher,
	tokens ITokenManager,
	breakers *breaker.Registry,
	events repository.IEventPublisher,
	notifier repository.IFailureNotifier,
	maxAttempts int,
) *PublishUsecase {
	byPlatform := make(map[model.Platform]repository.IPublisher, len(publishers))
	for _, p := range publishers {
		byPlatform[p.Platform()] = p
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	return &PublishUsecase{
		postRepo:    postRepo,
		connRepo:    connRepo,
		pubRepo:     pubRepo,
		auditRepo:   auditRepo,
		queue:       queue,
		publishers:  byPlatform,
		tokens:      tokens,
		breakers:    breakers,
		events:      events,
		notifier:    notifier,
		maxAttempts: maxAttempts,
	}
}

func (u *PublishUsecase) Process(ctx context.Context, job *model.PublishJob) *dto.JobResult {
	log := logger.GetLogger().
		WithField("post_id", job.PostID).
		WithField("platform", job.Platform).
		WithField("retry_count", job.RetryCount)

	publisher, ok := u.publishers[job.Platform]
	if !ok {
		log.Error("No publisher registered for platform")
		return &dto.JobResult{Outcome: dto.JobOutcomeSkipped, Reason: "unsupported platform"}
	}

	// Idempotency: at-least-once delivery means a duplicate job may arrive
	// after the publication already succeeded.
	existing, err := u.pubRepo.GetByPostPlatform(ctx, job.PostID, job.Platform)
	if err != nil {
		return u.requeueInfra(ctx, job, log, "publication lookup failed", err)
	}
	if existing != nil && existing.Status == model.PublicationStatusPublished {
		// An earlier delivery may have recorded the publication but lost
		// the post flip; settle it before dropping the duplicate.
		if err := u.pubRepo.MarkPublishedWithPost(ctx, existing); err != nil {
			return u.requeueInfra(ctx, job, log, "publication settle failed", err)
		}
		log.Info("Publication already exists, skipping duplicate job")
		return &dto.JobResult{Outcome: dto.JobOutcomeSkipped, Reason: "already published"}
	}

	post, err := u.postRepo.GetByID(ctx, job.PostID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("Post no longer exists, dropping job")
		return &dto.JobResult{Outcome: dto.JobOutcomeSkipped, Reason: "post not found"}
	}
	if err != nil {
		return u.requeueInfra(ctx, job, log, "post lookup failed", err)
	}
	if post.Status == model.PostStatusPublished {
		return &dto.JobResult{Outcome: dto.JobOutcomeSkipped, Reason: "post already published"}
	}
	if !post.TargetsPlatform(job.Platform) {
		log.Warn("Post no longer targets platform, dropping job")
		return &dto.JobResult{Outcome: dto.JobOutcomeSkipped, Reason: "platform deselected"}
	}
	if post.ScheduledAt != nil && time.Until(*post.ScheduledAt) > scheduleTolerance {
		// Early delivery; push the job back until its moment.
		if err := u.queue.Enqueue(ctx, job, *post.ScheduledAt); err != nil {
			log.WithField("error", err).Error("Error while re-enqueueing early job")
		}
		return &dto.JobResult{Outcome: dto.JobOutcomeRetrying, Delay: time.Until(*post.ScheduledAt), Reason: "not due yet"}
	}

	conn, err := u.connRepo.FindActive(ctx, post.TeamID, job.Platform)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && conn == nil) {
		// No connection is the team's problem, not the platform's; it fails
		// terminally without touching the circuit.
		cerr := model.NewCanonicalError(model.ErrInvalidToken, job.Platform, "no active connection for platform")
		return u.failTerminal(ctx, job, post, cerr, log)
	}
	if err != nil {
		return u.requeueInfra(ctx, job, log, "connection lookup failed", err)
	}

	conn, err = u.tokens.RefreshIfNeeded(ctx, conn)
	if err != nil {
		return u.handlePublishError(ctx, job, post, conn, err, log)
	}

	if validation := publisher.Validate(post.Content, post.MediaURLs); !validation.Valid {
		cerr := model.NewCanonicalError(model.ErrValidationError, job.Platform, validation.Errors[0])
		return u.failTerminal(ctx, job, post, cerr, log)
	}

	u.upsertPublication(ctx, existing, job, model.PublicationStatusPublishing, nil, nil, log)

	var result *dto.PublishResult
	err = u.breakers.Execute(ctx, string(job.Platform), func(ctx context.Context) error {
		var publishErr error
		result, publishErr = publisher.Publish(ctx, post, conn)
		return publishErr
	})
	if err != nil {
		var openErr *breaker.OpenError
		if errors.As(err, &openErr) {
			// Rejection is not an attempt; come back when the circuit may
			// allow a probe.
			if qErr := u.queue.Enqueue(ctx, job, time.Now().Add(openErr.RetryIn)); qErr != nil {
				log.WithField("error", qErr).Error("Error while re-enqueueing after circuit rejection")
			}
			log.WithField("retry_in", openErr.RetryIn).Warn("Circuit open, job delayed")
			return &dto.JobResult{Outcome: dto.JobOutcomeRetrying, Delay: openErr.RetryIn, Reason: "circuit open"}
		}
		return u.handlePublishError(ctx, job, post, conn, err, log)
	}

	return u.succeed(ctx, job, post, result, log)
}

func (u *PublishUsecase) succeed(ctx context.Context, job *model.PublishJob, post *model.Post, result *dto.PublishResult, log *logrus.Entry) *dto.JobResult {
	now := time.Now().UTC()
	publishedAt := result.PublishedAt
	if publishedAt == nil {
		publishedAt = &now
	}
	pub := &model.Publication{
		ID:          uuid.NewString(),
		PostID:      job.PostID,
		Platform:    job.Platform,
		Status:      model.PublicationStatusPublished,
		RetryCount:  job.RetryCount,
		PublishedAt: publishedAt,
	}
	if result.PlatformPostID != "" {
		id := result.PlatformPostID
		pub.ExternalID = &id
	}
	if result.URL != "" {
		link := result.URL
		pub.URL = &link
	}
	if err := u.pubRepo.MarkPublishedWithPost(ctx, pub); err != nil {
		// The platform post exists; losing the write must not republish.
		// Record the publication outside the transaction so the duplicate
		// delivery sees it, then re-deliver to settle the post row.
		log.WithField("error", err).Error("Error while recording publication, re-enqueueing for settlement")
		if upErr := u.pubRepo.Upsert(ctx, pub); upErr != nil {
			log.WithField("error", upErr).Error("Error while recording publication after transaction failure")
		}
		return u.requeueInfra(ctx, job, log, "publication write failed", err)
	}

	u.appendAudit(ctx, job, string(model.PublicationStatusPublished), nil, nil, log)
	if err := u.events.PostPublished(ctx, post, job.Platform, result.PlatformPostID); err != nil {
		log.WithField("error", err).Error("Error while publishing lifecycle event")
	}
	log.WithField("external_id", result.PlatformPostID).Info("Job published")
	return &dto.JobResult{Outcome: dto.JobOutcomePublished}
}

// handlePublishError classifies the failure, asks the retry strategy, and
// either re-enqueues with a delay or fails terminally.
func (u *PublishUsecase) handlePublishError(ctx context.Context, job *model.PublishJob, post *model.Post, conn *model.Connection, err error, log *logrus.Entry) *dto.JobResult {
	cerr := model.AsCanonical(err, job.Platform)
	// RetryCount is the retries consumed before this delivery; the attempt
	// that just failed makes it +1 (the convention Decide expects).
	attemptsMade := job.RetryCount + 1

	if conn != nil && (cerr.Kind == model.ErrInvalidToken || cerr.Kind == model.ErrTokenExpired) {
		if dErr := u.connRepo.MarkDisconnected(ctx, conn.ID); dErr != nil {
			log.WithField("error", dErr).Error("Error while marking connection disconnected")
		}
	}

	decision := Decide(cerr, attemptsMade, u.maxAttempts, job.Platform)
	if !decision.ShouldRetry {
		return u.failTerminal(ctx, job, post, cerr, log)
	}

	code := string(cerr.Kind)
	msg := cerr.Message
	u.upsertPublication(ctx, nil, &model.PublishJob{
		PostID: job.PostID, Platform: job.Platform, ScheduledFor: job.ScheduledFor, RetryCount: attemptsMade,
	}, model.PublicationStatusPending, &code, &msg, log)
	u.appendAudit(ctx, job, string(model.PublicationStatusFailed), &code, &msg, log)

	retry := &model.PublishJob{
		PostID:       job.PostID,
		Platform:     job.Platform,
		ScheduledFor: job.ScheduledFor,
		RetryCount:   attemptsMade,
	}
	if qErr := u.queue.Enqueue(ctx, retry, time.Now().Add(decision.Delay)); qErr != nil {
		log.WithField("error", qErr).Error("Error while enqueueing retry")
		return u.requeueInfra(ctx, job, log, "retry enqueue failed", qErr)
	}
	log.WithField("delay", decision.Delay).
		WithField("error_code", code).
		WithField("reason", decision.Reason).
		Warn("Job scheduled for retry")
	return &dto.JobResult{Outcome: dto.JobOutcomeRetrying, Delay: decision.Delay, Reason: decision.Reason, ErrorCode: code}
}

func (u *PublishUsecase) failTerminal(ctx context.Context, job *model.PublishJob, post *model.Post, cerr *model.CanonicalError, log *logrus.Entry) *dto.JobResult {
	code := string(cerr.Kind)
	msg := cerr.Message

	u.upsertPublication(ctx, nil, job, model.PublicationStatusFailed, &code, &msg, log)
	u.appendAudit(ctx, job, string(model.PublicationStatusFailed), &code, &msg, log)

	if err := u.postRepo.UpdateStatus(ctx, job.PostID, model.PostStatusFailed, nil); err != nil {
		log.WithField("error", err).Error("Error while marking post failed")
	}
	if err := u.events.PostFailed(ctx, post, job.Platform, code, msg); err != nil {
		log.WithField("error", err).Error("Error while publishing lifecycle event")
	}
	if err := u.notifier.NotifyTerminalFailure(ctx, job, code, msg); err != nil {
		log.WithField("error", err).Error("Error while sending terminal failure notice")
	}
	log.WithField("error_code", code).WithField("message", msg).Error("Job failed terminally")
	return &dto.JobResult{Outcome: dto.JobOutcomeFailed, Reason: msg, ErrorCode: code}
}

// requeueInfra re-delivers the job after our own infrastructure failed.
// The retry count stays untouched; the platform never saw this attempt.
func (u *PublishUsecase) requeueInfra(ctx context.Context, job *model.PublishJob, log *logrus.Entry, reason string, cause error) *dto.JobResult {
	log.WithField("error", cause).Error("Infrastructure error, re-enqueueing job")
	if err := u.queue.Enqueue(ctx, job, time.Now().Add(requeueInfraDelay)); err != nil {
		log.WithField("error", err).Error("Error while re-enqueueing job")
	}
	return &dto.JobResult{Outcome: dto.JobOutcomeRetrying, Delay: requeueInfraDelay, Reason: reason}
}

func (u *PublishUsecase) upsertPublication(ctx context.Context, existing *model.Publication, job *model.PublishJob, status model.PublicationStatus, code, msg *string, log *logrus.Entry) {
	pub := existing
	if pub == nil {
		pub = &model.Publication{ID: uuid.NewString(), PostID: job.PostID, Platform: job.Platform}
	}
	pub.Status = status
	pub.RetryCount = job.RetryCount
	pub.ErrorCode = code
	pub.ErrorMessage = msg
	if err := u.pubRepo.Upsert(ctx, pub); err != nil {
		log.WithField("error", err).Error("Error while upserting publication")
	}
}

func (u *PublishUsecase) appendAudit(ctx context.Context, job *model.PublishJob, status string, code, msg *string, log *logrus.Entry) {
	audit := &model.PublicationAudit{
		PostID:       job.PostID,
		Platform:     job.Platform,
		Status:       status,
		ErrorCode:    code,
		ErrorMessage: msg,
		Attempt:      job.RetryCount + 1,
		CreatedAt:    time.Now().UTC(),
	}
	if err := u.auditRepo.Append(ctx, audit); err != nil {
		log.WithField("error", err).Error("Error while appending publication audit")
	}
}
