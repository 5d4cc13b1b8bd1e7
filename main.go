package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/breaker"
	"social-publisher/infrastructure/clients/facebook"
	"social-publisher/infrastructure/clients/instagram"
	"social-publisher/infrastructure/clients/linkedin"
	"social-publisher/infrastructure/clients/twitter"
	youtubeclient "social-publisher/infrastructure/clients/youtube"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/oauth"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/queue"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		os.Exit(1)
	}
	if err := persistence.EnsurePublishingSchema(psqlDb); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while ensuring publishing schema")
		os.Exit(1)
	}

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without audit history")
		mongoDb = nil
	} else {
		if err := mongoDb.Ping(ctx, nil); err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without audit history")
			mongoDb = nil
		} else {
			logger.GetLogger().Info("MongoDB connected successfully")
		}
	}

	redisClient := queue.NewRedisClient(
		configuration.C.RedisClient.Host,
		configuration.C.RedisClient.Port,
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to Redis")
		os.Exit(1)
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - lifecycle events disabled")
		pubSubClient = nil
	}

	serviceBusClient, err := servicebus.NewServiceBus(configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Service Bus not available - failure notices disabled")
		serviceBusClient = nil
	}

	postRepository := persistence.NewPostRepository(psqlDb)
	connectionRepository := persistence.NewConnectionRepository(psqlDb)
	publicationRepository := persistence.NewPublicationRepository(psqlDb)
	auditRepository := persistence.NewPublicationAuditRepository(mongoDb, configuration.C.Database.Mongo.Name)
	jobQueue := queue.NewRedisJobQueue(redisClient, configuration.C.Worker.QueueKey)
	publicationHub := realtime.NewPublicationHub()
	eventPublisher := pubsub.NewEventFanout(
		pubsub.NewEventPublisher(pubSubClient, configuration.C.Pubsub.Topic),
		publicationHub,
	)
	failureNotifier := servicebus.NewFailureNotifier(serviceBusClient, configuration.C.ServiceBus.Queue)

	usecase.ConfigureRetryDefaults(
		time.Duration(configuration.C.Retry.BaseDelaySec)*time.Second,
		time.Duration(configuration.C.Retry.MaxDelaySec)*time.Second,
	)
	tokenManager := oauth.NewTokenManager(connectionRepository)
	breakerRegistry := breaker.NewRegistry(breaker.Config{
		FailureThreshold: configuration.C.Breaker.FailureThreshold,
		RecoveryTimeout:  time.Duration(configuration.C.Breaker.RecoveryTimeout) * time.Second,
		MonitoringPeriod: time.Duration(configuration.C.Breaker.MonitoringPeriod) * time.Second,
		SuccessThreshold: configuration.C.Breaker.SuccessThreshold,
	})

	publishers := []repository.IPublisher{
		facebook.NewPublisher(configuration.C.Graph.MetaVersion),
		instagram.NewPublisher(configuration.C.Graph.MetaVersion),
		twitter.NewPublisher(configuration.C.Graph.TwitterBaseURL),
		youtubeclient.NewPublisher(configuration.C.OAuth.YouTube),
		linkedin.NewPublisher(configuration.C.Graph.LinkedInBaseURL),
	}

	publishUsecase := usecase.NewPublishUsecase(
		postRepository,
		connectionRepository,
		publicationRepository,
		auditRepository,
		jobQueue,
		publishers,
		tokenManager,
		breakerRegistry,
		eventPublisher,
		failureNotifier,
		configuration.C.Retry.MaxAttempts,
	)

	worker := usecase.NewWorker(
		jobQueue,
		publishUsecase,
		configuration.C.Worker.Concurrency,
		configuration.C.Worker.JobsPerSecond,
		time.Duration(configuration.C.Worker.PollIntervalMs)*time.Millisecond,
	)
	g.Go(func() error {
		return worker.Run(ctx)
	})

	healthHandler := httpHandler.NewHealthHandler(jobQueue, breakerRegistry)
	connectionHandler := httpHandler.NewConnectionHandler(connectionRepository, tokenManager)
	router := server.InitiateRouter(healthHandler, connectionHandler, publicationHub)

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if mongoDb != nil {
		_ = mongoDb.Disconnect(shutdownCtx)
	}
	_ = redisClient.Close()
	_ = psqlDb.Close()

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}
