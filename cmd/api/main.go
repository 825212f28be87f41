package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/atendimento-service/internal/api/http"
	"github.com/spec-kit/atendimento-service/internal/api/http/handlers"
	"github.com/spec-kit/atendimento-service/internal/auth"
	"github.com/spec-kit/atendimento-service/internal/bootstrap"
	"github.com/spec-kit/atendimento-service/internal/cache"
	"github.com/spec-kit/atendimento-service/internal/config"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/functions"
	"github.com/spec-kit/atendimento-service/internal/observability"
	"github.com/spec-kit/atendimento-service/internal/persistence"
	"github.com/spec-kit/atendimento-service/internal/service"
	"github.com/spec-kit/atendimento-service/internal/sla"
	"github.com/spec-kit/atendimento-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.MigrateUp(ctx, store.DB, store.Dialect, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	policy, err := sla.LoadPolicy(cfg.Lifecycle.SLAPolicyFile)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	fnClient := functions.NewClient(cfg.Functions)
	tokens := cache.NewRedisSignatureTokens(redis.Client, cfg.Signature.LinkTokenTTL())
	tokenMgr := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:                  store.Store,
		Dispatcher:             dispatcher,
		Metrics:                metrics,
		Logger:                 logger,
		SLAPolicy:              policy,
		AtRiskWindow:           cfg.Lifecycle.SLAAtRiskWindow(),
		ReopenClearsCompletion: cfg.Lifecycle.ReopenClearsCompletion,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:      store.Store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Functions:  fnClient,
	})
	signatureService := service.NewSignatureService(service.SignatureDependencies{
		Store:      store.Store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Tokens:     tokens,
		Functions:  fnClient,
	})
	agentService := service.NewAgentService(store.Store, cfg.Auth.BcryptCost)
	authService := service.NewAuthService(store.Store.Agents(), tokenMgr)

	notifyDeps := service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Notification,
		Agents:     store.Store.Agents(),
		Functions:  fnClient,
		Webhooks:   fnClient,
	}
	if mailer := service.NewSMTPMailer(cfg.Notification); mailer != nil {
		notifyDeps.Mailer = mailer
	}

	var forwarder *events.KafkaForwarder
	if len(cfg.Kafka.Brokers) > 0 {
		forwarder, err = events.NewKafkaForwarder(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal("failed to init kafka forwarder", zap.Error(err))
		}
		defer forwarder.Close() //nolint:errcheck
	}
	worker.StartNotificationWorker(dispatcher, service.NewNotificationService(notifyDeps), forwarder)

	poller := worker.NewSignaturePoller(signatureService, cfg.Signature.PollInterval(), cfg.Signature.PollBackoffMax(), logger)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		if err := poller.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("signature poller stopped", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"store": store.Pinger,
			"redis": redis,
		}),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Messages:       handlers.NewMessagesHandler(ticketService),
		Signatures:     handlers.NewSignaturesHandler(signatureService),
		Admin:          handlers.NewAdminHandler(authService, agentService),
		AuthMiddleware: auth.NewAuthMiddleware(tokenMgr, store.Store.Agents()),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-pollerDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
