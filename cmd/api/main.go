package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/campus-maintenance/internal/api/http"
	"github.com/spec-kit/campus-maintenance/internal/api/http/handlers"
	"github.com/spec-kit/campus-maintenance/internal/auth"
	"github.com/spec-kit/campus-maintenance/internal/config"
	"github.com/spec-kit/campus-maintenance/internal/events"
	"github.com/spec-kit/campus-maintenance/internal/observability"
	"github.com/spec-kit/campus-maintenance/internal/persistence"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/internal/service"
	"github.com/spec-kit/campus-maintenance/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	logRepo := repository.NewTicketLogRepository(pool)
	ratingRepo := repository.NewTicketRatingRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	txManager := repository.NewTxManager(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(userRepo, tokenManager, cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		LogRepo:    logRepo,
		RatingRepo: ratingRepo,
		UserRepo:   userRepo,
		Tx:         txManager,
		Dispatcher: dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		LogRepo:    logRepo,
		UserRepo:   userRepo,
		Tx:         txManager,
		Dispatcher: dispatcher,
	})
	duplicateService := service.NewDuplicateService(ticketRepo, cfg.Duplicate)

	slaChecker := service.NewSLAChecker(cfg.SLA, nil)
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo: ticketRepo,
		Tx:         txManager,
		Checker:    slaChecker,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	analyticsService := service.NewAnalyticsService(ticketRepo, slaChecker, redis, logger)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	sweeper := worker.NewEscalationSweeper(escalationService, cfg.SLA.SweepInterval, logger)
	sweeper.Start()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService, duplicateService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	sweeper.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
