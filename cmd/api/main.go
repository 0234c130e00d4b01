package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	apihttp "github.com/helpdesk-io/ticketing-service/internal/api/http"
	"github.com/helpdesk-io/ticketing-service/internal/api/http/handlers"
	"github.com/helpdesk-io/ticketing-service/internal/auth"
	"github.com/helpdesk-io/ticketing-service/internal/cache"
	"github.com/helpdesk-io/ticketing-service/internal/config"
	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/events"
	"github.com/helpdesk-io/ticketing-service/internal/observability"
	"github.com/helpdesk-io/ticketing-service/internal/persistence"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
	"github.com/helpdesk-io/ticketing-service/internal/service"
	"github.com/helpdesk-io/ticketing-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("connecting to postgres failed", zap.Error(err))
	}
	defer func() {
		if pg.Pool != nil {
			pg.Pool.Close()
		}
	}()
	if cfg.Postgres.RunMigrations && pg.Pool != nil {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("running migrations failed", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	clock := domain.SystemClock{}
	metrics := observability.NewMetrics()

	userRepo := repository.NewUserRepository(pg.Pool)
	ticketRepo := repository.NewTicketRepository(pg.Pool)
	commentRepo := repository.NewCommentRepository(pg.Pool)
	historyRepo := repository.NewHistoryRepository(pg.Pool)
	notificationRepo := repository.NewNotificationRepository(pg.Pool)
	analyticsRepo := repository.NewAnalyticsRepository(pg.Pool)
	txManager := repository.NewTxManager(pg.Pool)

	dispatcher := events.NewInMemoryDispatcher()

	mailer := &worker.LogMailer{From: cfg.Notification.EmailFrom, Logger: logger}
	deliveryWorker := worker.NewDeliveryWorker(cfg.Notification, notificationRepo, userRepo, mailer, logger, clock)
	deliveryWorker.Start(ctx)

	unreadCache := cache.NewUnreadCounts(rdb.Client, cfg.Notification.UnreadCacheTTL())

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(userRepo, tokens, cfg.Auth.BcryptCost, clock)
	userService := service.NewUserService(userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		TxManager:   txManager,
		Dispatcher:  dispatcher,
		Clock:       clock,
	})
	notificationService := service.NewNotificationService(notificationRepo, userRepo, deliveryWorker, unreadCache, logger)
	notificationService.RegisterHandlers(dispatcher)
	analyticsService := service.NewAnalyticsService(analyticsRepo, clock)

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := apihttp.NewApp(apihttp.RouterDependencies{
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
		Health:         handlers.NewHealthHandler(pg, rdb),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, clock),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		AdminUsers:     handlers.NewAdminUsersHandler(userService),
	})

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.String("version", cfg.App.Version))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("http server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	deliveryWorker.Wait()
	logger.Info("stopped")
}
