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

	httptransport "github.com/crmdesk/reply-service/internal/api/http"
	"github.com/crmdesk/reply-service/internal/api/http/handlers"
	"github.com/crmdesk/reply-service/internal/auth"
	"github.com/crmdesk/reply-service/internal/config"
	"github.com/crmdesk/reply-service/internal/events"
	"github.com/crmdesk/reply-service/internal/observability"
	"github.com/crmdesk/reply-service/internal/persistence"
	"github.com/crmdesk/reply-service/internal/repository"
	"github.com/crmdesk/reply-service/internal/repository/memory"
	"github.com/crmdesk/reply-service/internal/security"
	"github.com/crmdesk/reply-service/internal/service"
	"github.com/crmdesk/reply-service/internal/worker"
)

type repositories struct {
	users         repository.UserRepository
	feedback      repository.FeedbackRepository
	replies       repository.ReplyRepository
	refreshTokens repository.RefreshTokenRepository
	audit         repository.AuditRepository
	notifications repository.NotificationRepository
}

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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	repos := newRepositories(pg, logger)
	probes := map[string]handlers.Pinger{}
	if pg.Enabled() {
		probes["postgres"] = pg
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	auditService := service.NewAuditService(service.AuditDependencies{
		AuditRepo: repos.audit,
		Logger:    logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: repos.notifications,
		UserRepo:         repos.users,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	worker.StartListeners(dispatcher, auditService, notificationService)

	var attempts security.AttemptStore = security.NewMemoryAttemptStore()
	if cfg.BruteForce.Store == config.AttemptStoreRedis {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		probes["redis"] = redis
		attempts = security.NewRedisAttemptStore(redis.Client, cfg.BruteForce.Lockout)
	}
	guard := security.NewGuard(cfg.BruteForce, attempts, auditService, logger)

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:         repos.users,
		RefreshTokenRepo: repos.refreshTokens,
		Guard:            guard,
		Audit:            auditService,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	replyService := service.NewReplyService(service.ReplyDependencies{
		ReplyRepo:    repos.replies,
		FeedbackRepo: repos.feedback,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	retention := worker.NewRetentionWorker(cfg.Retention, logger,
		worker.RetentionTask{Name: "audit_logs", Run: func(ctx context.Context) (int64, error) {
			return auditService.CleanupOlderThan(ctx, cfg.Retention.AuditDays)
		}},
		worker.RetentionTask{Name: "notifications", Run: func(ctx context.Context) (int64, error) {
			return notificationService.DeleteOldNotifications(ctx, cfg.Retention.NotificationDays)
		}},
		worker.RetentionTask{Name: "refresh_tokens", Run: authService.CleanupExpiredTokens},
		worker.RetentionTask{Name: "login_attempts", Run: func(ctx context.Context) (int64, error) {
			evicted, err := guard.Sweep(ctx)
			return int64(evicted), err
		}},
	)
	retention.Start(ctx)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Replies:        handlers.NewRepliesHandler(replyService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Audit:          handlers.NewAuditHandler(auditService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	retention.Stop()
	if err := app.Shutdown(); err != nil {
		logger.Error("fiber shutdown", zap.Error(err))
	}
}

func newRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	if !pg.Enabled() {
		samples := memory.SampleFeedback(time.Now().UTC())
		ids := make([]string, 0, len(samples))
		for _, fb := range samples {
			ids = append(ids, fb.ID)
		}
		logger.Info("seeded sample feedback", zap.Strings("feedback_ids", ids))

		return repositories{
			users:         memory.NewUserRepository(),
			feedback:      memory.NewFeedbackRepository(samples...),
			replies:       memory.NewReplyRepository(),
			refreshTokens: memory.NewRefreshTokenRepository(),
			audit:         memory.NewAuditRepository(),
			notifications: memory.NewNotificationRepository(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		users:         repository.NewUserRepository(pool),
		feedback:      repository.NewFeedbackRepository(pool),
		replies:       repository.NewReplyRepository(pool),
		refreshTokens: repository.NewRefreshTokenRepository(pool),
		audit:         repository.NewAuditRepository(pool),
		notifications: repository.NewNotificationRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
