package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/appointment-service/internal/api/http"
	"github.com/spec-kit/appointment-service/internal/api/dto"
	"github.com/spec-kit/appointment-service/internal/api/http/handlers"
	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/config"
	"github.com/spec-kit/appointment-service/internal/events"
	"github.com/spec-kit/appointment-service/internal/lock"
	"github.com/spec-kit/appointment-service/internal/mail"
	"github.com/spec-kit/appointment-service/internal/observability"
	"github.com/spec-kit/appointment-service/internal/persistence"
	"github.com/spec-kit/appointment-service/internal/repository"
	"github.com/spec-kit/appointment-service/internal/service"
	"github.com/spec-kit/appointment-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var locker lock.Locker = lock.NewLocalLocker()
	healthDeps := map[string]handlers.Pinger{"postgres": pg}
	if redis != nil {
		locker = lock.NewRedisLocker(redis.Client, cfg.Redis.LockTTL())
		healthDeps["redis"] = redis
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	loc := cfg.App.Location()

	userRepo := repository.NewUserRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	outboxRepo := repository.NewMailOutboxRepository(pool)

	dispatcher := events.NewAsyncDispatcher(events.AsyncOptions{
		Workers:        cfg.Notification.DispatcherWorkers,
		HandlerTimeout: cfg.Notification.SendTimeout(),
	}, logger)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:       dispatcher,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		Metrics:          metrics,
		Logger:           logger,
		Locale:           cfg.Notification.Locale,
		Location:         loc,
	})
	appointmentService := service.NewAppointmentService(service.AppointmentDependencies{
		UserRepo:        userRepo,
		AppointmentRepo: appointmentRepo,
		Locker:          locker,
		Validator:       service.NewSlotValidator(loc),
		Policy:          service.NewCancellationPolicy(cfg.Appointment.CancelCutoff()),
		Notifications:   notificationService,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
		PageSize:        cfg.Appointment.PageSize,
	})
	worker.StartNotificationWorker(dispatcher, notificationService)

	sender, err := newMailSender(ctx, cfg.Notification, logger)
	if err != nil {
		logger.Fatal("failed to init mail sender", zap.Error(err))
	}
	renderer, err := mail.NewRenderer(cfg.Notification.Locale)
	if err != nil {
		logger.Fatal("failed to parse mail templates", zap.Error(err))
	}
	mailWorker := worker.NewMailWorker(outboxRepo, renderer, sender, metrics, logger, worker.MailWorkerConfig{
		PollInterval: cfg.Notification.PollInterval(),
		SendTimeout:  cfg.Notification.SendTimeout(),
		MaxAttempts:  cfg.Notification.Attempts(),
		BatchSize:    int32(cfg.Notification.BatchSize),
	})
	workerDone := make(chan struct{})
	go func() {
		mailWorker.Run(ctx)
		close(workerDone)
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)
	bookingLimiter := auth.NewRateLimiter(cfg.Appointment.BookingRatePerMin, cfg.Appointment.BookingRateBurst)
	go sweepLimiter(ctx, bookingLimiter)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Appointments:   handlers.NewAppointmentsHandler(appointmentService, dto.NewPresenter(loc, cfg.App.PublicURL), nil),
		AuthMiddleware: authMiddleware,
		BookingLimiter: bookingLimiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)
	cancel()
	<-workerDone

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Notification.SendTimeout())
	defer drainCancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		logger.Warn("pending notifications not drained", zap.Error(err))
	}
}

func newMailSender(ctx context.Context, cfg config.NotificationConfig, logger *zap.Logger) (mail.Sender, error) {
	switch cfg.Provider {
	case "sendgrid":
		sender := mail.NewSendGridSender(mail.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("SENDGRID_API_KEY not provided; mail will only be logged")
			return mail.NewStubSender(logger), nil
		}
		return sender, nil
	case "ses":
		client, err := mail.NewSESClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return mail.NewSESSender(client, mail.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	default:
		return mail.NewStubSender(logger), nil
	}
}

func sweepLimiter(ctx context.Context, limiter *auth.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Sweep(now)
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
