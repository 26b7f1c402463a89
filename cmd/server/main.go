package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dukerupert/bidwell/internal"
	"github.com/dukerupert/bidwell/internal/ai"
	"github.com/dukerupert/bidwell/internal/billing"
	"github.com/dukerupert/bidwell/internal/budget"
	"github.com/dukerupert/bidwell/internal/email"
	"github.com/dukerupert/bidwell/internal/handler/api"
	"github.com/dukerupert/bidwell/internal/handler/webhook"
	"github.com/dukerupert/bidwell/internal/middleware"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/router"
	"github.com/dukerupert/bidwell/internal/routes"
	"github.com/dukerupert/bidwell/internal/service"
	"github.com/dukerupert/bidwell/internal/sms"
	"github.com/dukerupert/bidwell/internal/storage"
	"github.com/dukerupert/bidwell/internal/telemetry"
	"github.com/dukerupert/bidwell/internal/tenant"
	"github.com/dukerupert/bidwell/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	telemetry.InitBusinessMetrics("bidwell")

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool)
	owners := tenant.NewDBResolver(store)

	// ==========================================================================
	// Outbound providers
	// ==========================================================================

	tracedTransport := &telemetry.HTTPTransport{}

	var mailSender email.Sender
	if cfg.Email.PostmarkToken != "" {
		mailSender = email.NewPostmarkSender(cfg.Email.PostmarkToken)
		logger.Info("Email provider initialized", "provider", "postmark")
	} else {
		smtpSender := email.NewSMTPSender(&email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
		if err := checkSMTP(ctx, smtpSender); err != nil {
			logger.Warn("SMTP connection check failed", "host", cfg.Email.Host, "error", err)
		}
		mailSender = smtpSender
		logger.Info("Email provider initialized", "provider", "smtp", "host", cfg.Email.Host)
	}
	mailer, err := email.NewService(mailSender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	var texter sms.Sender
	if cfg.SMS.AccountSID != "" {
		texter = sms.NewTwilioSender(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber, cfg.SMS.BaseURL, logger).
			WithTransport(tracedTransport)
		logger.Info("SMS provider initialized", "provider", "twilio")
	} else {
		logger.Info("SMS disabled: TWILIO_ACCOUNT_SID not set")
	}

	reminderCfg := service.ReminderConfig{
		BaseURL:     cfg.BaseURL,
		AICostCents: cfg.AI.CostPerMessageCents,
	}
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		reminderCfg.Personalizer = ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout).
			WithTransport(tracedTransport)

		switch cfg.AI.BudgetStore {
		case "redis":
			rdb, err := budget.Connect(ctx, cfg.Redis.URL)
			if err != nil {
				return err
			}
			defer rdb.Close()
			reminderCfg.Budget = budget.NewRedisCounter(rdb)
		default:
			reminderCfg.Budget = budget.NewPostgresCounter(store)
		}
		logger.Info("AI personalization enabled", "model", cfg.AI.Model, "budget_store", cfg.AI.BudgetStore)
	}

	objectStore, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	archive := storage.NewInvoiceArchive(objectStore)

	stripeConfig := billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
	}
	if err := stripeConfig.Validate(); err != nil {
		return fmt.Errorf("invalid Stripe configuration: %w", err)
	}
	gateway := billing.NewStripeGateway(stripeConfig)

	// ==========================================================================
	// Services
	// ==========================================================================

	conversionService := service.NewConversionService(store, archive, logger)
	estimateService := service.NewEstimateService(store, cfg.Estimates.StaleAfter(), logger)
	milestoneService := service.NewMilestoneService(store, conversionService, logger)
	dispatcher := service.NewDispatcher(store, mailer, texter, logger)
	reminderService := service.NewReminderService(store, dispatcher, mailer, reminderCfg, logger)
	notifier := service.NewNotifier(store, dispatcher, mailer, cfg.BaseURL, logger)

	// ==========================================================================
	// Background jobs
	// ==========================================================================

	var background []func()
	if cfg.Worker.Enabled {
		hostname, _ := os.Hostname()
		w := worker.NewWorker(store, worker.Handlers{
			Conversion: conversionService,
			Milestones: milestoneService,
			Reminders:  reminderService,
			Notifier:   notifier,
		}, worker.Config{
			WorkerID:       fmt.Sprintf("%s-%d", hostname, os.Getpid()),
			PollInterval:   cfg.Worker.PollInterval,
			MaxConcurrency: int(cfg.Worker.MaxConcurrency),
		}, logger)
		scheduler := worker.NewScheduler(store, int(cfg.Worker.DailyRunHour), 15*time.Minute, logger)

		workerDone := make(chan struct{})
		schedulerDone := make(chan struct{})
		go func() {
			defer close(workerDone)
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Worker stopped", "error", err)
			}
		}()
		go func() {
			defer close(schedulerDone)
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Scheduler stopped", "error", err)
			}
		}()
		background = append(background, func() { <-workerDone }, func() { <-schedulerDone })
		logger.Info("Background worker started", "daily_run_hour_utc", cfg.Worker.DailyRunHour)
	}

	// ==========================================================================
	// HTTP
	// ==========================================================================

	metrics := middleware.NewMetrics("bidwell", nil)

	securityConfig := middleware.SecurityHeadersConfig{HSTSMaxAge: 31536000}
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0
	}

	shareLimiter := middleware.NewRateLimiter(middleware.ShareLinkRateLimiterConfig())
	defer shareLimiter.Stop()

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		telemetry.SentryMiddleware(),
		metrics.Middleware,
		middleware.AccessLog,
		middleware.SecurityHeaders(securityConfig),
		router.CORS([]string{cfg.BaseURL}),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)

	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		HealthHandler:  api.NewHealthHandler(pool),
		MetricsHandler: metrics.Handler(),
	})
	routes.RegisterOwnerRoutes(r, routes.OwnerDeps{
		Middleware:         []router.Middleware{middleware.RequireOwner(owners)},
		EstimateHandler:    api.NewEstimateHandler(estimateService, conversionService, milestoneService, logger),
		MilestoneHandler:   api.NewMilestoneHandler(milestoneService, conversionService),
		PreferencesHandler: api.NewReminderPreferencesHandler(reminderService),
	})
	routes.RegisterShareRoutes(r, routes.ShareDeps{
		RateLimit:    shareLimiter.Middleware,
		ShareHandler: api.NewShareHandler(estimateService, gateway, cfg.BaseURL, logger),
	})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		BodyLimit:     middleware.MaxBodySize(middleware.WebhookMaxBodySize),
		StripeHandler: webhook.NewStripeHandler(gateway, store, estimateService, milestoneService, logger),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	stop()
	for _, wait := range background {
		wait()
	}
	logger.Info("Shutdown complete")
	return nil
}

// checkSMTP dials the relay once so a bad host or credentials show up in
// the startup log rather than on the first notification.
func checkSMTP(ctx context.Context, sender *email.SMTPSender) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return sender.TestConnection(ctx)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
