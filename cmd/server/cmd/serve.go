package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seremi5/expense-server/internal/api"
	"github.com/seremi5/expense-server/internal/audit"
	"github.com/seremi5/expense-server/internal/auth"
	"github.com/seremi5/expense-server/internal/config"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/profiles"
	"github.com/seremi5/expense-server/internal/domain/settings"
	"github.com/seremi5/expense-server/internal/email"
	"github.com/seremi5/expense-server/internal/jobs"
	"github.com/seremi5/expense-server/internal/metrics"
	"github.com/seremi5/expense-server/internal/ocr"
	"github.com/seremi5/expense-server/internal/storage/postgres"
	"github.com/seremi5/expense-server/internal/telemetry"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the expense HTTP server",
	Long: `Start the expense HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Run pending database migrations
- Bootstrap the admin account if ADMIN_* env vars are set
- Start background workers for notifications and cleanup
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting expense server")

	metrics.Init(Version, GitCommit, BuildDate)

	if cfg.Tracing.Enabled {
		shutdownTracing, err := telemetry.InitTracing(context.Background(), cfg.Tracing, Version)
		if err != nil {
			return fmt.Errorf("tracing init failed: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Error().Err(err).Msg("tracing shutdown error")
			}
		}()
		logger.Info().Str("exporter", cfg.Tracing.Exporter).Msg("tracing initialized")
	}

	if err := postgres.MigrateUp(cfg.Database.URL, postgres.DefaultMigrationsPath); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	pool, err := newPool(cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return err
	}

	// Database metrics collector (collect every 15 seconds)
	dbCollector := metrics.NewDBCollector(pool)
	collectorCtx, collectorCancel := context.WithCancel(context.Background())
	go dbCollector.Start(collectorCtx, 15*time.Second)
	defer collectorCancel()
	defer dbCollector.Stop()

	profilesService := profiles.NewService(repo.Profiles())
	settingsService := settings.NewService(repo.Settings())
	trail := audit.NewRecorder(repo.Audit())
	expensesService := expenses.NewService(repo.Expenses(), profilesService)

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email service init failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdmin(ctx, cfg, profilesService, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	cancel()

	riverClient, adminService, err := startJobs(cfg, pool, repo, trail, profilesService, mailer, logger)
	if err != nil {
		return err
	}
	if riverClient != nil {
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("job workers shutdown error")
			} else {
				logger.Info().Msg("job workers stopped")
			}
		}()
	}

	var ocrClient *ocr.Client
	if cfg.OCR.BaseURL != "" {
		ocrClient = ocr.NewClient(cfg.OCR.BaseURL, cfg.OCR.APIKey, cfg.OCR.Model,
			ocr.WithRateLimit(cfg.OCR.RequestsPerSecond),
			ocr.WithHTTPClient(&http.Client{Timeout: cfg.OCR.Timeout}),
		)
		logger.Info().Str("model", cfg.OCR.Model).Msg("receipt scanning enabled")
	} else {
		logger.Warn().Msg("OCR_BASE_URL not set, receipt scanning disabled")
	}

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		JWT:      auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer),
		Expenses: expensesService,
		Admin:    adminService,
		Profiles: profilesService,
		Settings: settingsService,
		Trail:    trail,
		OCR:      ocrClient,
		River:    riverClient,
		Version:  Version,
		Commit:   GitCommit,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if configFile != "" {
		if err := config.ApplyFile(&cfg, configFile); err != nil {
			return config.Config{}, err
		}
	}

	// Override logging from flags if provided
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}

func newPool(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdle)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// startJobs migrates the job queue schema, registers the workers and
// starts the River client. Returns the admin service wired with the
// notification enqueuer so decisions trigger emails.
func startJobs(
	cfg config.Config,
	pool *pgxpool.Pool,
	repo *postgres.Repository,
	trail *audit.Recorder,
	profilesService *profiles.Service,
	mailer *email.Service,
	logger zerolog.Logger,
) (riverClient *river.Client[pgx.Tx], adminService *expenses.AdminService, err error) {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("job queue migrator: %w", err)
	}
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer migrateCancel()
	if _, err := migrator.Migrate(migrateCtx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return nil, nil, fmt.Errorf("job queue migration failed: %w", err)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// The stale-submission worker only flags, it never notifies, so the
	// worker-side admin service carries no notifier.
	workers := jobs.NewWorkers(jobs.WorkerDeps{
		Recorder:      trail,
		Admin:         expenses.NewAdminService(repo.Expenses(), trail, nil),
		Expenses:      repo.Expenses(),
		Profiles:      profilesService,
		Mailer:        mailer,
		RetentionDays: cfg.Jobs.AuditRetentionDays,
		StaleDays:     cfg.Jobs.StaleSubmissionDays,
		Logger:        slogger,
	})

	client, err := jobs.NewClient(pool, workers, slogger, jobs.NewPeriodicJobs(), cfg.Jobs.NotifyMaxAttempts)
	if err != nil {
		return nil, nil, fmt.Errorf("job client init failed: %w", err)
	}
	if err := client.Start(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("job workers failed to start: %w", err)
	}
	logger.Info().Msg("background job workers started")

	adminService = expenses.NewAdminService(repo.Expenses(), trail, jobs.NewNotifier(client, cfg.Jobs.NotifyMaxAttempts))
	return client, adminService, nil
}

func bootstrapAdmin(ctx context.Context, cfg config.Config, service *profiles.Service, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Email == "" || bootstrap.Password == "" {
		logger.Warn().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	profile, err := service.EnsureAdmin(ctx, bootstrap.Email, bootstrap.Password)
	if err != nil {
		return err
	}

	// Redact email in production to avoid PII leaks
	if cfg.Environment == "production" {
		logger.Info().Str("id", profile.ID).Msg("admin account ready")
	} else {
		logger.Info().Str("email", bootstrap.Email).Msg("admin account ready")
	}
	return nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
