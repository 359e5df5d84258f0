package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/leonunesbs/injecoes-v2/internal/config"
	"github.com/leonunesbs/injecoes-v2/internal/domain/catalog"
	"github.com/leonunesbs/injecoes-v2/internal/domain/dashboard"
	"github.com/leonunesbs/injecoes-v2/internal/domain/treatment"
	"github.com/leonunesbs/injecoes-v2/internal/platform/auth"
	"github.com/leonunesbs/injecoes-v2/internal/platform/db"
	"github.com/leonunesbs/injecoes-v2/internal/platform/metrics"
	"github.com/leonunesbs/injecoes-v2/internal/platform/middleware"
)

const (
	version        = "0.1.0"
	requestTimeout = 30 * time.Second
	bodyLimit      = "1M"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "injections-server",
		Short: "Intravitreal injection ledger API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// connect loads the configuration and opens the pool shared by every
// subcommand.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg)
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, logger)
	if err != nil {
		return nil, nil, logger, err
	}
	return cfg, pool, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	migrator := func(ctx context.Context, dirFlag string) (*db.Migrator, func(), error) {
		cfg, pool, _, err := connect(ctx)
		if err != nil {
			return nil, nil, err
		}
		dir := cfg.MigrationsDir
		if dirFlag != "" {
			dir = dirFlag
		}
		return db.NewMigrator(pool, os.DirFS(dir)), pool.Close, nil
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := cmd.Context()

			m, done, err := migrator(ctx, dir)
			if err != nil {
				return err
			}
			defer done()

			count, err := m.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := cmd.Context()

			m, done, err := migrator(ctx, dir)
			if err != nil {
				return err
			}
			defer done()

			statuses, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default indications, medications and Swalis classes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, logger, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := catalog.NewService(
				catalog.NewIndicationRepoPG(pool),
				catalog.NewMedicationRepoPG(pool),
				catalog.NewSwalisRepoPG(pool),
				logger,
			)
			res, err := svc.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d indication(s), %d medication(s), %d Swalis class(es).\n",
				res.Indications, res.Medications, res.Swalis)
			return nil
		},
	}
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		return auth.DevAuthMiddleware(jwtCfg)
	}
	return auth.JWTMiddleware(jwtCfg)
}

// newServer wires repositories, services and handlers onto a fresh echo
// instance. pool is only dereferenced when requests reach the store.
func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*echo.Echo, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	catalogSvc := catalog.NewService(
		catalog.NewIndicationRepoPG(pool),
		catalog.NewMedicationRepoPG(pool),
		catalog.NewSwalisRepoPG(pool),
		logger,
	)
	treatmentSvc := treatment.NewService(
		treatment.NewPatientRepoPG(pool),
		treatment.NewPrescriptionRepoPG(pool),
		treatment.NewInjectionRepoPG(pool),
		catalogSvc,
		db.NewRunner(pool),
		logger,
	)
	dashboardSvc := dashboard.NewService(dashboard.NewRepoPG(pool), catalogSvc, loc, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, middleware.IdempotencyHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(authMiddleware(cfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() db.PoolStats { return db.StatsOf(pool) }))
	e.GET("/metrics", metrics.Handler())

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RequestTimeout(requestTimeout))
	apiV1.Use(middleware.Idempotency(middleware.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)))

	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	treatment.NewHandler(treatmentSvc).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	return e, nil
}

func runServer() error {
	ctx := context.Background()
	cfg, pool, logger, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := metrics.RegisterPool(prometheus.DefaultRegisterer, pool); err != nil {
		logger.Warn().Err(err).Msg("pool metrics not registered")
	}

	e, err := newServer(cfg, pool, logger)
	if err != nil {
		return err
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
