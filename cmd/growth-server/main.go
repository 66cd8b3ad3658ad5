package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pedsclinic/growth/internal/config"
	"github.com/pedsclinic/growth/internal/domain/growth"
	"github.com/pedsclinic/growth/internal/platform/auth"
	"github.com/pedsclinic/growth/internal/platform/db"
	"github.com/pedsclinic/growth/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "growth-server",
		Short:         "WHO child growth standards API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(referenceCmd())
	rootCmd.AddCommand(calcCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the growth API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(out)
	}
	return logger.Level(cfg.Level()).With().Timestamp().Str("service", "growth-server").Logger()
}

// openReferences returns the loader and writer for the configured backend and
// a close func for any handle it opened.
func openReferences(ctx context.Context, backend string, cfg *config.Config, pool *pgxpool.Pool) (growth.ReferenceRepository, func(), error) {
	switch backend {
	case config.BackendSQLite:
		repo, err := growth.OpenSQLiteReferenceRepo(ctx, cfg.ReferenceSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case config.BackendPostgres:
		if pool == nil {
			return nil, nil, fmt.Errorf("postgres reference backend needs a database connection")
		}
		return growth.NewReferenceRepoPG(pool), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown reference backend %q", backend)
}

func newEngine(cfg *config.Config, loader growth.ReferenceLoader, logger zerolog.Logger) *growth.Engine {
	refs := growth.NewReferenceStore(loader, logger)
	calc := growth.NewCalculator(growth.CalculatorOptions{
		Diagnostics: cfg.GrowthDiagnostics,
		Classifier:  growth.ClassifierByName(cfg.GrowthClassifier),
	})
	return growth.NewEngine(refs, calc)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: every unauthenticated request is treated as admin")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	refRepo, closeRefs, err := openReferences(ctx, cfg.ReferenceBackend, cfg, pool)
	if err != nil {
		return err
	}
	defer closeRefs()

	engine := newEngine(cfg, refRepo, logger)
	if _, err := engine.References().All(ctx); err != nil {
		// Tables may be imported after startup; series load lazily on first use.
		logger.Warn().Err(err).Msg("reference warm-up failed")
	}

	svc := growth.NewService(growth.NewPatientRepoPG(pool), growth.NewMeasurementRepoPG(pool), engine, logger)
	handler := growth.NewHandler(svc)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", db.HealthHandler(pool,
		db.PoolCheck(pool),
		db.Check{Name: "reference", Probe: func(ctx context.Context) error {
			_, err := engine.References().All(ctx)
			return err
		}},
	))

	apiV1 := e.Group("/api/v1",
		middleware.BodyLimit(cfg.BodyLimit, cfg.BatchBodyLimit, "/api/v1/growth/zscores/batch"),
		middleware.RequestTimeout(cfg.RequestTimeout),
	)
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	handler.RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("reference_backend", cfg.ReferenceBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
