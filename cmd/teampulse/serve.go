package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/teampulse/internal/analysis"
	"github.com/ZanzyTHEbar/teampulse/internal/api"
	"github.com/ZanzyTHEbar/teampulse/internal/cache"
	"github.com/ZanzyTHEbar/teampulse/internal/config"
	"github.com/ZanzyTHEbar/teampulse/internal/database"
	apperrors "github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/monitoring"
	"github.com/ZanzyTHEbar/teampulse/internal/ratelimit"
	"github.com/ZanzyTHEbar/teampulse/internal/security"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

// setupLogging installs the JSON logger at the configured level
func setupLogging(cfg *config.Config) (*monitoring.Logger, error) {
	level, err := monitoring.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := monitoring.NewLogger(level)
	logger.InstallDefault()
	return logger, nil
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return apperrors.NewConfigurationError("invalid log_level", err)
	}
	acfg, err := cfg.Analysis()
	if err != nil {
		return apperrors.NewConfigurationError("invalid analysis settings", err)
	}

	shutdownTracing, err := monitoring.InitTracing(ctx, cfg.Tracing(api.Version))
	if err != nil {
		return apperrors.NewConfigurationError("invalid tracing settings", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer apperrors.SafeClose(db, "database")
	repo := database.NewRepository(db)

	store := cache.NewStore(ctx, cfg.Redis())
	defer apperrors.SafeClose(store, "cache")

	metrics := monitoring.NewMetrics()
	members := identity.NewCachedIndex(repo, store, cfg.MemberCacheTTL())
	analyzer := analysis.NewAnalyzer(acfg, members, repo, repo, metrics)

	limiter := ratelimit.NewRateLimiter(cfg.RateLimit(), metrics)
	defer apperrors.SafeClose(limiter, "rate limiter")

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Options{
		Analyzer: analyzer,
		Metrics:  metrics,
		Logger:   logger,
		Limiter:  limiter,
		Pool:     db,
		Security: security.DefaultConfig(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", cfg.Addr, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server exited")
	return nil
}
