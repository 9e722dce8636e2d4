// cmd/service/main.go
package main

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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-loc-stats/internal/api"
	"github-loc-stats/internal/auth"
	"github-loc-stats/internal/cache"
	"github-loc-stats/internal/config"
	"github-loc-stats/internal/database"
	"github-loc-stats/internal/fetcher"
	"github-loc-stats/internal/github"
	"github-loc-stats/internal/stats"
)

const (
	migrationsSource = "file://migrations"
	shutdownTimeout  = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully", "strategy", cfg.StatsStrategy, "history", cfg.HistoryEnabled())

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Optional run history
	var (
		serviceOpts []stats.ServiceOption
		lister      api.HistoryLister
	)
	if cfg.HistoryEnabled() {
		dbpool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbpool.Close()
		logger.Info("Database connection established")

		if err := runMigrations(migrationsSource, cfg.DBURL); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info("Database migrations applied successfully")

		history := database.NewHistory(database.New(dbpool))
		serviceOpts = append(serviceOpts, stats.WithHistory(history))
		lister = history
	}

	// 5. Initialize application components
	svc, err := newStatsService(cfg, logger, serviceOpts...)
	if err != nil {
		return err
	}
	provider := auth.NewProvider(clientFactory(cfg, logger), logger)
	router := api.NewRouter(provider, svc, lister, logger, cfg.AggregationTimeout+10*time.Second)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Start the HTTP server in a separate goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 7. Wait for shutdown signal
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Exiting.")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// newStatsService wires the fetcher, the aggregation strategy, the fleet and the cache.
// One limiter bounds every GitHub call of every run in the process.
func newStatsService(cfg *config.Config, logger *slog.Logger, opts ...stats.ServiceOption) (*stats.Service, error) {
	limiter := fetcher.NewLimiter(cfg.FetchConcurrency, logger)
	strategy, err := stats.NewStrategy(cfg.StatsStrategy, limiter, cfg.MaxCommitsPerRepo, cfg.ServerSideAuthorFilter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats strategy: %w", err)
	}
	fleet := stats.NewFleet(strategy, logger,
		stats.WithMaxRepos(cfg.MaxRepos),
		stats.WithRepoConcurrency(cfg.RepoConcurrency),
	)
	opts = append(opts, stats.WithTimeout(cfg.AggregationTimeout), stats.WithLimiter(limiter))
	return stats.NewService(cache.New(cfg.CacheTTL), fleet, logger, opts...), nil
}

// clientFactory builds one GitHub client per caller token.
func clientFactory(cfg *config.Config, logger *slog.Logger) auth.ClientFactory {
	return func(token string) (*github.Client, error) {
		opts := []github.Option{github.WithRetryPolicy(cfg.MaxRetries, cfg.MaxRateLimitWait)}
		if cfg.GithubAPIURL != "" {
			opts = append(opts, github.WithEnterpriseURL(cfg.GithubAPIURL))
		}
		return github.NewClient(token, logger, opts...)
	}
}

func runMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
