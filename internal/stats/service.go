// internal/stats/service.go
package stats

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github-loc-stats/internal/cache"
	custom_errors "github-loc-stats/internal/errors"
	"github-loc-stats/internal/fetcher"
	"github-loc-stats/internal/model"
)

const (
	defaultTimeout    = 2 * time.Minute
	defaultListingCap = 1000
	historyTimeout    = 5 * time.Second
)

// History records finished aggregation runs for diagnostics.
type History interface {
	RecordRun(ctx context.Context, result model.AggregateResult, strategy string, duration time.Duration) error
}

// Service answers stats requests from the cache, running the Fleet on a miss.
type Service struct {
	cache      *cache.Store
	fleet      *Fleet
	history    History
	logger     *slog.Logger
	timeout    time.Duration
	listingCap int
	limiter    *fetcher.Limiter
	group      singleflight.Group
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithHistory records every fresh run in h.
func WithHistory(h History) ServiceOption {
	return func(s *Service) {
		s.history = h
	}
}

// WithTimeout bounds one aggregation run, repository listing included.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLimiter makes the repository listing wait on l, the limiter shared with the strategy.
func WithLimiter(l *fetcher.Limiter) ServiceOption {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithListingCap bounds how many repositories are listed before truncation.
func WithListingCap(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.listingCap = n
		}
	}
}

// NewService creates a new Service instance.
func NewService(store *cache.Store, fleet *Fleet, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		cache:      store,
		fleet:      fleet,
		logger:     logger,
		timeout:    defaultTimeout,
		listingCap: defaultListingCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.listingCap < fleet.MaxRepos() {
		s.listingCap = fleet.MaxRepos()
	}
	return s
}

// GetStats returns the line counts of identity. A fresh cached result is
// returned as is unless forceRefresh is set; otherwise the repositories are
// aggregated from src and the cache entry is overwritten.
func (s *Service) GetStats(ctx context.Context, identity model.Identity, src Source, forceRefresh bool) (model.StatsResponse, error) {
	if identity == "" || src == nil {
		return model.StatsResponse{}, custom_errors.ErrUnauthenticated
	}

	if forceRefresh {
		s.logger.Info("Forced refresh requested", "identity", identity.String())
		ch := make(chan singleflight.Result, 1)
		go func() {
			result, err := s.compute(context.WithoutCancel(ctx), identity, src)
			ch <- singleflight.Result{Val: result, Err: err}
		}()
		return awaitRun(ctx, ch)
	}

	if result, age, ok := s.cache.Get(identity); ok {
		ms := age.Milliseconds()
		s.logger.Debug("Serving cached stats", "identity", identity.String(), "age_ms", ms)
		return model.StatsResponse{AggregateResult: result, Cached: true, CacheAge: &ms}, nil
	}

	// Concurrent misses for the same identity share one run. The run is detached
	// from the first caller so its disconnect does not fail the others.
	ch := s.group.DoChan(identity.Key(), func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), identity, src)
	})
	return awaitRun(ctx, ch)
}

// awaitRun waits for a detached run. A caller that goes away stops waiting
// but the run still completes and fills the cache.
func awaitRun(ctx context.Context, ch <-chan singleflight.Result) (model.StatsResponse, error) {
	select {
	case <-ctx.Done():
		return model.StatsResponse{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.StatsResponse{}, res.Err
		}
		return model.StatsResponse{AggregateResult: res.Val.(model.AggregateResult)}, nil
	}
}

// compute performs one aggregation run and stores the result. Nothing is
// cached when the repositories cannot be listed or the run hits its deadline.
func (s *Service) compute(ctx context.Context, identity model.Identity, src Source) (model.AggregateResult, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	repos, err := fetcher.Do(runCtx, s.limiter, func(ctx context.Context) ([]model.Repository, error) {
		return src.ListRepositories(ctx, s.listingCap)
	})
	if err != nil {
		s.logger.Error("Failed to list repositories", "identity", identity.String(), "error", err)
		return model.AggregateResult{}, &custom_errors.ErrListRepositories{Identity: identity.String(), Err: err}
	}

	result := s.fleet.Run(runCtx, src, identity, repos)
	// A run cut short by the deadline undercounts; serve it but let the next request retry.
	if runCtx.Err() != nil {
		s.logger.Warn("Aggregation run hit its deadline, result not cached",
			"identity", identity.String(), "skipped", result.RepositoriesSkipped, "timeout", s.timeout.String())
	} else {
		s.cache.Put(identity, result)
	}

	if s.history != nil {
		hctx, hcancel := context.WithTimeout(ctx, historyTimeout)
		defer hcancel()
		if err := s.history.RecordRun(hctx, result, s.fleet.strategy.Name(), time.Since(start)); err != nil {
			s.logger.Warn("Failed to record aggregation run", "identity", identity.String(), "error", err)
		}
	}
	return result, nil
}
