// internal/database/history.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github-loc-stats/internal/model"
)

// History stores a summary of every aggregation run. It is write-mostly
// diagnostics: the results cache never reads from it.
type History struct {
	q Querier
}

// NewHistory creates a History backed by q.
func NewHistory(q Querier) *History {
	return &History{q: q}
}

// RecordRun persists one finished aggregation run.
func (h *History) RecordRun(ctx context.Context, result model.AggregateResult, strategy string, duration time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode aggregation result: %w", err)
	}

	_, err = h.q.CreateAggregationRun(ctx, CreateAggregationRunParams{
		RunID:          uuid.NewString(),
		Identity:       result.Identity.Key(),
		Strategy:       strategy,
		TotalAdditions: int64(result.TotalAdditions),
		TotalDeletions: int64(result.TotalDeletions),
		NetLines:       int64(result.NetLines),
		ReposProcessed: int32(result.RepositoriesProcessed),
		ReposSkipped:   int32(result.RepositoriesSkipped),
		TotalRepos:     int32(result.TotalRepositoryCount),
		DurationMs:     duration.Milliseconds(),
		Result:         payload,
		ComputedAt:     result.ComputedAt,
	})
	if err != nil {
		return fmt.Errorf("insert aggregation run: %w", err)
	}
	return nil
}

// ListRuns returns the latest runs of identity, newest first.
func (h *History) ListRuns(ctx context.Context, identity model.Identity, limit int) ([]AggregationRun, error) {
	return h.q.ListAggregationRuns(ctx, ListAggregationRunsParams{
		Identity: identity.Key(),
		Limit:    int32(limit),
	})
}
