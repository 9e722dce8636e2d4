// internal/database/queries.go
package database

import (
	"context"
	"encoding/json"
	"time"
)

// Querier lists every query of the package.
type Querier interface {
	CreateAggregationRun(ctx context.Context, arg CreateAggregationRunParams) (AggregationRun, error)
	ListAggregationRuns(ctx context.Context, arg ListAggregationRunsParams) ([]AggregationRun, error)
}

var _ Querier = (*Queries)(nil)

const aggregationRunColumns = `id, run_id, identity, strategy, total_additions, total_deletions, net_lines,
	repos_processed, repos_skipped, total_repos, duration_ms, result, computed_at, created_at`

const createAggregationRun = `-- name: CreateAggregationRun :one
INSERT INTO aggregation_runs (
	run_id, identity, strategy, total_additions, total_deletions, net_lines,
	repos_processed, repos_skipped, total_repos, duration_ms, result, computed_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)
RETURNING ` + aggregationRunColumns

type CreateAggregationRunParams struct {
	RunID          string
	Identity       string
	Strategy       string
	TotalAdditions int64
	TotalDeletions int64
	NetLines       int64
	ReposProcessed int32
	ReposSkipped   int32
	TotalRepos     int32
	DurationMs     int64
	Result         json.RawMessage
	ComputedAt     time.Time
}

func (q *Queries) CreateAggregationRun(ctx context.Context, arg CreateAggregationRunParams) (AggregationRun, error) {
	row := q.db.QueryRow(ctx, createAggregationRun,
		arg.RunID,
		arg.Identity,
		arg.Strategy,
		arg.TotalAdditions,
		arg.TotalDeletions,
		arg.NetLines,
		arg.ReposProcessed,
		arg.ReposSkipped,
		arg.TotalRepos,
		arg.DurationMs,
		arg.Result,
		arg.ComputedAt,
	)
	var i AggregationRun
	err := row.Scan(
		&i.ID,
		&i.RunID,
		&i.Identity,
		&i.Strategy,
		&i.TotalAdditions,
		&i.TotalDeletions,
		&i.NetLines,
		&i.ReposProcessed,
		&i.ReposSkipped,
		&i.TotalRepos,
		&i.DurationMs,
		&i.Result,
		&i.ComputedAt,
		&i.CreatedAt,
	)
	return i, err
}

const listAggregationRuns = `-- name: ListAggregationRuns :many
SELECT ` + aggregationRunColumns + `
FROM aggregation_runs
WHERE identity = $1
ORDER BY computed_at DESC, id DESC
LIMIT $2`

type ListAggregationRunsParams struct {
	Identity string
	Limit    int32
}

func (q *Queries) ListAggregationRuns(ctx context.Context, arg ListAggregationRunsParams) ([]AggregationRun, error) {
	rows, err := q.db.Query(ctx, listAggregationRuns, arg.Identity, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []AggregationRun{}
	for rows.Next() {
		var i AggregationRun
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Identity,
			&i.Strategy,
			&i.TotalAdditions,
			&i.TotalDeletions,
			&i.NetLines,
			&i.ReposProcessed,
			&i.ReposSkipped,
			&i.TotalRepos,
			&i.DurationMs,
			&i.Result,
			&i.ComputedAt,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
