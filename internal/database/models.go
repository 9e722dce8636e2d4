// internal/database/models.go
package database

import (
	"encoding/json"
	"time"
)

type AggregationRun struct {
	ID             int64           `json:"id"`
	RunID          string          `json:"run_id"`
	Identity       string          `json:"identity"`
	Strategy       string          `json:"strategy"`
	TotalAdditions int64           `json:"total_additions"`
	TotalDeletions int64           `json:"total_deletions"`
	NetLines       int64           `json:"net_lines"`
	ReposProcessed int32           `json:"repos_processed"`
	ReposSkipped   int32           `json:"repos_skipped"`
	TotalRepos     int32           `json:"total_repos"`
	DurationMs     int64           `json:"duration_ms"`
	Result         json.RawMessage `json:"result"`
	ComputedAt     time.Time       `json:"computed_at"`
	CreatedAt      time.Time       `json:"created_at"`
}
