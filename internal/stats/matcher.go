// internal/stats/matcher.go
package stats

import (
	"strings"

	"github-loc-stats/internal/model"
)

// belongsTo reports whether commit was authored or committed by identity.
// Logins must match exactly (ignoring case). Emails only need to contain the
// login, which catches noreply addresses such as 123+alice@users.noreply.github.com
// but also matches "alice" inside "malice@example.com".
func belongsTo(commit model.CommitRecord, identity model.Identity) bool {
	key := identity.Key()
	if key == "" {
		return false
	}

	if strings.EqualFold(commit.AuthorLogin, key) || strings.EqualFold(commit.CommitterLogin, key) {
		return true
	}
	return strings.Contains(strings.ToLower(commit.AuthorEmail), key) ||
		strings.Contains(strings.ToLower(commit.CommitterEmail), key)
}

func filterCommits(commits []model.CommitRecord, identity model.Identity) []model.CommitRecord {
	var out []model.CommitRecord
	for _, c := range commits {
		if belongsTo(c, identity) {
			out = append(out, c)
		}
	}
	return out
}
