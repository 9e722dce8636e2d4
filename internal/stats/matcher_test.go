// internal/stats/matcher_test.go
package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github-loc-stats/internal/model"
)

func TestBelongsTo(t *testing.T) {
	tests := []struct {
		name   string
		commit model.CommitRecord
		want   bool
	}{
		{"author login", model.CommitRecord{AuthorLogin: "alice"}, true},
		{"author login ignores case", model.CommitRecord{AuthorLogin: "ALICE"}, true},
		{"committer login", model.CommitRecord{CommitterLogin: "Alice"}, true},
		{"noreply author email", model.CommitRecord{AuthorEmail: "123+Alice@users.noreply.github.com"}, true},
		{"committer email", model.CommitRecord{CommitterEmail: "alice@example.com"}, true},
		{"email substring of another name", model.CommitRecord{AuthorEmail: "malice@example.com"}, true},
		{"login must match exactly", model.CommitRecord{AuthorLogin: "alice2"}, false},
		{"someone else", model.CommitRecord{AuthorLogin: "bob", AuthorEmail: "bob@example.com"}, false},
		{"empty commit", model.CommitRecord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, belongsTo(tt.commit, "alice"))
		})
	}
}

func TestBelongsTo_EmptyIdentity(t *testing.T) {
	assert.False(t, belongsTo(model.CommitRecord{AuthorLogin: "", AuthorEmail: "x@y.z"}, ""))
}

func TestFilterCommits(t *testing.T) {
	commits := []model.CommitRecord{
		{SHA: "1", AuthorLogin: "alice"},
		{SHA: "2", AuthorLogin: "bob"},
		{SHA: "3", CommitterEmail: "alice@example.com"},
	}

	got := filterCommits(commits, "Alice")

	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].SHA)
	assert.Equal(t, "3", got[1].SHA)
	assert.Empty(t, filterCommits(commits, "carol"))
}
