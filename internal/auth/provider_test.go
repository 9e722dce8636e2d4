// internal/auth/provider_test.go
package auth

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "github-loc-stats/internal/errors"
	"github-loc-stats/internal/github"
	"github-loc-stats/internal/model"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := func(token string) (*github.Client, error) {
		return github.NewClient(token, logger, github.WithBaseURL(server.URL), github.WithRetryPolicy(1, 0))
	}
	return NewProvider(factory, logger)
}

func githubUserHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, `{"message": "Bad credentials"}`)
			return
		}
		fmt.Fprintln(w, `{"id": 7, "login": "alice"}`)
	})
}

func TestProvider_Authenticate(t *testing.T) {
	p := newTestProvider(t, githubUserHandler(t))

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
		r.Header.Set("Authorization", "Bearer good-token")

		session, err := p.Authenticate(r)

		require.NoError(t, err)
		assert.Equal(t, model.Identity("alice"), session.Identity)
		assert.NotNil(t, session.Source)
	})

	t.Run("token query parameter", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/v1/stats?token=good-token", nil)

		session, err := p.Authenticate(r)

		require.NoError(t, err)
		assert.Equal(t, model.Identity("alice"), session.Identity)
	})

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)

		_, err := p.Authenticate(r)

		assert.ErrorIs(t, err, custom_errors.ErrUnauthenticated)
	})

	t.Run("rejected token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
		r.Header.Set("Authorization", "Bearer stale-token")

		_, err := p.Authenticate(r)

		assert.ErrorIs(t, err, custom_errors.ErrUnauthenticated)
	})
}

func TestProvider_Authenticate_UpstreamFailure(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	r := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	r.Header.Set("Authorization", "Bearer good-token")

	_, err := p.Authenticate(r)

	require.Error(t, err)
	assert.NotErrorIs(t, err, custom_errors.ErrUnauthenticated)
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"bearer", "Bearer abc", "", "abc"},
		{"lowercase scheme", "bearer abc", "", "abc"},
		{"token scheme", "token abc", "", "abc"},
		{"basic is ignored", "Basic dXNlcjpwYXNz", "", ""},
		{"header wins over query", "Bearer abc", "xyz", "abc"},
		{"query fallback", "", "xyz", "xyz"},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/v1/stats"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			r := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, tokenFromRequest(r))
		})
	}
}
