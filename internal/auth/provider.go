// internal/auth/provider.go

// Package auth resolves the GitHub identity behind an incoming request.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	custom_errors "github-loc-stats/internal/errors"
	"github-loc-stats/internal/github"
	"github-loc-stats/internal/model"
	"github-loc-stats/internal/stats"
)

// Session is the authenticated caller of one request.
type Session struct {
	Identity model.Identity
	// Source reads GitHub on behalf of the caller, with the caller's token.
	Source stats.Source
}

// ClientFactory builds a GitHub client authenticated with token.
type ClientFactory func(token string) (*github.Client, error)

// Provider authenticates requests carrying a GitHub OAuth or personal access token.
type Provider struct {
	newClient ClientFactory
	logger    *slog.Logger
}

// NewProvider creates a new Provider instance.
func NewProvider(newClient ClientFactory, logger *slog.Logger) *Provider {
	return &Provider{
		newClient: newClient,
		logger:    logger,
	}
}

// Authenticate resolves the token of r to a GitHub login. It returns
// ErrUnauthenticated when no token is present or GitHub rejects it.
func (p *Provider) Authenticate(r *http.Request) (Session, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return Session{}, custom_errors.ErrUnauthenticated
	}

	client, err := p.newClient(token)
	if err != nil {
		return Session{}, fmt.Errorf("create github client: %w", err)
	}

	identity, err := client.GetAuthenticatedUser(r.Context())
	if err != nil {
		if github.IsUnauthorized(err) {
			p.logger.Info("GitHub rejected token", "error", err)
			return Session{}, custom_errors.ErrUnauthenticated
		}
		return Session{}, fmt.Errorf("resolve github user: %w", err)
	}
	if identity == "" {
		return Session{}, errors.Join(custom_errors.ErrUnauthenticated, errors.New("token has no login"))
	}

	return Session{Identity: identity, Source: client}, nil
}

// tokenFromRequest reads "Authorization: Bearer <token>" (or "token <token>"),
// falling back to the ?token= query parameter.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && (strings.EqualFold(parts[0], "bearer") || strings.EqualFold(parts[0], "token")) {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
