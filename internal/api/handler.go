// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-loc-stats/internal/auth"
	"github-loc-stats/internal/database"
	custom_errors "github-loc-stats/internal/errors"
	"github-loc-stats/internal/model"
	"github-loc-stats/internal/stats"
)

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (auth.Session, error)
}

// StatsService computes or looks up the line counts of an identity.
type StatsService interface {
	GetStats(ctx context.Context, identity model.Identity, src stats.Source, forceRefresh bool) (model.StatsResponse, error)
}

// HistoryLister lists past aggregation runs.
type HistoryLister interface {
	ListRuns(ctx context.Context, identity model.Identity, limit int) ([]database.AggregationRun, error)
}

type sessionKey struct{}

// Handler is the container for API dependencies.
type Handler struct {
	authn   Authenticator
	stats   StatsService
	history HistoryLister
	logger  *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
// The history route is only mounted when history is non-nil.
func NewRouter(authn Authenticator, svc StatsService, history HistoryLister, logger *slog.Logger, requestTimeout time.Duration) http.Handler {
	h := &Handler{
		authn:   authn,
		stats:   svc,
		history: history,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/api/github-stats", h.getStats)
		r.Route("/v1/stats", func(r chi.Router) {
			r.Get("/", h.getStats)
			if history != nil {
				r.Get("/history", h.getHistory)
			}
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the caller and stores the session in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.authn.Authenticate(r)
		if err != nil {
			if errors.Is(err, custom_errors.ErrUnauthenticated) {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			h.logger.Error("Failed to authenticate request", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to resolve GitHub user")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}

// getStats handles the request for the caller's line counts.
// GET /v1/stats?refresh=true
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'refresh' parameter. Must be true or false.")
			return
		}
		refresh = parsed
	}

	resp, err := h.stats.GetStats(r.Context(), session.Identity, session.Source, refresh)
	if err != nil {
		var listErr *custom_errors.ErrListRepositories
		switch {
		case errors.Is(err, custom_errors.ErrUnauthenticated):
			respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		case errors.As(err, &listErr):
			h.logger.Error("Failed to list repositories", "identity", session.Identity.String(), "error", err)
			respondWithError(w, http.StatusInternalServerError, err.Error())
		case r.Context().Err() != nil:
			// The request gave up waiting; the run carries on in the background.
			respondWithError(w, http.StatusGatewayTimeout, "Stats are still being computed, try again shortly")
		default:
			h.logger.Error("Failed to fetch GitHub stats", "identity", session.Identity.String(), "error", err)
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// getHistory handles the request for the caller's past aggregation runs.
// GET /v1/stats/history?limit=N
func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "10" // Default limit
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return
	}

	runs, err := h.history.ListRuns(r.Context(), session.Identity, limit)
	if err != nil {
		h.logger.Error("Failed to list aggregation runs", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, runs)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
