// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/bracketd/internal/app"
	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/dedupe"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a level update for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, u model.LevelUpdate) bool

	SeedMatches(ctx context.Context, tournamentID string, matches []bracket.Match) error

	// Read operations expose bracket data.
	Bracket(ctx context.Context, tournamentID string) (types.BracketView, error)
	SearchPlayers(ctx context.Context, tournamentID, q string, limit int) ([]types.PlayerMatch, error)
	PlayerPath(ctx context.Context, tournamentID string, id bracket.PlayerID) (bracket.Path, error)
}

// Subscriber upgrades a request to a live bracket feed.
type Subscriber interface {
	ServeWS(w http.ResponseWriter, r *http.Request, tournamentID string)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	matchesHandler *MatchesHandler
	levelsHandler  *LevelsHandler
	bracketHandler *BracketHandler

	limiter    *RateLimiter
	subscriber Subscriber
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimiter limits the write endpoints per client IP.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithSubscriber enables the websocket route.
func WithSubscriber(sub Subscriber) Option {
	return func(s *Server) { s.subscriber = sub }
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		matchesHandler: NewMatchesHandler(deps),
		levelsHandler:  NewLevelsHandler(deps),
		bracketHandler: NewBracketHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.statsHandler.limiter = s.limiter
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	limit := func(next http.HandlerFunc, endpoint string) http.HandlerFunc {
		if s.limiter == nil {
			return next
		}
		return s.limiter.Middleware(next, endpoint)
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("PUT /tournaments/{id}/matches", MetricsMiddleware(limit(s.matchesHandler.HandlePutMatches, "matches"), "matches"))
	mux.HandleFunc("POST /tournaments/{id}/levels", MetricsMiddleware(limit(s.levelsHandler.HandlePostLevel, "levels"), "levels"))
	mux.HandleFunc("GET /tournaments/{id}/bracket", MetricsMiddleware(s.bracketHandler.HandleGetBracket, "bracket"))
	mux.HandleFunc("GET /tournaments/{id}/players", MetricsMiddleware(s.bracketHandler.HandleSearchPlayers, "players"))
	mux.HandleFunc("GET /tournaments/{id}/players/{player}/path", MetricsMiddleware(s.bracketHandler.HandlePlayerPath, "path"))

	if s.subscriber != nil {
		mux.HandleFunc("GET /tournaments/{id}/ws", MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.subscriber.ServeWS(w, r, r.PathValue("id"))
		}, "ws"))
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeUpstreamError maps errors returned by Dependencies to a response.
func writeUpstreamError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, bracket.ErrPlayerNotSeeded):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
