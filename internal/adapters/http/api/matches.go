package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/bracketd/internal/domain/bracket"
)

const maxMatchesBody = 4 << 20

// MatchesDependencies defines the interface for seeding a tournament.
type MatchesDependencies interface {
	SeedMatches(ctx context.Context, tournamentID string, matches []bracket.Match) error
}

// MatchesHandler handles first-round seeding.
type MatchesHandler struct {
	deps MatchesDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchesDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// matchesRequest mirrors the OpenAPI schema for PUT /tournaments/{id}/matches.
type matchesRequest struct {
	Matches []bracket.Match `json:"matches"`
}

// HandlePutMatches handles PUT /tournaments/{id}/matches requests.
func (h *MatchesHandler) HandlePutMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_matches"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var req matchesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMatchesBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Matches == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing matches")))
		return
	}

	if err := h.deps.SeedMatches(r.Context(), id, req.Matches); err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
