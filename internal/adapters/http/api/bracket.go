package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/types"
)

// BracketDependencies defines the interface for bracket reads.
type BracketDependencies interface {
	Bracket(ctx context.Context, tournamentID string) (types.BracketView, error)
	SearchPlayers(ctx context.Context, tournamentID, q string, limit int) ([]types.PlayerMatch, error)
	PlayerPath(ctx context.Context, tournamentID string, id bracket.PlayerID) (bracket.Path, error)
}

// BracketHandler handles bracket and player reads.
type BracketHandler struct {
	deps BracketDependencies
}

// NewBracketHandler creates a new bracket handler.
func NewBracketHandler(deps BracketDependencies) *BracketHandler {
	return &BracketHandler{deps: deps}
}

// HandleGetBracket handles GET /tournaments/{id}/bracket requests.
func (h *BracketHandler) HandleGetBracket(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_bracket"
	view, err := h.deps.Bracket(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSearchPlayers handles GET /tournaments/{id}/players?q=&limit= requests.
// A missing limit uses the service default.
func (h *BracketHandler) HandleSearchPlayers(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_players"
	q := r.URL.Query()

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	hits, err := h.deps.SearchPlayers(r.Context(), r.PathValue("id"), q.Get("q"), limit)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// HandlePlayerPath handles GET /tournaments/{id}/players/{player}/path requests.
func (h *BracketHandler) HandlePlayerPath(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_path"
	pid, err := strconv.Atoi(r.PathValue("player"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	path, err := h.deps.PlayerPath(r.Context(), r.PathValue("id"), bracket.PlayerID(pid))
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}
