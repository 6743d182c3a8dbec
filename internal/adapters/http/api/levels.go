package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/bracketd/internal/domain/dedupe"
	"github.com/okian/bracketd/internal/domain/model"
)

const maxLevelBody = 64 << 10

// LevelsDependencies defines the interface for level update processing.
type LevelsDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, u model.LevelUpdate) bool
}

// LevelsHandler handles level update requests.
type LevelsHandler struct {
	deps LevelsDependencies
}

// NewLevelsHandler creates a new levels handler.
func NewLevelsHandler(deps LevelsDependencies) *LevelsHandler {
	return &LevelsHandler{deps: deps}
}

// HandlePostLevel handles POST /tournaments/{id}/levels requests.
func (h *LevelsHandler) HandlePostLevel(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_level"
	id := strings.TrimSpace(r.PathValue("id"))

	var u model.LevelUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLevelBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if u.TournamentID != "" && u.TournamentID != id {
		err := fmt.Errorf("tournament_id %q does not match path %q", u.TournamentID, id)
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	u.TournamentID = id
	if err := u.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), u.UpdateID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), u); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), u.UpdateID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
