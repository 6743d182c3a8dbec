package api

import "net/http"

// StatsProvider reports queue, dedupe and cache counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
	limiter  *RateLimiter
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats writes the provider's counters as a flat JSON object.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := make(map[string]interface{})
	for k, v := range h.provider.GetStats() {
		stats[k] = v
	}
	if h.limiter != nil {
		stats["rateLimitedClients"] = h.limiter.Visitors()
	}
	writeJSON(w, http.StatusOK, stats)
}
