package realtime

import (
	"net/http"

	"github.com/okian/bracketd/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSnapshotter sends the current view to every client on connect.
func WithSnapshotter(s Snapshotter) Option {
	return func(h *Hub) { h.snapshot = s }
}

// WithSendBuffer sets how many views may wait for a slow client before new
// ones are dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithCheckOrigin overrides the upgrader's same-origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
