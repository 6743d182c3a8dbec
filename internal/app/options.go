package service

import (
	"time"

	"github.com/okian/bracketd/internal/adapters/repository"
	"github.com/okian/bracketd/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued level updates.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the update id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStore sets the snapshot store. The service closes it on Stop.
// Defaults to a MemoryStore created on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPublisher receives every view that replaces the cached one.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithVisibilityThreshold sets the progress at which a round is hidden.
func WithVisibilityThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t <= 1 {
			s.threshold = t
		}
	}
}

// WithMaxLevel caps the level an update may produce. Zero disables the cap.
func WithMaxLevel(level int) Option {
	return func(s *Service) {
		if level >= 0 {
			s.maxLevel = level
		}
	}
}

// WithMaxSearchLimit caps the number of players SearchPlayers returns.
func WithMaxSearchLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxSearchLimit = limit
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for queued updates.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for view timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
