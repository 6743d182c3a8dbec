package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// MongoOption applies a configuration option to the MongoStore.
type MongoOption func(*MongoStore)

// WithMongoTimeout bounds connect, ping and disconnect.
func WithMongoTimeout(d time.Duration) MongoOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}
