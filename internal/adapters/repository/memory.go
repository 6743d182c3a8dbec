package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

type tournament struct {
	matches []bracket.Match
	levels  map[bracket.PlayerID]int
}

// MemoryStore is an in-memory Store guarded by a single RWMutex.
type MemoryStore struct {
	mu          sync.RWMutex
	tournaments map[string]*tournament

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		tournaments:           make(map[string]*tournament),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) ReplaceMatches(_ context.Context, tournamentID string, matches []bracket.Match) error {
	if err := validateTournamentID(tournamentID); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		t = &tournament{levels: make(map[bracket.PlayerID]int)}
		s.tournaments[tournamentID] = t
	}
	t.matches = cloneMatches(matches)
	for _, m := range matches {
		for _, p := range sidePlayers(m) {
			if _, known := t.levels[p.ID]; !known {
				t.levels[p.ID] = 0
			}
		}
	}
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context, tournamentID string) (model.Snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds())) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("%s: %w", tournamentID, ErrNotFound)
	}
	return model.Snapshot{
		TournamentID: tournamentID,
		Matches:      cloneMatches(t.matches),
		Levels:       maps.Clone(t.levels),
		TakenAt:      time.Now(),
	}, nil
}

func (s *MemoryStore) AdjustLevel(_ context.Context, tournamentID string, id bracket.PlayerID, delta int) (int, error) {
	return s.mutateLevel(tournamentID, id, func(lvl int) int { return lvl + delta })
}

func (s *MemoryStore) SetLevel(_ context.Context, tournamentID string, id bracket.PlayerID, level int) (int, error) {
	return s.mutateLevel(tournamentID, id, func(int) int { return level })
}

func (s *MemoryStore) mutateLevel(tournamentID string, id bracket.PlayerID, next func(int) int) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	var lvl int
	if ok {
		lvl, ok = t.levels[id]
	}
	if !ok {
		return 0, fmt.Errorf("player %d in %s: %w", id, tournamentID, ErrPlayerNotFound)
	}
	lvl = max(next(lvl), 0)
	t.levels[id] = lvl
	return lvl, nil
}

func (s *MemoryStore) Tournaments(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tournaments)), nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tournaments)
}

// Close stops the metrics updater. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateTournaments(s.Count(ctx))
			}
		}
	}()
}
