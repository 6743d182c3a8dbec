// Package service wires the bracket core to storage, the update pipeline
// and the realtime hub, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	updatequeue "github.com/okian/bracketd/internal/adapters/mq/queue"
	workerpool "github.com/okian/bracketd/internal/adapters/mq/worker"
	"github.com/okian/bracketd/internal/adapters/repository"
	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/dedupe"
	"github.com/okian/bracketd/internal/domain/levels"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/internal/domain/types"
	"github.com/okian/bracketd/pkg/logger"
	"github.com/okian/bracketd/pkg/metrics"
)

const (
	defaultQueueSize       = 10000
	defaultDedupeSize      = 50000
	defaultThreshold       = 0.5
	defaultMaxSearchLimit  = 20
	defaultShutdownTimeout = 10 * time.Second
)

// Publisher receives views as they replace the cached ones.
type Publisher interface {
	Publish(view types.BracketView)
}

// Service implements the API dependencies for the bracket system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *updatequeue.InMemoryQueue
	applier levels.Applier
	pool    *workerpool.Pool

	publisher Publisher

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	threshold       float64
	maxLevel        int
	maxSearchLimit  int
	shutdownTimeout time.Duration

	// Views, guarded by viewMu. sequences hands out one number per refresh;
	// views holds the newest view built for each tournament.
	viewMu    sync.Mutex
	sequences map[string]uint64
	views     map[string]types.BracketView

	// publishMu serializes Publish calls; published holds the last
	// sequence handed to the publisher per tournament.
	publishMu sync.Mutex
	published map[string]uint64

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		threshold:       defaultThreshold,
		maxSearchLimit:  defaultMaxSearchLimit,
		shutdownTimeout: defaultShutdownTimeout,
		sequences:       make(map[string]uint64),
		views:           make(map[string]types.BracketView),
		published:       make(map[string]uint64),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the pipeline and rebuilds the views of every stored
// tournament.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting bracket service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = updatequeue.NewInMemoryQueue(updatequeue.WithCapacity(s.queueSize))
	s.applier = levels.NewStoreApplier(s.store, levels.WithMaxLevel(s.maxLevel))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.applier, s,
		workerpool.WithLogger(s.logger),
	)
	// Workers outlive ctx so Stop can drain what was accepted.
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true

	tournaments, err := s.store.Tournaments(ctx)
	if err != nil {
		s.logger.Warn(ctx, "listing stored tournaments failed", logger.Error(err))
	}
	for _, id := range tournaments {
		if _, err := s.refresh(ctx, id); err != nil {
			s.logger.Warn(ctx, "initial refresh failed", logger.String("tournament_id", id), logger.Error(err))
		}
	}

	s.logger.Info(ctx, "bracket service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("tournaments", len(tournaments)),
	)
	return nil
}

// Stop drains queued updates, then closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping bracket service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "bracket service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// SeenAndRecord atomically checks if an update id was seen and records it if not.
// Returns true if the update was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordUpdateDuplicate()
	}
	return seen
}

// Unrecord removes an update id so a rejected update can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of ids held by the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a level update for asynchronous processing. Callers
// deduplicate through SeenAndRecord first. Returns false on backpressure.
func (s *Service) Enqueue(ctx context.Context, u model.LevelUpdate) bool {
	if !s.running() {
		return false
	}
	if u.TS.IsZero() {
		u.TS = s.now()
	}
	s.logger.Debug(ctx, "enqueueing level update",
		logger.String("update_id", u.UpdateID),
		logger.String("tournament_id", u.TournamentID),
		logger.Int("player_id", int(u.PlayerID)),
		logger.String("op", string(u.Op)),
	)
	return s.queue.Enqueue(ctx, u)
}

// SeedMatches replaces the first-round matches of a tournament and
// rebuilds its view.
func (s *Service) SeedMatches(ctx context.Context, tournamentID string, matches []bracket.Match) error {
	if !s.running() {
		return ErrNotStarted
	}
	if err := s.store.ReplaceMatches(ctx, tournamentID, matches); err != nil {
		return fmt.Errorf("seed %q: %w", tournamentID, err)
	}
	s.logger.Info(ctx, "tournament seeded",
		logger.String("tournament_id", tournamentID),
		logger.Int("matches", len(matches)),
	)
	return s.Refresh(ctx, tournamentID)
}

// Bracket returns the cached view of a tournament, building it on first use.
func (s *Service) Bracket(ctx context.Context, tournamentID string) (types.BracketView, error) {
	if !s.running() {
		return types.BracketView{}, ErrNotStarted
	}
	s.viewMu.Lock()
	v, ok := s.views[tournamentID]
	s.viewMu.Unlock()
	if ok {
		return v, nil
	}
	return s.refresh(ctx, tournamentID)
}

// Refresh rebuilds the view of a tournament from the store.
func (s *Service) Refresh(ctx context.Context, tournamentID string) error {
	_, err := s.refresh(ctx, tournamentID)
	return err
}

// refresh builds a view under a fresh sequence number. When a newer view
// has been cached meanwhile, the result is dropped and the newer one is
// returned.
func (s *Service) refresh(ctx context.Context, tournamentID string) (types.BracketView, error) {
	seq := s.nextSequence(tournamentID)
	start := time.Now()

	snap, err := s.store.Snapshot(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.forgetSequence(tournamentID, seq)
			return types.BracketView{}, fmt.Errorf("%q: %w", tournamentID, ErrNotFound)
		}
		return types.BracketView{}, fmt.Errorf("snapshot %q: %w", tournamentID, err)
	}

	res := bracket.Build(snap.Matches, snap.Levels)
	visible := bracket.VisibleRounds(res.Tree, snap.Levels, bracket.WithThreshold(s.threshold))
	verify := bracket.Verify(res.Tree)
	view := types.NewBracketView(uuid.NewString(), tournamentID, seq, res, visible, verify, s.now())

	current, kept := s.keep(view)
	if !kept {
		metrics.RecordStaleViewDiscarded()
		s.logger.Debug(ctx, "discarding stale view",
			logger.String("tournament_id", tournamentID),
			logger.Uint64("sequence", seq),
			logger.Uint64("current", current.Sequence),
		)
		return current, nil
	}

	metrics.RecordBracketRebuild(float64(time.Since(start).Milliseconds()))
	for _, w := range view.Warnings {
		metrics.RecordBracketWarning(string(w.Kind))
		s.logger.Warn(ctx, "bracket inconsistency",
			logger.String("tournament_id", tournamentID),
			logger.String("kind", string(w.Kind)),
			logger.Int("player_id", int(w.PlayerID)),
			logger.Int("round", w.Round),
			logger.Int("position", w.Position),
			logger.String("message", w.Message),
		)
	}

	s.publish(view)
	return view, nil
}

// publish hands view to the publisher unless a newer view has been cached
// or published in the meantime.
func (s *Service) publish(view types.BracketView) {
	if s.publisher == nil {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.viewMu.Lock()
	cur, ok := s.views[view.TournamentID]
	s.viewMu.Unlock()
	if ok && cur.Sequence > view.Sequence {
		metrics.RecordStaleViewDiscarded()
		return
	}
	if last, ok := s.published[view.TournamentID]; ok && last >= view.Sequence {
		metrics.RecordStaleViewDiscarded()
		return
	}
	s.published[view.TournamentID] = view.Sequence
	s.publisher.Publish(view)
}

func (s *Service) nextSequence(tournamentID string) uint64 {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	s.sequences[tournamentID]++
	return s.sequences[tournamentID]
}

// forgetSequence drops the counter of an unknown tournament so lookups of
// ids that were never seeded leave nothing behind. A counter moved on by a
// later refresh, or backing a cached view, is kept.
func (s *Service) forgetSequence(tournamentID string, seq uint64) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	if _, cached := s.views[tournamentID]; cached {
		return
	}
	if s.sequences[tournamentID] == seq {
		delete(s.sequences, tournamentID)
	}
}

// keep caches view unless a view with a higher sequence is already cached.
// It returns the cached view and whether view replaced it.
func (s *Service) keep(view types.BracketView) (types.BracketView, bool) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	if cur, ok := s.views[view.TournamentID]; ok && cur.Sequence > view.Sequence {
		return cur, false
	}
	s.views[view.TournamentID] = view
	return view, true
}

// SearchPlayers returns the players of a tournament whose names fuzzily
// match q, best match first. An empty q lists players by id.
func (s *Service) SearchPlayers(ctx context.Context, tournamentID, q string, limit int) ([]types.PlayerMatch, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	if limit <= 0 || limit > s.maxSearchLimit {
		limit = s.maxSearchLimit
	}

	snap, err := s.store.Snapshot(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%q: %w", tournamentID, ErrNotFound)
		}
		return nil, fmt.Errorf("snapshot %q: %w", tournamentID, err)
	}

	players := registeredPlayers(snap)
	q = strings.TrimSpace(q)

	out := make([]types.PlayerMatch, 0, min(limit, len(players)))
	if q == "" {
		for _, p := range players[:min(limit, len(players))] {
			out = append(out, types.PlayerMatch{ID: p.ID, Name: p.Name, Level: snap.Levels[p.ID]})
		}
		return out, nil
	}

	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	ranks := fuzzy.RankFindFold(q, names)
	sort.Stable(ranks)

	for _, r := range ranks {
		if len(out) == limit {
			break
		}
		p := players[r.OriginalIndex]
		out = append(out, types.PlayerMatch{ID: p.ID, Name: p.Name, Level: snap.Levels[p.ID], Distance: r.Distance})
	}
	return out, nil
}

// registeredPlayers lists every player named on a round-1 match, once, in
// ascending id order.
func registeredPlayers(snap model.Snapshot) []bracket.Player {
	byID := make(map[bracket.PlayerID]bracket.Player)
	for _, m := range snap.Matches {
		if m.Round != 1 {
			continue
		}
		for _, p := range slices.Concat(m.SideA, m.SideB) {
			if _, ok := byID[p.ID]; !ok {
				byID[p.ID] = p
			}
		}
	}
	out := make([]bracket.Player, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b bracket.Player) int { return int(a.ID) - int(b.ID) })
	return out
}

// PlayerPath returns where a player sits in the current view and the route
// left to the final.
func (s *Service) PlayerPath(ctx context.Context, tournamentID string, id bracket.PlayerID) (bracket.Path, error) {
	view, err := s.Bracket(ctx, tournamentID)
	if err != nil {
		return bracket.Path{}, err
	}
	return bracket.PlayerPath(bracket.Tree{Rounds: view.Rounds}, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"threshold":   s.threshold,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		tournaments := s.store.Count(ctx)

		s.viewMu.Lock()
		cached := len(s.views)
		s.viewMu.Unlock()

		stats["queueLength"] = queueLen
		stats["tournaments"] = tournaments
		stats["cachedViews"] = cached
		stats["seenUpdates"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTournaments(tournaments)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
