// Package worker drains level updates, applies them and refreshes brackets.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/pkg/logger"
	"github.com/okian/bracketd/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Update is what workers read off the queue.
type Update = model.LevelUpdate

// Applier mutates the stored level for an update.
type Applier interface {
	Apply(ctx context.Context, u Update) (int, error)
}

// Refresher rebuilds the bracket of a tournament after its levels changed.
type Refresher interface {
	Refresh(ctx context.Context, tournamentID string) error
}

// Queue defines how workers receive updates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Update
}

// Worker processes updates until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, the queue closes or
	// Shutdown is called.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	applier   Applier
	refresher Refresher
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, applier Applier, refresher Refresher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		applier:   applier,
		refresher: refresher,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	updates := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := w.process(ctx, u); err != nil {
				w.logger.Error(ctx, "error processing level update",
					logger.String("update_id", u.UpdateID),
					logger.String("tournament_id", u.TournamentID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker without draining the queue.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, u Update) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	lvl, err := w.applier.Apply(ctx, u)
	if err != nil {
		metrics.RecordUpdateFailed("apply")
		metrics.RecordWorkerError()
		return fmt.Errorf("apply update %s: %w", u.UpdateID, err)
	}
	metrics.RecordUpdateProcessed()
	w.logger.Debug(ctx, "level updated",
		logger.String("tournament_id", u.TournamentID),
		logger.Int("player_id", int(u.PlayerID)),
		logger.Int("level", lvl),
	)

	if err := w.refresher.Refresh(ctx, u.TournamentID); err != nil {
		metrics.RecordUpdateFailed("refresh")
		metrics.RecordWorkerError()
		return fmt.Errorf("refresh %s: %w", u.TournamentID, err)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	cancel  context.CancelFunc
}

// NewPool creates a new worker pool. A workerCount below 1 picks a default
// based on the number of CPUs.
func NewPool(workerCount int, queue Queue, applier Applier, refresher Refresher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}
	for i := range workerCount {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = NewInMemoryWorker(queue, applier, refresher, append(opts, WithName(name))...)
	}

	// the pool logs through the same base logger as its workers
	base := &InMemoryWorker{}
	for _, opt := range opts {
		opt(base)
	}
	if base.logger == nil {
		base.logger = logger.Get()
	}
	p.logger = base.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start runs every worker on a child of ctx. Shutdown cancels it once the
// queue is drained.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain what is
// left. Workers still busy when ctx or the pool timeout expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
