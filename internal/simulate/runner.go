package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/internal/domain/types"
	"github.com/okian/bracketd/pkg/logger"
)

const maxSubmitAttempts = 5

// Run seeds a tournament, plays it to a champion and verifies the served
// bracket.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Tournament == "" {
		cfg.Tournament = uuid.NewString()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = DefaultRoundTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get().Named("simulate")
	}

	stats := &Stats{Tournament: cfg.Tournament, Players: cfg.Players, StartTime: time.Now()}
	log.Info(ctx, "starting bracket simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("tournament", cfg.Tournament),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	c := newClient(cfg.BaseURL, cfg.Tournament, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plan := NewPlan(cfg.Players, rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Players)))) //nolint:gosec // reproducible draws
	if err := c.seed(ctx, plan.Matches); err != nil {
		return stats, fmt.Errorf("seeding failed: %w", err)
	}

	var view types.BracketView
	for r := range plan.Winners {
		updates := plan.Updates(cfg.Tournament, r)
		if err := submitRound(ctx, c, cfg, updates, stats); err != nil {
			return stats, fmt.Errorf("round %d submission failed: %w", r+1, err)
		}
		if r == 0 {
			// Replaying an accepted update must be absorbed by deduplication.
			if err := submitRound(ctx, c, cfg, updates[:1], stats); err != nil {
				return stats, fmt.Errorf("duplicate replay failed: %w", err)
			}
		}

		v, err := awaitRound(ctx, c, cfg, plan.Winners[r], r+1, stats)
		if err != nil {
			return stats, fmt.Errorf("round %d: %w", r+1, err)
		}
		view = v
		stats.Rounds++
		if cfg.Verbose {
			log.Info(ctx, "round settled",
				logger.Int("round", r+1),
				logger.Int("winners", len(plan.Winners[r])),
				logger.Any("visible_rounds", v.VisibleRounds))
		}
	}

	if err := verify(plan, cfg.Threshold, view); err != nil {
		return stats, err
	}
	stats.Champion = int(plan.Champion())

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "simulation completed",
		logger.String("tournament", stats.Tournament),
		logger.Int("champion", stats.Champion),
		logger.Int("rounds", stats.Rounds),
		logger.Int("submitted", stats.UpdatesSubmitted),
		logger.Int("accepted", stats.UpdatesAccepted),
		logger.Int("duplicate", stats.UpdatesDuplicate),
		logger.Int("failed", stats.UpdatesFailed),
		logger.Int("polls", stats.BracketPolls),
		logger.String("duration", stats.Duration.String()))
	return stats, nil
}

// submitRound posts updates concurrently, retrying on backpressure.
func submitRound(ctx context.Context, c *client, cfg *Config, updates []model.LevelUpdate, stats *Stats) error {
	var accepted, duplicate, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, u := range updates {
		g.Go(func() error {
			for attempt := 1; ; attempt++ {
				code, err := c.submit(gctx, u)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					return fmt.Errorf("update %s: %w", u.UpdateID, err)
				}
				switch code {
				case http.StatusAccepted:
					atomic.AddInt64(&accepted, 1)
					return nil
				case http.StatusOK:
					atomic.AddInt64(&duplicate, 1)
					return nil
				case http.StatusTooManyRequests:
					if attempt < maxSubmitAttempts {
						if err := sleep(gctx, cfg.PollInterval*time.Duration(attempt)); err != nil {
							return err
						}
						continue
					}
				}
				atomic.AddInt64(&failed, 1)
				return fmt.Errorf("update %s: status %d", u.UpdateID, code)
			}
		})
	}
	err := g.Wait()

	stats.UpdatesSubmitted += len(updates)
	stats.UpdatesAccepted += int(accepted)
	stats.UpdatesDuplicate += int(duplicate)
	stats.UpdatesFailed += int(failed)
	return err
}

// awaitRound polls the bracket until every winner shows up in round next.
func awaitRound(ctx context.Context, c *client, cfg *Config, winners []bracket.PlayerID, next int, stats *Stats) (types.BracketView, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.RoundTimeout)
	defer cancel()

	for {
		v, err := c.bracket(ctx)
		stats.BracketPolls++
		if err == nil && advanced(v, winners, next) {
			return v, nil
		}
		if err := sleep(ctx, cfg.PollInterval); err != nil {
			return v, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
	}
}

func advanced(v types.BracketView, winners []bracket.PlayerID, round int) bool {
	tree := bracket.Tree{Rounds: v.Rounds}
	for _, id := range winners {
		if _, ok := tree.Locate(id, round); !ok {
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
