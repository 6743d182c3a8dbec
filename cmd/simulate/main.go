// Command simulate plays a generated tournament against a running bracketd
// and checks the bracket it serves.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/okian/bracketd/internal/simulate"
	"github.com/okian/bracketd/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers     = 64
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultThreshold   = 0.5
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		tournament = flag.String("tournament", "", "Tournament id (default: random uuid)")
		players    = flag.Int("players", defaultPlayers, "Number of players, a power of two >= 8")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submissions")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		roundWait  = flag.Duration("round-timeout", simulate.DefaultRoundTimeout, "How long a round may take to show up")
		threshold  = flag.Float64("threshold", defaultThreshold, "Visibility threshold the service runs with")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Seed for picking winners")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:      *baseURL,
		Tournament:   *tournament,
		Players:      *players,
		Workers:      *workers,
		Timeout:      *timeout,
		RoundTimeout: *roundWait,
		Threshold:    *threshold,
		Seed:         *seed,
		Verbose:      *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
