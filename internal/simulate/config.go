// Package simulate drives a running bracketd over HTTP: it seeds a
// tournament, plays it out round by round through level updates and checks
// the served bracket against a locally built one.
package simulate

import (
	"fmt"
	"time"

	"github.com/okian/bracketd/pkg/logger"
)

// Config holds configuration for a simulated tournament.
type Config struct {
	BaseURL      string        // Base URL of the service
	Tournament   string        // Tournament id; generated when empty
	Players      int           // Number of players, a power of two >= 8
	Workers      int           // Concurrent update submissions
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between bracket polls
	RoundTimeout time.Duration // How long a round may take to show up
	Threshold    float64       // Visibility threshold the service runs with
	Seed         int64         // Seed for picking winners
	Verbose      bool          // Log every round
	Logger       logger.Logger // Defaults to the global logger
}

// Validate checks that the tournament can be played out.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Players < minPlayers || c.Players&(c.Players-1) != 0:
		return fmt.Errorf("%w: players must be a power of two >= %d, got %d", ErrInvalidConfig, minPlayers, c.Players)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Threshold <= 0 || c.Threshold > 1:
		return fmt.Errorf("%w: threshold must be in (0,1]", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Tournament       string
	Players          int
	Rounds           int
	UpdatesSubmitted int
	UpdatesAccepted  int
	UpdatesDuplicate int
	UpdatesFailed    int
	BracketPolls     int
	Champion         int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
