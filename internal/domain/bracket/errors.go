package bracket

import "errors"

// Sentinel errors for topology queries. Build and VisibleRounds never fail.
var (
	ErrEmptyTree       = errors.New("bracket has no rounds")
	ErrPlayerNotSeeded = errors.New("player is not seeded in round 1")
)
