package simulate

import (
	"errors"
	"time"
)

const (
	minPlayers = 8

	DefaultPollInterval = 50 * time.Millisecond
	DefaultRoundTimeout = 30 * time.Second
)

var (
	ErrInvalidConfig  = errors.New("invalid simulation config")
	ErrUnexpectedView = errors.New("served bracket does not match the simulation")
	ErrTimeout        = errors.New("timed out waiting for the bracket")
)
