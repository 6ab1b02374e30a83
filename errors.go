package livepreview

import (
	"errors"

	"github.com/pthm/livepreview/lib/config"
)

// Sentinel errors for engine operations.
var (
	ErrSubscriberNotFound = errors.New("livepreview: subscriber not found")
	ErrClosed             = errors.New("livepreview: engine closed")
	ErrNotHovering        = errors.New("livepreview: no field is hovered")
)

// Configuration errors, re-exported for callers that only import this
// package.
var (
	ErrMissingAPIKey      = config.ErrMissingAPIKey
	ErrMissingEnvironment = config.ErrMissingEnvironment
	ErrInvalidInput       = config.ErrInvalidInput
)

// IsConfigError checks if err is a missing or invalid required setting.
func IsConfigError(err error) bool {
	return config.IsConfigError(err)
}

// IsSubscriberNotFound checks if err reports an unknown subscriber.
func IsSubscriberNotFound(err error) bool {
	return errors.Is(err, ErrSubscriberNotFound)
}
