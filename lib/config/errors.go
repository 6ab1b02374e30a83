package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration operations.
var (
	ErrConfig             = errors.New("config: invalid configuration")
	ErrMissingAPIKey      = fmt.Errorf("%w: api key is required", ErrConfig)
	ErrMissingEnvironment = fmt.Errorf("%w: environment is required", ErrConfig)
	ErrInvalidInput       = errors.New("config: query param must be an object")
	ErrUnknownPath        = errors.New("config: unknown path")
	ErrInvalidValue       = errors.New("config: invalid value")
)

// IsConfigError checks if err is a missing or invalid required field.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsInvalidInput checks if err reports input that is not key/value shaped.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
