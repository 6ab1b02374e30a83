package protocol

import "errors"

// Sentinel errors for inbound parsing.
var (
	ErrForeignSender = errors.New("protocol: envelope from foreign sender")
	ErrMalformed     = errors.New("protocol: malformed envelope")
)

// IsIgnorable checks if err marks a value that should be dropped silently.
func IsIgnorable(err error) bool {
	return errors.Is(err, ErrForeignSender) || errors.Is(err, ErrMalformed)
}
