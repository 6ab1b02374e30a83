package encoding

import "errors"

// Sentinel errors for frame decoding.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid frame format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
	ErrEmptyKey         = errors.New("encoding: signing key is empty")
)

// IsTampered checks if err reports a frame that failed verification.
func IsTampered(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}
