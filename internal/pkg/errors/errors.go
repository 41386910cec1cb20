package errors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalid        = errors.New("invalid")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrNotImplemented = errors.New("not implemented")
	ErrMissingContent = errors.New("stored content missing")

	ErrShareRevoked   = errors.New("share revoked")
	ErrShareExpired   = errors.New("share expired")
	ErrShareExhausted = errors.New("share has no uses left")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
