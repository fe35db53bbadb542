package unifeed

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid announcement input")
	ErrMissingSchedule = errors.New("scheduled date is required")
	ErrInvalidTime     = errors.New("time must be 24-hour HH:MM")
	ErrKeyNotFound     = errors.New("key not found")
	ErrUnknownBackend  = errors.New("unknown storage backend")
)
