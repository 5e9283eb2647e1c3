package storage

import "errors"

const (
	// DefaultMaxItems is the retention cap applied when none is configured.
	DefaultMaxItems = 100

	DBFileName = "clipboard.db"
)

// Storage errors
var (
	ErrStorage     = errors.New("storage error")
	ErrInvalidType = errors.New("invalid content type")
)
