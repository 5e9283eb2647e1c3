package history

import (
	"errors"

	"clipboard-history/internal/codec"
	"clipboard-history/internal/storage"
)

var (
	// ErrNotFound is returned when an operation names an ID that is not in history.
	ErrNotFound = errors.New("entry not found")

	// ErrCodec marks clipboard content that was skipped instead of ingested.
	ErrCodec = codec.ErrCodec

	// ErrStorage marks a failed write or read of the backing store. The
	// in-memory history keeps the mutation and may lead disk until the next
	// successful write.
	ErrStorage = storage.ErrStorage
)
