package storage

import (
	"clipboard-history/pkg/types"
	"context"
)

// Storage defines the durable copy of the clipboard history.
// Implementations own the backing file and are its only reader and writer.
type Storage interface {
	// Upsert inserts or replaces an entry by ID, then prunes everything
	// beyond the MaxItems most recent rows.
	Upsert(ctx context.Context, entry types.Entry) error

	// QueryRecent returns up to limit entries, newest first. limit <= 0 means no limit.
	QueryRecent(ctx context.Context, limit int) ([]types.Entry, error)

	// Delete removes an entry. Deleting a missing ID is not an error.
	Delete(ctx context.Context, ids ...string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Stats reports size information about the backing store.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying handle.
	Close() error
}

// Stats describes the backing store.
type Stats struct {
	Count      int64  `json:"count"`
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	MaxEntries int    `json:"max_entries"`
}

// Config holds storage configuration
type Config struct {
	DBPath   string // Path to SQLite database
	MaxItems int    // Rows kept after each upsert
}
