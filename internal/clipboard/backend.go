// Package clipboard reads and writes the system clipboard and detects new
// content by polling a change counter.
//
//	backend_darwin.go  macOS NSPasteboard via darwinkit (native changeCount)
//	backend_other.go   Linux/Windows via golang.design/x/clipboard (content comparison)
//	memory.go          in-process clipboard for headless hosts and tests
package clipboard

import "clipboard-history/pkg/types"

// Backend is a platform clipboard.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ChangeCount returns a counter that increases whenever the clipboard
	// content changes.
	ChangeCount() int

	// Read returns the current content, preferring text over image.
	// Returns nil, nil if the clipboard is empty or holds only unsupported types.
	Read() (*types.Payload, error)

	// Write replaces the clipboard content.
	Write(p types.Payload) error

	// Close releases any resources held by the backend.
	Close()
}
