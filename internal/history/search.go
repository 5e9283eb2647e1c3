package history

import (
	"strings"

	"clipboard-history/pkg/types"
)

// SearchOptions defines criteria for filtering a snapshot
type SearchOptions struct {
	// Case-insensitive substring matched against text entries
	Query string

	// Filter by kind
	Kind types.Kind

	// Display limit; 0 keeps everything
	Limit int
}

// Search filters entries in order. Image entries never match a non-empty query.
func Search(entries []types.Entry, opts SearchOptions) []types.Entry {
	query := strings.ToLower(opts.Query)
	var out []types.Entry
	for _, e := range entries {
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if query != "" && (e.Kind != types.KindText || !strings.Contains(strings.ToLower(e.Text), query)) {
			continue
		}
		out = append(out, e)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out
}
