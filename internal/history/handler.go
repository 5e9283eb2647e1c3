package history

// Op names the mutation that produced a Change.
type Op string

const (
	OpIngested Op = "ingested"
	OpTouched  Op = "touched"
	OpCopied   Op = "copied"
	OpDeleted  Op = "deleted"
	OpCleared  Op = "cleared"
	OpLoaded   Op = "loaded"
)

// Change describes one mutation of the history.
type Change struct {
	Op      Op       `json:"op"`
	ID      string   `json:"id,omitempty"`
	Evicted []string `json:"evicted,omitempty"`
}

// ChangeHandler is implemented by components that need to be notified of history changes.
// Handlers run on the mutating goroutine after the store lock is released and
// must not block.
type ChangeHandler interface {
	HandleHistoryChange(change Change)
}

// ChangeHandlerFunc adapts a function to ChangeHandler.
type ChangeHandlerFunc func(Change)

func (f ChangeHandlerFunc) HandleHistoryChange(c Change) { f(c) }
