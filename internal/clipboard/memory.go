package clipboard

import (
	"fmt"
	"sync"

	"clipboard-history/pkg/types"
)

// Memory is an in-process clipboard. It never talks to the OS.
type Memory struct {
	mu      sync.Mutex
	count   int
	current *types.Payload
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Name() string { return "in-memory" }

func (m *Memory) ChangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *Memory) Read() (*types.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, nil
	}
	p := *m.current
	p.Data = append([]byte(nil), p.Data...)
	return &p, nil
}

func (m *Memory) Write(p types.Payload) error {
	if !p.Kind.Valid() {
		return fmt.Errorf("unsupported kind: %s", p.Kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &types.Payload{Kind: p.Kind, Data: append([]byte(nil), p.Data...)}
	m.count++
	return nil
}

func (m *Memory) Close() {}
