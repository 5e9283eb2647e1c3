package clipboard

import (
	"log/slog"
	"sync"
	"time"

	"clipboard-history/pkg/types"
)

// DefaultPollInterval is how often the change counter is checked.
const DefaultPollInterval = 500 * time.Millisecond

type Monitor interface {
	Start() error
	Stop() error
	OnChange(handler func(types.Payload))
	SetContent(p types.Payload) error
}

// PollingMonitor watches a Backend's change counter on a ticker.
type PollingMonitor struct {
	backend     Backend
	interval    time.Duration
	handler     func(types.Payload)
	changeCount int
	mutex       sync.Mutex
	stopChan    chan struct{}
	stopOnce    sync.Once
	done        sync.WaitGroup
}

func NewMonitor(backend Backend, interval time.Duration) *PollingMonitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingMonitor{
		backend:  backend,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins polling. Content already on the clipboard is not reported.
func (m *PollingMonitor) Start() error {
	m.mutex.Lock()
	m.changeCount = m.backend.ChangeCount()
	m.mutex.Unlock()

	slog.Info("clipboard monitor started", "backend", m.backend.Name(), "interval", m.interval)

	m.done.Add(1)
	go func() {
		defer m.done.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.checkForChanges()
			case <-m.stopChan:
				return
			}
		}
	}()

	return nil
}

// Stop ends polling and waits for the loop to exit. Safe to call twice.
func (m *PollingMonitor) Stop() error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.done.Wait()
	return nil
}

func (m *PollingMonitor) OnChange(handler func(types.Payload)) {
	m.mutex.Lock()
	m.handler = handler
	m.mutex.Unlock()
}

// SetContent writes to the clipboard and absorbs the resulting change so the
// monitor does not report its own write.
func (m *PollingMonitor) SetContent(p types.Payload) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.backend.Write(p); err != nil {
		return err
	}
	m.changeCount = m.backend.ChangeCount()
	return nil
}

func (m *PollingMonitor) checkForChanges() {
	m.mutex.Lock()
	currentCount := m.backend.ChangeCount()
	if currentCount == m.changeCount {
		m.mutex.Unlock()
		return
	}
	slog.Debug("clipboard change detected", "from", m.changeCount, "to", currentCount)
	m.changeCount = currentCount
	payload, err := m.backend.Read()
	handler := m.handler
	m.mutex.Unlock()

	if err != nil {
		slog.Error("clipboard read failed", "err", err)
		return
	}
	if payload == nil || len(payload.Data) == 0 {
		return
	}
	if handler != nil {
		handler(*payload)
	}
}
