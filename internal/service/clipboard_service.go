package service

import (
	"clipboard-history/internal/clipboard"
	"clipboard-history/internal/history"
	"clipboard-history/pkg/types"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// queueSize bounds clipboard changes waiting for ingestion.
const queueSize = 16

// ClipboardError reports a failure in the detector or the clipboard sink.
type ClipboardError struct {
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

func (e *ClipboardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

// ClipboardService feeds clipboard changes from a monitor into the history store.
type ClipboardService struct {
	monitor clipboard.Monitor
	store   *history.Store
	queue   chan types.Payload
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// New creates a new ClipboardService
func New(monitor clipboard.Monitor, store *history.Store) *ClipboardService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ClipboardService{
		monitor: monitor,
		store:   store,
		queue:   make(chan types.Payload, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start loads the persisted history and begins monitoring the clipboard.
func (s *ClipboardService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return &ClipboardError{Op: "Start", Message: "service already started"}
	}

	entries, err := s.store.Load(s.ctx)
	if err != nil {
		return &ClipboardError{Op: "Start", Message: "failed to load history", Err: err}
	}
	slog.Info("history loaded", "entries", len(entries), "max_items", s.store.MaxItems())

	s.wg.Add(1)
	go s.ingestLoop()

	// The monitor callback only enqueues so the polling loop never waits on storage.
	s.monitor.OnChange(func(p types.Payload) {
		select {
		case s.queue <- p:
		case <-s.ctx.Done():
		default:
			slog.Warn("ingest queue full, dropping clipboard change", "kind", p.Kind, "size_bytes", len(p.Data))
		}
	})

	if err := s.monitor.Start(); err != nil {
		s.cancel()
		s.wg.Wait()
		return &ClipboardError{Op: "Start", Message: "failed to start clipboard monitor", Err: err}
	}
	s.started = true
	return nil
}

// Stop gracefully shuts down the service
func (s *ClipboardService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.started {
		if stopErr := s.monitor.Stop(); stopErr != nil {
			err = &ClipboardError{Op: "Stop", Message: "failed to stop clipboard monitor", Err: stopErr}
		}
		s.started = false
	}

	s.cancel()
	s.wg.Wait()
	return err
}

func (s *ClipboardService) ingestLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case p := <-s.queue:
			if err := s.handleClipboardChange(p); err != nil {
				slog.Error("error handling clipboard change", "err", err)
			}
		}
	}
}

// handleClipboardChange stores one captured payload. Skipped content is
// logged by the store and is not an error here.
func (s *ClipboardService) handleClipboardChange(p types.Payload) error {
	entry, err := s.store.Ingest(s.ctx, p.Kind, p.Data)
	if errors.Is(err, history.ErrCodec) {
		return nil
	}
	if err != nil {
		return &ClipboardError{Op: "handleClipboardChange", Message: "failed to store clipboard content", Err: err}
	}

	slog.Info("stored clipboard content", "id", entry.ID, "kind", entry.Kind, "size_kb", fmt.Sprintf("%.1f", entry.SizeInKB()))
	return nil
}
