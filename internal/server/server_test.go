package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipboard-history/internal/codec"
	"clipboard-history/internal/history"
	"clipboard-history/internal/storage"
	"clipboard-history/internal/storage/sqlite"
	"clipboard-history/pkg/types"
)

type recordingSink struct {
	mu       sync.Mutex
	payloads []types.Payload
}

func (r *recordingSink) SetContent(p types.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

func newTestServer(t *testing.T, cfg Config) (*Server, *history.Store, *recordingSink) {
	t.Helper()
	backend, err := sqlite.New(storage.Config{
		DBPath:   filepath.Join(t.TempDir(), "history.db"),
		MaxItems: 10,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	sink := &recordingSink{}
	store := history.New(backend, codec.New(codec.Config{}), sink, history.Options{MaxItems: 10})
	return New(store, cfg), store, sink
}

func ingest(t *testing.T, store *history.Store, texts ...string) []types.Entry {
	t.Helper()
	var out []types.Entry
	for _, text := range texts {
		e, err := store.Ingest(context.Background(), types.KindText, []byte(text))
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Host = "127.0.0.1:8753"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEntries(t *testing.T, rec *httptest.ResponseRecorder) []EntryView {
	t.Helper()
	var views []EntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	return views
}

func TestListEntries(t *testing.T) {
	s, store, _ := newTestServer(t, Config{DisplayLimit: 2})
	ingest(t, store, "alpha", "beta", "gamma")
	h := s.Handler()

	t.Run("display limit applies by default", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/entries")
		require.Equal(t, http.StatusOK, rec.Code)
		views := decodeEntries(t, rec)
		require.Len(t, views, 2)
		assert.Equal(t, "gamma", views[0].Text)
		assert.Equal(t, "beta", views[1].Text)
	})

	t.Run("limit zero shows everything", func(t *testing.T) {
		views := decodeEntries(t, do(t, h, http.MethodGet, "/api/entries?limit=0"))
		require.Len(t, views, 3)
		assert.Equal(t, "alpha", views[2].Text)
	})

	t.Run("query filters", func(t *testing.T) {
		views := decodeEntries(t, do(t, h, http.MethodGet, "/api/entries?q=ALP&limit=0"))
		require.Len(t, views, 1)
		assert.Equal(t, "alpha", views[0].Text)
	})

	t.Run("bad parameters", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/entries?limit=-1").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/entries?limit=x").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/entries?kind=video").Code)
	})
}

func TestGetEntry(t *testing.T) {
	s, store, _ := newTestServer(t, Config{})
	e := ingest(t, store, "hello")[0]
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/entries/"+e.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var view EntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, e.ID, view.ID)
	assert.Equal(t, types.KindText, view.Kind)
	assert.Equal(t, "hello", view.Text)

	rec = do(t, h, http.MethodGet, "/api/entries/"+e.ID+"/content")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/entries/missing").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/entries/missing/content").Code)
}

func TestCopyEntry(t *testing.T) {
	s, store, sink := newTestServer(t, Config{})
	entries := ingest(t, store, "hello", "world")
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/entries/"+entries[0].ID+"/copy")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := store.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, entries[0].ID, snap[0].ID)
	require.Len(t, sink.payloads, 1)
	assert.Equal(t, []byte("hello"), sink.payloads[0].Data)

	before := store.Snapshot()
	rec = do(t, h, http.MethodPost, "/api/entries/nope/copy")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before, store.Snapshot())
}

func TestDeleteAndClear(t *testing.T) {
	s, store, _ := newTestServer(t, Config{})
	entries := ingest(t, store, "one", "two", "three")
	h := s.Handler()

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/entries/"+entries[1].ID).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/entries/"+entries[1].ID).Code)
	assert.Equal(t, 2, store.Len())

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/entries").Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/entries").Code)
	assert.Equal(t, 0, store.Len())
}

func TestReloadAndStats(t *testing.T) {
	s, store, _ := newTestServer(t, Config{DisplayLimit: 5, LaunchAtLogin: true})
	ingest(t, store, "a", "bb")
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	var reload map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reload))
	assert.Equal(t, 2, reload["entries"])

	rec = do(t, h, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, 10, stats.MaxEntries)
	assert.InDelta(t, 3.0/1024, stats.TotalKB, 1e-9)
	assert.Equal(t, 5, stats.DisplayLimit)
	assert.True(t, stats.LaunchAtLogin)
	assert.NotEmpty(t, stats.Path)
}

func TestStatus(t *testing.T) {
	s, store, _ := newTestServer(t, Config{})
	ingest(t, store, "x")

	rec := do(t, s.Handler(), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["entries"])
}

func TestWebsocketNotifications(t *testing.T) {
	s, store, _ := newTestServer(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	assert.Equal(t, http.StatusBadRequest, do(t, s.Handler(), http.MethodGet, "/ws").Code)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.connected.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	e := ingest(t, store, "notify me")[0]

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Notification
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "history_change", msg.Type)
	assert.Equal(t, history.OpIngested, msg.Payload.Op)
	assert.Equal(t, e.ID, msg.Payload.ID)

	require.NoError(t, store.Clear(context.Background()))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, history.OpCleared, msg.Payload.Op)
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestServer(t, Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	resp, err := http.Get("http://" + s.Addr() + "/status")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "clipboard-history.pid")

	p, err := AcquirePIDFile(path, false)
	require.NoError(t, err)
	pid, alive, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, alive)

	// Re-acquiring from the same process is allowed.
	_, err = AcquirePIDFile(path, false)
	require.NoError(t, err)

	require.NoError(t, p.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPIDFileLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipboard-history.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

	_, err := AcquirePIDFile(path, false)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestPIDFileStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipboard-history.pid")
	require.NoError(t, os.WriteFile(path, []byte("2147483646\n"), 0o644))

	p, err := AcquirePIDFile(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, p.Path())

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err = AcquirePIDFile(path, false)
	require.Error(t, err)
}

func TestForeignOriginIsRejected(t *testing.T) {
	s, store, sink := newTestServer(t, Config{Addr: "127.0.0.1:8753"})
	e := ingest(t, store, "secret")[0]
	h := s.Handler()

	send := func(method, target, host, origin string) int {
		req := httptest.NewRequest(method, target, nil)
		req.Host = host
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	copyPath := "/api/entries/" + e.ID + "/copy"
	assert.Equal(t, http.StatusForbidden, send(http.MethodPost, copyPath, "127.0.0.1:8753", "https://evil.example"))
	assert.Equal(t, http.StatusForbidden, send(http.MethodPost, copyPath, "127.0.0.1:8753", "null"))
	assert.Empty(t, sink.payloads, "rejected copy must not touch the clipboard")

	// A rebound name resolves to loopback but keeps its own Host header.
	assert.Equal(t, http.StatusForbidden, send(http.MethodGet, "/api/entries", "evil.example:8753", ""))
	assert.Equal(t, http.StatusForbidden, send(http.MethodGet, "/api/entries/"+e.ID+"/content", "evil.example", ""))

	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/entries", "localhost:8753", "http://localhost:8753"))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/entries", "[::1]:8753", ""))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, copyPath, "127.0.0.1:8753", "http://127.0.0.1:3000"))
	assert.Len(t, sink.payloads, 1)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, s.hub.connected.Load())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {ts.URL}})
	require.NoError(t, err)
	conn.Close()
}

func TestAllowedHost(t *testing.T) {
	s := &Server{config: Config{Addr: "clipbox.lan:8753"}}
	assert.True(t, s.allowedHost("127.0.0.1"))
	assert.True(t, s.allowedHost("127.0.0.2:80"))
	assert.True(t, s.allowedHost("LOCALHOST:8753"))
	assert.True(t, s.allowedHost("clipbox.lan:8753"))
	assert.False(t, s.allowedHost("evil.example"))
	assert.False(t, s.allowedHost(""))

	wildcard := &Server{config: Config{Addr: "0.0.0.0:8753"}}
	assert.False(t, wildcard.allowedHost("0.0.0.0:8753"))
	assert.True(t, wildcard.allowedHost("[::1]:8753"))
}
