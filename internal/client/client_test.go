package client

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipboard-history/internal/codec"
	"clipboard-history/internal/history"
	"clipboard-history/internal/server"
	"clipboard-history/internal/storage"
	"clipboard-history/internal/storage/sqlite"
	"clipboard-history/pkg/types"
)

func setup(t *testing.T) (*Client, *history.Store) {
	t.Helper()
	backend, err := sqlite.New(storage.Config{
		DBPath:   filepath.Join(t.TempDir(), "history.db"),
		MaxItems: 20,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	store := history.New(backend, codec.New(codec.Config{}), nil, history.Options{MaxItems: 20})
	ts := httptest.NewServer(server.New(store, server.Config{DisplayLimit: 3}).Handler())
	t.Cleanup(ts.Close)

	// Bare host:port, as configured on the command line.
	return New(ts.Listener.Addr().String(), 0), store
}

func TestClientRoundTrip(t *testing.T) {
	c, store := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	var ids []string
	for _, text := range []string{"a", "b", "c", "d"} {
		e, err := store.Ingest(ctx, types.KindText, []byte(text))
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	views, err := c.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, views, 3)

	views, err = c.List(ctx, ListOptions{All: true})
	require.NoError(t, err)
	require.Len(t, views, 4)
	assert.Equal(t, "d", views[0].Text)

	views, err = c.List(ctx, ListOptions{Limit: 1, Query: "b"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, ids[1], views[0].ID)

	view, err := c.Copy(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], view.ID)
	assert.Equal(t, ids[0], store.Snapshot()[0].ID)

	content, err := c.Content(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), content)

	got, err := c.Get(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, "d", got.Text)

	require.NoError(t, c.Delete(ctx, ids[3]))
	assert.ErrorIs(t, c.Delete(ctx, ids[3]), history.ErrNotFound)
	_, err = c.Copy(ctx, "missing")
	assert.ErrorIs(t, err, history.ErrNotFound)

	n, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 3, stats.DisplayLimit)

	require.NoError(t, c.Clear(ctx))
	views, err = c.List(ctx, ListOptions{All: true})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestClientBadRequest(t *testing.T) {
	c, _ := setup(t)
	_, err := c.List(context.Background(), ListOptions{Kind: "video"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid kind")
}

func TestClientUnavailable(t *testing.T) {
	ts := httptest.NewServer(nil)
	addr := ts.URL
	ts.Close()

	err := New(addr, 0).Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
