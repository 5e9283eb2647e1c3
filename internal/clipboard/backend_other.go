//go:build !darwin

package clipboard

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"

	"clipboard-history/pkg/types"
)

type systemBackend struct {
	mu       sync.Mutex
	count    int
	lastText []byte
	lastImg  []byte
}

// New returns the system clipboard backend, or an in-memory backend if the
// display environment is unavailable (e.g. a headless host without X11 or
// Wayland).
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, using in-memory clipboard", "err", err)
		return NewMemory()
	}
	return &systemBackend{
		lastText: clipboard.Read(clipboard.FmtText),
		lastImg:  clipboard.Read(clipboard.FmtImage),
	}
}

func (b *systemBackend) Name() string { return "system clipboard (poll)" }

// ChangeCount has no native counterpart here, so the counter is advanced
// whenever the content differs from the previous observation.
func (b *systemBackend) ChangeCount() int {
	text := clipboard.Read(clipboard.FmtText)
	img := clipboard.Read(clipboard.FmtImage)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
		b.lastText = text
		b.lastImg = img
		b.count++
	}
	return b.count
}

func (b *systemBackend) Read() (*types.Payload, error) {
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		return &types.Payload{Kind: types.KindText, Data: text}, nil
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		return &types.Payload{Kind: types.KindImage, Data: img}, nil
	}
	return nil, nil
}

func (b *systemBackend) Write(p types.Payload) error {
	switch p.Kind {
	case types.KindText:
		clipboard.Write(clipboard.FmtText, p.Data)
	case types.KindImage:
		data, err := toPNG(p.Data)
		if err != nil {
			return err
		}
		clipboard.Write(clipboard.FmtImage, data)
	default:
		return fmt.Errorf("unsupported kind: %s", p.Kind)
	}
	return nil
}

func (b *systemBackend) Close() {}

// toPNG converts stored image bytes for golang.design/x/clipboard, which only
// accepts PNG images.
func toPNG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("\x89PNG")) {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image cannot be placed on the clipboard: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
