//go:build darwin

package clipboard

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/progrium/darwinkit/macos/appkit"

	"clipboard-history/pkg/types"
)

const (
	typeText = appkit.PasteboardType("public.utf8-plain-text")
	typeTIFF = appkit.PasteboardType("public.tiff")
	typePNG  = appkit.PasteboardType("public.png")
	typeJPEG = appkit.PasteboardType("public.jpeg")
)

// imageType picks the pasteboard type matching the stored bytes.
func imageType(data []byte) appkit.PasteboardType {
	switch {
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return typeJPEG
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return typePNG
	default:
		return typeTIFF
	}
}

type darwinBackend struct {
	mu         sync.Mutex
	pasteboard appkit.Pasteboard
}

// New returns the macOS pasteboard backend.
func New() Backend {
	return &darwinBackend{pasteboard: appkit.Pasteboard_GeneralPasteboard()}
}

func (b *darwinBackend) Name() string { return "macOS pasteboard" }

func (b *darwinBackend) ChangeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pasteboard.ChangeCount()
}

func (b *darwinBackend) Read() (*types.Payload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text := b.pasteboard.StringForType(typeText); text != "" {
		return &types.Payload{Kind: types.KindText, Data: []byte(text)}, nil
	}
	// Screenshots and most apps publish TIFF; some only PNG.
	for _, t := range []appkit.PasteboardType{typeTIFF, typePNG} {
		if data := b.pasteboard.DataForType(t); len(data) > 0 {
			return &types.Payload{Kind: types.KindImage, Data: data}, nil
		}
	}
	return nil, nil
}

func (b *darwinBackend) Write(p types.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pasteboard.ClearContents()
	var ok bool
	switch p.Kind {
	case types.KindText:
		ok = b.pasteboard.SetStringForType(string(p.Data), typeText)
	case types.KindImage:
		ok = b.pasteboard.SetDataForType(p.Data, imageType(p.Data))
	default:
		return fmt.Errorf("unsupported kind: %s", p.Kind)
	}
	if !ok {
		return fmt.Errorf("pasteboard rejected %s content", p.Kind)
	}
	return nil
}

func (b *darwinBackend) Close() {}
