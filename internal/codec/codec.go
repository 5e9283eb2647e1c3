// Package codec turns raw clipboard payloads into storable entries.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"time"
	"unicode/utf8"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"clipboard-history/pkg/types"
)

const (
	DefaultQuality = 70

	// DefaultRawImageLimit bounds images kept unencoded after a decode failure.
	DefaultRawImageLimit = 10 * 1024 * 1024
)

// ErrCodec marks payloads that cannot become an entry.
var ErrCodec = errors.New("codec failure")

// Config holds codec settings.
type Config struct {
	// Quality is the JPEG quality used when re-encoding images (1-100).
	Quality int
	// RawImageLimit caps undecodable images stored as-is. 0 disables the cap;
	// a negative value selects DefaultRawImageLimit.
	RawImageLimit int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{Quality: DefaultQuality, RawImageLimit: DefaultRawImageLimit}
}

// Codec normalizes clipboard payloads.
type Codec struct {
	quality  int
	rawLimit int
}

// New returns a codec. A quality outside 1-100 selects DefaultQuality. A zero
// RawImageLimit keeps undecodable images of any size; use DefaultConfig for
// the bounded defaults.
func New(cfg Config) *Codec {
	q := cfg.Quality
	if q <= 0 || q > 100 {
		q = DefaultQuality
	}
	limit := cfg.RawImageLimit
	if limit < 0 {
		limit = DefaultRawImageLimit
	}
	return &Codec{quality: q, rawLimit: limit}
}

// Result describes how a payload was normalized.
type Result struct {
	Entry types.Entry
	// Reencoded is false when an image payload was kept as raw bytes.
	Reencoded bool
}

// Encode builds an entry with the given identity from a raw payload.
func (c *Codec) Encode(id string, createdAt time.Time, p types.Payload) (Result, error) {
	switch p.Kind {
	case types.KindText:
		if len(p.Data) == 0 {
			return Result{}, fmt.Errorf("%w: empty text", ErrCodec)
		}
		if !utf8.Valid(p.Data) {
			return Result{}, fmt.Errorf("%w: text is not valid UTF-8", ErrCodec)
		}
		return Result{Entry: types.NewTextEntry(id, createdAt, string(p.Data))}, nil

	case types.KindImage:
		if len(p.Data) == 0 {
			return Result{}, fmt.Errorf("%w: empty image", ErrCodec)
		}
		data, err := c.compress(p.Data)
		if err != nil {
			if c.rawLimit > 0 && len(p.Data) > c.rawLimit {
				return Result{}, fmt.Errorf("%w: undecodable image of %d bytes exceeds raw limit %d: %v",
					ErrCodec, len(p.Data), c.rawLimit, err)
			}
			raw := make([]byte, len(p.Data))
			copy(raw, p.Data)
			return Result{Entry: types.NewImageEntry(id, createdAt, raw)}, nil
		}
		return Result{Entry: types.NewImageEntry(id, createdAt, data), Reencoded: true}, nil

	default:
		return Result{}, fmt.Errorf("%w: unsupported kind %q", ErrCodec, p.Kind)
	}
}

// compress decodes any registered image format and re-encodes it as JPEG.
func (c *Codec) compress(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
