package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipboard-history/pkg/types"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncode_TextPassthrough(t *testing.T) {
	c := New(Config{})
	now := time.Now()

	res, err := c.Encode("id-1", now, types.Payload{Kind: types.KindText, Data: []byte("  hello \n")})
	require.NoError(t, err)
	assert.Equal(t, types.KindText, res.Entry.Kind)
	assert.Equal(t, "  hello \n", res.Entry.Text)
	assert.Nil(t, res.Entry.Image)
	assert.Equal(t, "id-1", res.Entry.ID)
	assert.True(t, res.Entry.CreatedAt.Equal(now))
}

func TestEncode_TextRejects(t *testing.T) {
	c := New(Config{})

	_, err := c.Encode("a", time.Now(), types.Payload{Kind: types.KindText})
	assert.ErrorIs(t, err, ErrCodec)

	_, err = c.Encode("a", time.Now(), types.Payload{Kind: types.KindText, Data: []byte{0xff, 0xfe}})
	assert.ErrorIs(t, err, ErrCodec)
}

func TestEncode_ImageReencodedAsJPEG(t *testing.T) {
	c := New(Config{Quality: 70})
	src := testPNG(t)

	res, err := c.Encode("img", time.Now(), types.Payload{Kind: types.KindImage, Data: src})
	require.NoError(t, err)
	assert.True(t, res.Reencoded)
	assert.Empty(t, res.Entry.Text)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Entry.Image))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestEncode_ImageDeterministic(t *testing.T) {
	c := New(Config{Quality: 70})
	src := testPNG(t)

	a, err := c.Encode("1", time.Now(), types.Payload{Kind: types.KindImage, Data: src})
	require.NoError(t, err)
	b, err := c.Encode("2", time.Now(), types.Payload{Kind: types.KindImage, Data: src})
	require.NoError(t, err)
	assert.Equal(t, a.Entry.Image, b.Entry.Image)
}

func TestEncode_QualityAffectsOutput(t *testing.T) {
	src := testPNG(t)
	low, err := New(Config{Quality: 10}).Encode("1", time.Now(), types.Payload{Kind: types.KindImage, Data: src})
	require.NoError(t, err)

	var want bytes.Buffer
	img, err := png.Decode(bytes.NewReader(src))
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(&want, img, &jpeg.Options{Quality: 10}))
	assert.Equal(t, want.Bytes(), low.Entry.Image)
}

func TestEncode_UndecodableImageKeptRaw(t *testing.T) {
	c := New(Config{})
	raw := []byte("definitely not an image")

	res, err := c.Encode("raw", time.Now(), types.Payload{Kind: types.KindImage, Data: raw})
	require.NoError(t, err)
	assert.False(t, res.Reencoded)
	assert.Equal(t, raw, res.Entry.Image)

	raw[0] = 'X'
	assert.Equal(t, byte('d'), res.Entry.Image[0], "codec must copy raw bytes")
}

func TestEncode_RawLimit(t *testing.T) {
	c := New(Config{RawImageLimit: 8})

	_, err := c.Encode("raw", time.Now(), types.Payload{Kind: types.KindImage, Data: []byte("0123456789")})
	assert.ErrorIs(t, err, ErrCodec)

	res, err := c.Encode("raw", time.Now(), types.Payload{Kind: types.KindImage, Data: []byte("0123")})
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), res.Entry.Image)
}

func TestNew_RawLimitSettings(t *testing.T) {
	big := bytes.Repeat([]byte{'x'}, DefaultRawImageLimit+1)

	_, err := New(DefaultConfig()).Encode("raw", time.Now(), types.Payload{Kind: types.KindImage, Data: big})
	assert.ErrorIs(t, err, ErrCodec)

	_, err = New(Config{RawImageLimit: -1}).Encode("raw", time.Now(), types.Payload{Kind: types.KindImage, Data: big})
	assert.ErrorIs(t, err, ErrCodec)

	res, err := New(Config{}).Encode("raw", time.Now(), types.Payload{Kind: types.KindImage, Data: big})
	require.NoError(t, err)
	assert.Len(t, res.Entry.Image, len(big))
}

func TestEncode_UnknownKind(t *testing.T) {
	_, err := New(Config{}).Encode("x", time.Now(), types.Payload{Kind: "file", Data: []byte("a")})
	assert.ErrorIs(t, err, ErrCodec)

	_, err = New(Config{}).Encode("x", time.Now(), types.Payload{Kind: types.KindImage})
	assert.ErrorIs(t, err, ErrCodec)
}
