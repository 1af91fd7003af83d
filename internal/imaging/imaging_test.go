package imaging_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/imaging"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// transparentRGBA returns a fully transparent image with an opaque red square in the middle.
func transparentRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := h / 4; y < 3*h/4; y++ {
		for x := w / 4; x < 3*w/4; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	return img
}

func TestNormalizeFlattensAlpha(t *testing.T) {
	t.Parallel()

	raw := encodePNG(t, transparentRGBA(64, 48))

	out, err := imaging.Normalize(raw, imaging.Options{})
	require.NoError(t, err)
	assert.Equal(t, imaging.ContentType, out.ContentType)
	assert.Equal(t, "png", out.SourceFormat)
	assert.Equal(t, 64, out.Width)
	assert.Equal(t, 48, out.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)

	// JPEG is lossy, so check the corner is near white rather than exact.
	r, g, b, a := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestNormalizeLargeTransparentImage(t *testing.T) {
	t.Parallel()

	raw := encodePNG(t, transparentRGBA(1500, 1500))

	out, err := imaging.Normalize(raw, imaging.Options{})
	require.NoError(t, err)
	assert.Less(t, len(out.Data), imaging.DefaultMaxBytes)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1500, cfg.Width)
}

func TestNormalizeAcceptsGIF(t *testing.T) {
	t.Parallel()

	pal := image.NewPaletted(image.Rect(0, 0, 10, 10), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, pal, nil))

	out, err := imaging.Normalize(buf.Bytes(), imaging.Options{})
	require.NoError(t, err)
	assert.Equal(t, "gif", out.SourceFormat)
	assert.Equal(t, imaging.ContentType, out.ContentType)
}

func TestNormalizeDownscales(t *testing.T) {
	t.Parallel()

	raw := encodePNG(t, transparentRGBA(400, 200))

	out, err := imaging.Normalize(raw, imaging.Options{MaxDimension: 100})
	require.NoError(t, err)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)
}

func TestNormalizeRejects(t *testing.T) {
	t.Parallel()

	small := encodePNG(t, transparentRGBA(8, 8))

	tests := []struct {
		name    string
		raw     []byte
		opts    imaging.Options
		wantMsg string
	}{
		{name: "empty", raw: nil, wantMsg: "image is empty"},
		{name: "garbage", raw: []byte("definitely not an image"), wantMsg: "invalid image file"},
		{name: "at limit", raw: small, opts: imaging.Options{MaxBytes: len(small)}, wantMsg: "image too large"},
		{name: "over limit", raw: small, opts: imaging.Options{MaxBytes: len(small) - 1}, wantMsg: "image too large"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := imaging.Normalize(tc.raw, tc.opts)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	t.Parallel()

	payload := []byte("hello image")
	enc := base64.StdEncoding.EncodeToString(payload)

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "plain", in: enc, want: payload},
		{name: "data url", in: "data:image/png;base64," + enc, want: payload},
		{name: "surrounding space", in: "  " + enc + "\n", want: payload},
		{name: "empty", in: "", wantErr: true},
		{name: "empty data url", in: "data:image/png;base64,", wantErr: true},
		{name: "invalid", in: "%%%not-base64%%%", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := imaging.DecodeBase64(tc.in)
			if tc.wantErr {
				assert.True(t, errs.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
