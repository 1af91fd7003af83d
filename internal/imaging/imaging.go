// Package imaging validates raw photo bytes and converts them into the single
// canonical form shared by the vision model and the artifact store: an opaque
// JPEG under a size ceiling.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	errs "github.com/edgard/foodlens/internal/errors"
)

// ContentType is the MIME type of every normalized image.
const ContentType = "image/jpeg"

const (
	DefaultQuality  = 90
	DefaultMaxBytes = 10 * 1024 * 1024
)

var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// Options controls normalization.
type Options struct {
	// MaxBytes is the exclusive ceiling applied to the raw input and to the encoded output.
	MaxBytes int
	// MaxDimension bounds the longest side in pixels; 0 keeps the original size.
	MaxDimension int
	Quality      int
}

// Image is a normalized photo ready for analysis and upload.
type Image struct {
	Data         []byte
	ContentType  string
	Width        int
	Height       int
	SourceFormat string
}

// Normalize decodes raw, flattens any alpha channel onto white, optionally
// downscales and re-encodes as JPEG. All failures are ValidationErrors.
func Normalize(raw []byte, opts Options) (Image, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}

	if len(raw) == 0 {
		return Image{}, errs.NewValidationError("image is empty", nil)
	}
	if len(raw) >= opts.MaxBytes {
		return Image{}, errs.NewValidationError(fmt.Sprintf("image too large: %s (max %s)",
			formatMB(len(raw)), formatMB(opts.MaxBytes)), nil)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, errs.NewValidationError("invalid image file", err)
	}
	if !supportedFormats[format] {
		return Image{}, errs.NewValidationError("unsupported image format: "+format, nil)
	}

	img := flatten(src)
	if opts.MaxDimension > 0 {
		img = downscale(img, opts.MaxDimension)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return Image{}, errs.NewValidationError("failed to encode image", err)
	}
	if buf.Len() >= opts.MaxBytes {
		return Image{}, errs.NewValidationError(fmt.Sprintf("normalized image too large: %s (max %s)",
			formatMB(buf.Len()), formatMB(opts.MaxBytes)), nil)
	}

	b := img.Bounds()
	return Image{
		Data:         buf.Bytes(),
		ContentType:  ContentType,
		Width:        b.Dx(),
		Height:       b.Dy(),
		SourceFormat: format,
	}, nil
}

// flatten draws src over an opaque white canvas so the result has no alpha.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func downscale(src *image.RGBA, maxDim int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// DecodeBase64 decodes an inline image payload, accepting an optional
// "data:<mime>;base64," prefix.
func DecodeBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ","); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+1:]
	}
	if encoded == "" {
		return nil, errs.NewValidationError("image data is empty", nil)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errs.NewValidationError("invalid base64 image data", err)
	}
	return data, nil
}

func formatMB(n int) string {
	return fmt.Sprintf("%.2fMB", float64(n)/(1024*1024))
}
