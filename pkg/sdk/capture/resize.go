package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

var (
	ErrDecode            = errors.New("image could not be decoded")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// ResizeOptions bound the output image. Zero values take the defaults.
type ResizeOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64
	Format    string
}

// DefaultResizeOptions fit within 1920x1080 as JPEG at 0.8.
var DefaultResizeOptions = ResizeOptions{
	MaxWidth:  1920,
	MaxHeight: 1080,
	Quality:   0.8,
	Format:    "image/jpeg",
}

func (o ResizeOptions) withDefaults() ResizeOptions {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultResizeOptions.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultResizeOptions.MaxHeight
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = DefaultResizeOptions.Quality
	}
	if o.Format == "" {
		o.Format = DefaultResizeOptions.Format
	}
	o.Format = strings.ToLower(o.Format)
	return o
}

// Resized is an encoded, resized image.
type Resized struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// FitWithin scales w x h down so that neither bound is exceeded, keeping the
// aspect ratio. Images already within bounds are returned unchanged.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	scale := math.Min(1, math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h)))
	if scale >= 1 {
		return w, h
	}
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return min(nw, maxW), min(nh, maxH)
}

// ResizeImage decodes f, scales it to fit the bounds and re-encodes it.
func ResizeImage(f File, opts ResizeOptions) (Resized, error) {
	opts = opts.withDefaults()

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return Resized{}, fmt.Errorf("%w: %s: %w", ErrDecode, fileName(f, 0), err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	switch opts.Format {
	case "image/jpeg", "image/jpg":
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: int(math.Round(opts.Quality * 100))})
		opts.Format = "image/jpeg"
	case "image/png":
		err = png.Encode(&buf, out)
	default:
		return Resized{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Format)
	}
	if err != nil {
		return Resized{}, fmt.Errorf("encode %s: %w", opts.Format, err)
	}

	return Resized{Data: buf.Bytes(), Format: opts.Format, Width: w, Height: h}, nil
}
