package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	CoverWidth   = 1200
	CoverHeight  = 550
	coverQuality = 85

	// MaxSourcePixels bounds the decoded size of an upload; a few KB of
	// compressed data can otherwise expand to gigabytes.
	MaxSourcePixels = 40_000_000
)

var (
	errEmptyImage    = errors.New("image has no pixels")
	errImageTooLarge = errors.New("image dimensions exceed the pixel limit")
)

// decodeCover reads any registered image format and renders it as a
// CoverWidth x CoverHeight JPEG.
func decodeCover(r io.Reader) ([]byte, error) {
	var head bytes.Buffer
	if err := checkDimensions(io.TeeReader(r, &head)); err != nil {
		return nil, err
	}
	// replay the header bytes consumed by the dimension check
	src, _, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, err
	}
	dst, err := coverFit(src, CoverWidth, CoverHeight)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: coverQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// coverFit scales src until it fills w x h and crops the overflow evenly
// from both sides.
func coverFit(src image.Image, w, h int) (*image.RGBA, error) {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 {
		return nil, errEmptyImage
	}

	cropW, cropH := sw, sh
	if sw*h > sh*w {
		cropW = max(sh*w/h, 1)
	} else {
		cropH = max(sw*h/w, 1)
	}
	x0 := b.Min.X + (sw-cropW)/2
	y0 := b.Min.Y + (sh-cropH)/2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cropW, y0+cropH), draw.Src, nil)
	return dst, nil
}

// checkDimensions reads the image header and rejects sources above MaxSourcePixels.
func checkDimensions(r io.Reader) error {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return err
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}
