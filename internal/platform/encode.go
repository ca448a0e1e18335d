package platform

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

const defaultJPEGQuality = 0.92

// EncodeDataURL encodes a non-premultiplied RGBA buffer the way
// HTMLCanvasElement.toDataURL does. Unknown types fall back to PNG; a
// quality outside [0, 1] selects the default JPEG quality.
func EncodeDataURL(pix []byte, w, h int, typ string, quality float64) (string, error) {
	if w <= 0 || h <= 0 {
		return "data:,", nil
	}
	if len(pix) < w*h*4 {
		return "", fmt.Errorf("pixel buffer holds %d bytes, want %d", len(pix), w*h*4)
	}
	img := &image.NRGBA{
		Pix:    pix[:w*h*4],
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}

	var buf bytes.Buffer
	switch typ {
	case "image/jpeg":
		if quality < 0 || quality > 1 {
			quality = defaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(quality*100 + 0.5)}); err != nil {
			return "", fmt.Errorf("encoding jpeg: %w", err)
		}
	default:
		typ = "image/png"
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("encoding png: %w", err)
		}
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL reverses EncodeDataURL for PNG data URLs and returns the
// RGBA pixels with their dimensions.
func DecodeDataURL(url string) ([]byte, int, int, error) {
	const prefix = "data:image/png;base64,"
	if len(url) < len(prefix) || url[:len(prefix)] != prefix {
		return nil, 0, 0, fmt.Errorf("not a png data url")
	}
	raw, err := base64.StdEncoding.DecodeString(url[len(prefix):])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding png: %w", err)
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out.Pix, b.Dx(), b.Dy(), nil
}
