package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

const (
	contrastFactor = 2.0
	jpegQuality    = 90

	DefaultMaxPixels = 40_000_000
)

var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// Preprocess converts an uploaded report image to a high-contrast grayscale
// JPEG for OCR. Decode failures are returned to the caller.
func Preprocess(data []byte, mimeType string) ([]byte, error) {
	return PreprocessLimit(data, mimeType, DefaultMaxPixels)
}

// PreprocessLimit is Preprocess with a cap on width*height, checked from
// the image header before any pixel is decoded.
func PreprocessLimit(data []byte, mimeType string, maxPixels int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image (%s): %w", mimeType, err)
	}
	if maxPixels > 0 && (cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/max(cfg.Height, 1)) {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image (%s): %w", mimeType, err)
	}

	gray := toGray(flatten(img))
	enhanceContrast(gray, contrastFactor)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, gray, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg (from %s): %w", format, err)
	}
	return out.Bytes(), nil
}

// flatten drops alpha and palette indirection, keeping the straight colour
// values of every pixel.
func flatten(img image.Image) image.Image {
	switch img.(type) {
	case *image.Paletted, *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
	default:
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// toGray applies ITU-R 601-2 luma on 8-bit channels, rounded to nearest.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			l := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8) + 500) / 1000
			out.SetGray(x, y, color.Gray{Y: uint8(l)})
		}
	}
	return out
}

// enhanceContrast scales every pixel away from the image mean by factor.
func enhanceContrast(img *image.Gray, factor float64) {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return
	}
	var sum int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for _, v := range row {
			sum += int(v)
		}
	}
	mean := float64(int(float64(sum)/float64(n) + 0.5))

	var lut [256]uint8
	for v := range lut {
		lut[v] = clamp8(mean + factor*(float64(v)-mean))
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i, v := range row {
			row[i] = lut[v]
		}
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
