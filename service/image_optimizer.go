package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// Rendition sizes stored next to every full-size exported view
const (
	SizeFull   = "full"
	SizeMedium = "medium"
	SizeThumb  = "thumb"
)

const (
	qualityThumb  = 60
	qualityMedium = 75
	// max dimension
	maxSizeThumb  = 300
	maxSizeMedium = 800
)

// OptimizeImage decodes raw image bytes and returns a resized JPEG rendition.
// size is "thumb" or "medium"; anything else is treated as medium.
func OptimizeImage(imageData []byte, size string) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	logrus.Debugf("📸 Image decoded: format=%s, bounds=%v", format, img.Bounds())
	return OptimizeRendered(img, size)
}

// OptimizeRendered resizes an in-memory image to the rendition size and encodes it as JPEG.
// Transparent areas are flattened onto white.
func OptimizeRendered(img image.Image, size string) ([]byte, error) {
	maxDim, quality := maxSizeMedium, qualityMedium
	switch size {
	case SizeThumb:
		maxDim, quality = maxSizeThumb, qualityThumb
	case SizeMedium:
	default:
		logrus.Warnf("⚠️ Unknown size '%s', defaulting to medium", size)
	}

	var out image.Image = img
	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		// imaging keeps aspect ratio when one side is 0
		if b.Dx() >= b.Dy() {
			out = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
		} else {
			out = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
		}
		logrus.Debugf("🔄 Resizing image: %dx%d -> %dx%d", b.Dx(), b.Dy(), out.Bounds().Dx(), out.Bounds().Dy())
	}

	bg := imaging.New(out.Bounds().Dx(), out.Bounds().Dy(), image.White.C)
	flat := imaging.Overlay(bg, out, image.Point{}, 1)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode to JPEG: %w", err)
	}
	logrus.Debugf("✓ Image optimized: size=%s, quality=%d, output_size=%d bytes", size, quality, buf.Len())
	return buf.Bytes(), nil
}
