package compositor

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"merch-studio/models"
)

// Size is a canvas size in pixels
type Size struct {
	W int `json:"width"`
	H int `json:"height"`
}

// Rect returns the canvas rectangle anchored at the origin
func (s Size) Rect() image.Rectangle {
	return image.Rect(0, 0, s.W, s.H)
}

// Valid reports whether both dimensions are positive
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0
}

// FitRect returns the largest rectangle with the aspect ratio of src that fits inside box,
// centered in box
func FitRect(src, box Size) image.Rectangle {
	if !src.Valid() || !box.Valid() {
		return image.Rectangle{}
	}
	k := math.Min(float64(box.W)/float64(src.W), float64(box.H)/float64(src.H))
	w := int(math.Round(float64(src.W) * k))
	h := int(math.Round(float64(src.H) * k))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x := (box.W - w) / 2
	y := (box.H - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// FitInside scales img to fit inside box keeping its aspect ratio, and returns the scaled image
// with the centered rectangle it occupies in box
func FitInside(img image.Image, box Size) (*image.NRGBA, image.Rectangle) {
	b := img.Bounds()
	rect := FitRect(Size{W: b.Dx(), H: b.Dy()}, box)
	if rect.Empty() {
		return nil, rect
	}
	return imaging.Resize(img, rect.Dx(), rect.Dy(), imaging.Lanczos), rect
}

// BaseFit scales img so its longer side equals maxDim. This is the size a design occupies at
// scale 1.
func BaseFit(img image.Image, maxDim float64) *image.NRGBA {
	b := img.Bounds()
	if b.Empty() || maxDim <= 0 {
		return imaging.Clone(img)
	}
	longest := math.Max(float64(b.Dx()), float64(b.Dy()))
	k := maxDim / longest
	w := int(math.Round(float64(b.Dx()) * k))
	h := int(math.Round(float64(b.Dy()) * k))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == b.Dx() && h == b.Dy() {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Mapper converts editor-canvas coordinates to another canvas size. The editor canvas is
// scaled uniformly to fit the target and centered, which is exactly how the mockup is fitted,
// so designs keep their place on the garment at any export size.
type Mapper struct {
	K    float64
	OffX float64
	OffY float64
}

// NewMapper builds the mapping from canvas size from to canvas size to
func NewMapper(from, to Size) Mapper {
	if !from.Valid() || !to.Valid() || from == to {
		return Mapper{K: 1}
	}
	k := math.Min(float64(to.W)/float64(from.W), float64(to.H)/float64(from.H))
	return Mapper{
		K:    k,
		OffX: (float64(to.W) - float64(from.W)*k) / 2,
		OffY: (float64(to.H) - float64(from.H)*k) / 2,
	}
}

// Point maps a position
func (m Mapper) Point(p models.Position) models.Position {
	return models.Position{X: p.X*m.K + m.OffX, Y: p.Y*m.K + m.OffY}
}

// Length maps a distance
func (m Mapper) Length(l float64) float64 {
	return l * m.K
}

// Transform maps a design transform. Scale and rotation are relative to the design's base
// size, which is mapped separately with Length.
func (m Mapper) Transform(t models.Transform) models.Transform {
	t.Position = m.Point(t.Position)
	return t
}

// Rect maps a rectangle, rounding outward to whole pixels
func (m Mapper) Rect(r image.Rectangle) image.Rectangle {
	minP := m.Point(models.Position{X: float64(r.Min.X), Y: float64(r.Min.Y)})
	maxP := m.Point(models.Position{X: float64(r.Max.X), Y: float64(r.Max.Y)})
	return image.Rect(int(math.Floor(minP.X+1e-9)), int(math.Floor(minP.Y+1e-9)), int(math.Ceil(maxP.X-1e-9)), int(math.Ceil(maxP.Y-1e-9)))
}

// FitMapped places a background the way it sits on a canvas of size from, then maps that
// placement through m. The result lines up with designs mapped by the same Mapper.
func (m Mapper) FitMapped(img image.Image, from Size) (*image.NRGBA, image.Rectangle) {
	b := img.Bounds()
	rect := m.Rect(FitRect(Size{W: b.Dx(), H: b.Dy()}, from))
	if rect.Empty() {
		return nil, rect
	}
	return imaging.Resize(img, rect.Dx(), rect.Dy(), imaging.Lanczos), rect
}
