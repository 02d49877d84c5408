package compositor

import (
	"image"
	"image/draw"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"merch-studio/filter"
	"merch-studio/models"
)

// Layer is a design raster ready to be placed: base-fitted and filtered
type Layer struct {
	ID        string
	Image     *image.NRGBA
	Transform models.Transform
	Opacity   float64
	BlendMode models.BlendMode
	ZIndex    int
	Visible   bool
}

// PrepareDesign base-fits a decoded artwork and applies its curvature warp
func PrepareDesign(img image.Image, baseSize float64, curvature *models.Curvature) (base, filtered *image.NRGBA) {
	base = BaseFit(img, baseSize)
	filtered = base
	if curvature != nil {
		filtered = filter.Chain(filter.CurvatureFunc(*curvature))(base)
	}
	return base, filtered
}

// Matrix returns the affine map from raster pixels to canvas pixels for a design of size
// (w, h) centered at t.Position, scaled by t.Scale and rotated t.Rotation degrees clockwise
func Matrix(t models.Transform, w, h int) f64.Aff3 {
	rad := t.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	s := t.Scale
	a, b := s*cos, -s*sin
	d, e := s*sin, s*cos
	hw, hh := float64(w)/2, float64(h)/2
	return f64.Aff3{
		a, b, t.Position.X - (a*hw + b*hh),
		d, e, t.Position.Y - (d*hw + e*hh),
	}
}

// Bounds returns the canvas-space bounding box of a placed raster
func Bounds(t models.Transform, w, h int) image.Rectangle {
	m := Matrix(t, w, h)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [][2]float64{{0, 0}, {float64(w), 0}, {0, float64(h)}, {float64(w), float64(h)}} {
		x := m[0]*c[0] + m[1]*c[1] + m[2]
		y := m[3]*c[0] + m[4]*c[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// Contains reports whether canvas point (x, y) falls on the placed raster's rectangle
func Contains(t models.Transform, w, h int, x, y float64) bool {
	m := Matrix(t, w, h)
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return false
	}
	x -= m[2]
	y -= m[5]
	u := (m[4]*x - m[1]*y) / det
	v := (-m[3]*x + m[0]*y) / det
	return u >= 0 && v >= 0 && u < float64(w) && v < float64(h)
}

// DrawLayer places l onto dst with its transform, blend mode and opacity
func DrawLayer(dst *image.RGBA, l Layer) {
	if !l.Visible || l.Image == nil || l.Opacity <= 0 || l.Transform.Scale == 0 {
		return
	}
	sb := l.Image.Bounds()
	rect := Bounds(l.Transform, sb.Dx(), sb.Dy()).Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	tmp := image.NewRGBA(rect)
	xdraw.BiLinear.Transform(tmp, Matrix(l.Transform, sb.Dx(), sb.Dy()), l.Image, sb, xdraw.Over, nil)
	BlendLayer(dst, tmp, rect, l.BlendMode, l.Opacity)
}

// Flatten draws the background into its rectangle and the layers above it in ascending ZIndex
func Flatten(size Size, background image.Image, bgRect image.Rectangle, layers []Layer) *image.RGBA {
	dst := image.NewRGBA(size.Rect())
	if background != nil && !bgRect.Empty() {
		draw.Draw(dst, bgRect, background, background.Bounds().Min, draw.Over)
	}
	sorted := append([]Layer(nil), layers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ZIndex < sorted[j].ZIndex })
	for _, l := range sorted {
		DrawLayer(dst, l)
	}
	return dst
}
