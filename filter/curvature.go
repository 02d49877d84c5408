package filter

import (
	"image"
	"math"

	"merch-studio/models"
)

const (
	// maxShift is the displacement at full intensity as a fraction of the image size
	maxShift = 0.25
	// edgeBand is the normalized distance from the border over which adaptive edges taper
	edgeBand = 0.12
)

// CurvatureFunc binds curvature settings into a composable filter
func CurvatureFunc(c models.Curvature) Func {
	return func(src *image.NRGBA) *image.NRGBA {
		return Curvature(src, c)
	}
}

// Curvature warps src as if printed on a curved surface and returns a new image with the same
// bounds. The source is never modified. When the filter is disabled src itself is returned.
//
// The image is covered by a MeshDensity x MeshDensity grid. Displacements are evaluated at the
// grid vertices and bilinearly interpolated inside each cell; every destination pixel then
// samples the source at its displaced position. Samples falling outside the source are
// transparent.
func Curvature(src *image.NRGBA, c models.Curvature) *image.NRGBA {
	if src == nil || !c.Enabled {
		return src
	}
	c = c.Normalized()

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(b)
	if w == 0 || h == 0 {
		return dst
	}
	if c.Intensity == 0 {
		copyNRGBA(dst, src)
		return dst
	}

	m := newMesh(c, w, h)
	for y := 0; y < h; y++ {
		v := (float64(y) + 0.5) / float64(h)
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			u := (float64(x) + 0.5) / float64(w)
			dx, dy := m.at(u, v)
			r, g, bl, a := sample(src, float64(x)-dx, float64(y)-dy)
			i := x * 4
			row[i] = r
			row[i+1] = g
			row[i+2] = bl
			row[i+3] = a
		}
	}
	return dst
}

// mesh holds per-vertex displacement in pixels
type mesh struct {
	n      int
	dx, dy []float64
}

func newMesh(c models.Curvature, w, h int) *mesh {
	n := c.MeshDensity
	m := &mesh{
		n:  n,
		dx: make([]float64, (n+1)*(n+1)),
		dy: make([]float64, (n+1)*(n+1)),
	}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			u := float64(i) / float64(n)
			v := float64(j) / float64(n)
			dx, dy := displacement(c, u, v, float64(w), float64(h))
			m.dx[j*(n+1)+i] = dx
			m.dy[j*(n+1)+i] = dy
		}
	}
	return m
}

// at interpolates the displacement at normalized coordinates u, v in [0, 1]
func (m *mesh) at(u, v float64) (float64, float64) {
	fu := u * float64(m.n)
	fv := v * float64(m.n)
	i := int(fu)
	j := int(fv)
	if i >= m.n {
		i = m.n - 1
	}
	if j >= m.n {
		j = m.n - 1
	}
	tu := fu - float64(i)
	tv := fv - float64(j)

	stride := m.n + 1
	i00 := j*stride + i
	i10 := i00 + 1
	i01 := i00 + stride
	i11 := i01 + 1

	lerp2 := func(vals []float64) float64 {
		top := vals[i00]*(1-tu) + vals[i10]*tu
		bottom := vals[i01]*(1-tu) + vals[i11]*tu
		return top*(1-tv) + bottom*tv
	}
	return lerp2(m.dx), lerp2(m.dy)
}

// displacement returns how far the content at (u, v) moves, in pixels
func displacement(c models.Curvature, u, v, w, h float64) (float64, float64) {
	tx := 2*u - 1
	ty := 2*v - 1
	amp := c.Intensity * maxShift

	var dx, dy float64
	switch c.Direction {
	case models.CurvatureHorizontal:
		dx = amp * w * profile(c.Waveform, ty)
	case models.CurvatureVertical:
		dy = amp * h * profile(c.Waveform, tx)
	case models.CurvatureRadial:
		r := math.Hypot(tx, ty) / math.Sqrt2
		k := amp * profile(c.Waveform, r)
		dx = tx * w / 2 * k
		dy = ty * h / 2 * k
	case models.CurvatureCustom:
		dx = amp * w * profile(c.Waveform, ty)
		dy = amp * h * profile(c.Waveform, tx)
	}

	if c.Perspective > 0 {
		edge := math.Max(math.Abs(tx), math.Abs(ty))
		f := 1 + c.Perspective*edge
		dx *= f
		dy *= f
	}
	if c.AdaptiveEdges {
		d := math.Min(math.Min(u, 1-u), math.Min(v, 1-v))
		taper := smoothstep(0, edgeBand, d)
		dx *= taper
		dy *= taper
	}
	return dx, dy
}

// profile is the waveform shape over t in [-1, 1]: 1 at the center, 0 at the ends
func profile(wf models.Waveform, t float64) float64 {
	a := math.Min(math.Abs(t), 1)
	switch wf {
	case models.WaveformQuad:
		return 1 - a*a
	case models.WaveformCubic:
		return 1 - a*a*a
	case models.WaveformCustom:
		q := 1 - a*a
		return q * q
	default:
		return math.Cos(a * math.Pi / 2)
	}
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := (x - edge0) / (edge1 - edge0)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// sample reads src at a continuous pixel position relative to its bounds using bilinear
// interpolation on premultiplied values. Pixels outside src count as transparent.
func sample(src *image.NRGBA, fx, fy float64) (uint8, uint8, uint8, uint8) {
	b := src.Bounds()
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	wx := fx - float64(x0)
	wy := fy - float64(y0)

	var r, g, bl, a float64
	add := func(x, y int, weight float64) {
		if weight == 0 || x < 0 || y < 0 || x >= b.Dx() || y >= b.Dy() {
			return
		}
		i := y*src.Stride + x*4
		pa := float64(src.Pix[i+3])
		r += weight * float64(src.Pix[i]) * pa
		g += weight * float64(src.Pix[i+1]) * pa
		bl += weight * float64(src.Pix[i+2]) * pa
		a += weight * pa
	}
	add(x0, y0, (1-wx)*(1-wy))
	add(x0+1, y0, wx*(1-wy))
	add(x0, y0+1, (1-wx)*wy)
	add(x0+1, y0+1, wx*wy)

	if a <= 0 {
		return 0, 0, 0, 0
	}
	return round8(r / a), round8(g / a), round8(bl / a), round8(a)
}

func round8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func copyNRGBA(dst, src *image.NRGBA) {
	w := src.Bounds().Dx() * 4
	for y := 0; y < src.Bounds().Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
}
