package models

// CurvatureDirection selects the axis along which the warp displaces samples
type CurvatureDirection string

const (
	CurvatureHorizontal CurvatureDirection = "horizontal"
	CurvatureVertical   CurvatureDirection = "vertical"
	CurvatureRadial     CurvatureDirection = "radial"
	CurvatureCustom     CurvatureDirection = "custom"
)

// Waveform is the displacement profile across the mesh
type Waveform string

const (
	WaveformSine   Waveform = "sine"
	WaveformQuad   Waveform = "quad"
	WaveformCubic  Waveform = "cubic"
	WaveformCustom Waveform = "custom"
)

const (
	DefaultMeshDensity = 10
	MinMeshDensity     = 2
	MaxMeshDensity     = 64
)

// Curvature describes how a design is warped to follow a curved garment surface.
// Intensity and Perspective are expected in [-1, 1] and [0, 1].
type Curvature struct {
	Enabled       bool               `json:"enabled"`
	Intensity     float64            `json:"intensity"`
	Direction     CurvatureDirection `json:"direction"`
	Perspective   float64            `json:"perspective"`
	Waveform      Waveform           `json:"waveform"`
	AdaptiveEdges bool               `json:"adaptiveEdges"`
	MeshDensity   int                `json:"meshDensity"`
}

// DefaultCurvature is what the curvature panel starts from for a fresh design
func DefaultCurvature() Curvature {
	return Curvature{
		Enabled:       false,
		Intensity:     0.3,
		Direction:     CurvatureHorizontal,
		Perspective:   0,
		Waveform:      WaveformSine,
		AdaptiveEdges: true,
		MeshDensity:   DefaultMeshDensity,
	}
}

// Normalized clamps every field into its supported range and fills empty enums
func (c Curvature) Normalized() Curvature {
	c.Intensity = clamp(c.Intensity, -1, 1)
	c.Perspective = clamp(c.Perspective, 0, 1)
	switch c.Direction {
	case CurvatureHorizontal, CurvatureVertical, CurvatureRadial, CurvatureCustom:
	default:
		c.Direction = CurvatureHorizontal
	}
	switch c.Waveform {
	case WaveformSine, WaveformQuad, WaveformCubic, WaveformCustom:
	default:
		c.Waveform = WaveformSine
	}
	if c.MeshDensity == 0 {
		c.MeshDensity = DefaultMeshDensity
	}
	if c.MeshDensity < MinMeshDensity {
		c.MeshDensity = MinMeshDensity
	}
	if c.MeshDensity > MaxMeshDensity {
		c.MeshDensity = MaxMeshDensity
	}
	return c
}

// Active reports whether applying c would change any pixel
func (c *Curvature) Active() bool {
	return c != nil && c.Enabled && c.Intensity != 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
