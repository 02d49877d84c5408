package models

import "strings"

// View is one printable face of a garment
type View string

const (
	ViewFront    View = "front"
	ViewBack     View = "back"
	ViewShoulder View = "shoulder"
)

// AllViews returns the views every product layout carries, in display order
func AllViews() []View {
	return []View{ViewFront, ViewBack, ViewShoulder}
}

// ParseView normalizes a view name and reports whether it is known
func ParseView(s string) (View, bool) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllViews() {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// BlendMode controls how a placed design mixes with what is beneath it
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendMultiply BlendMode = "multiply"
	BlendScreen   BlendMode = "screen"
	BlendOverlay  BlendMode = "overlay"
	BlendDarken   BlendMode = "darken"
	BlendLighten  BlendMode = "lighten"
)

// Valid reports whether b is one of the supported blend modes
func (b BlendMode) Valid() bool {
	switch b {
	case BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, BlendDarken, BlendLighten:
		return true
	}
	return false
}

// Position is a canvas-space coordinate of a design's center
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform holds the placement geometry of a design. Rotation is in degrees.
type Transform struct {
	Position Position `json:"position"`
	Scale    float64  `json:"scale"`
	Rotation float64  `json:"rotation"`
}

// TransformPatch carries a partial transform update; nil fields are left untouched
type TransformPatch struct {
	Position *Position `json:"position,omitempty"`
	Scale    *float64  `json:"scale,omitempty"`
	Rotation *float64  `json:"rotation,omitempty"`
}

// Apply merges the non-nil fields of p into t
func (p TransformPatch) Apply(t Transform) Transform {
	if p.Position != nil {
		t.Position = *p.Position
	}
	if p.Scale != nil {
		t.Scale = *p.Scale
	}
	if p.Rotation != nil {
		t.Rotation = *p.Rotation
	}
	return t
}

// Design is one placement of an artwork inside a view. ID identifies the placement,
// SourceDesignID the artwork it was created from.
type Design struct {
	ID             string     `json:"id"`
	SourceDesignID string     `json:"sourceDesignId"`
	ImageURL       string     `json:"imageUrl"`
	Name           string     `json:"name"`
	Transform      Transform  `json:"transform"`
	Visible        bool       `json:"visible"`
	Locked         bool       `json:"locked"`
	Opacity        float64    `json:"opacity"`
	BlendMode      BlendMode  `json:"blendMode"`
	ZIndex         int        `json:"zIndex"`
	Curvature      *Curvature `json:"curvature,omitempty"`
}

// Clone returns a deep copy of d
func (d Design) Clone() Design {
	if d.Curvature != nil {
		c := *d.Curvature
		d.Curvature = &c
	}
	return d
}

// CloneDesigns deep-copies a design list. A nil list stays nil.
func CloneDesigns(in []Design) []Design {
	if in == nil {
		return nil
	}
	out := make([]Design, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}
