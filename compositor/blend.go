// Package compositor flattens garment mockups and placed designs into rasters. The live
// canvas and the export pipeline both draw through it so previews and exports match.
package compositor

import (
	"image"
	"math"

	"merch-studio/models"
)

// CompositeOperation is the canvas composite operation name for a blend mode
func CompositeOperation(mode models.BlendMode) string {
	switch mode {
	case models.BlendMultiply, models.BlendScreen, models.BlendOverlay, models.BlendDarken, models.BlendLighten:
		return string(mode)
	default:
		return "source-over"
	}
}

// blendFunc mixes a backdrop channel cb with a source channel cs, both straight in [0, 1]
type blendFunc func(cb, cs float64) float64

func blendFor(mode models.BlendMode) blendFunc {
	switch mode {
	case models.BlendMultiply:
		return func(cb, cs float64) float64 { return cb * cs }
	case models.BlendScreen:
		return screen
	case models.BlendOverlay:
		return func(cb, cs float64) float64 {
			// hard-light with the layers swapped
			if cb <= 0.5 {
				return cs * 2 * cb
			}
			return screen(cs, 2*cb-1)
		}
	case models.BlendDarken:
		return math.Min
	case models.BlendLighten:
		return math.Max
	default:
		return func(_, cs float64) float64 { return cs }
	}
}

func screen(cb, cs float64) float64 {
	return cb + cs - cb*cs
}

// BlendLayer composites layer onto dst inside rect using mode and a global opacity.
// layer and dst are premultiplied; rect is in dst coordinates and layer must cover it.
// The mixing follows the separable blend modes of W3C Compositing Level 1 followed by
// source-over.
func BlendLayer(dst *image.RGBA, layer *image.RGBA, rect image.Rectangle, mode models.BlendMode, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	rect = rect.Intersect(dst.Bounds()).Intersect(layer.Bounds())
	if rect.Empty() {
		return
	}
	mix := blendFor(mode)

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			li := layer.PixOffset(x, y)
			la := float64(layer.Pix[li+3]) / 255
			if la == 0 {
				continue
			}
			sa := la * opacity

			di := dst.PixOffset(x, y)
			ab := float64(dst.Pix[di+3]) / 255

			var out [3]float64
			for c := 0; c < 3; c++ {
				cs := math.Min(float64(layer.Pix[li+c])/255/la, 1)
				cbp := float64(dst.Pix[di+c]) / 255
				cb := 0.0
				if ab > 0 {
					cb = math.Min(cbp/ab, 1)
				}
				mixed := (1-ab)*cs + ab*mix(cb, cs)
				out[c] = sa*mixed + (1-sa)*cbp
			}
			ao := sa + ab*(1-sa)

			dst.Pix[di] = unit8(out[0])
			dst.Pix[di+1] = unit8(out[1])
			dst.Pix[di+2] = unit8(out[2])
			dst.Pix[di+3] = unit8(ao)
		}
	}
}

func unit8(v float64) uint8 {
	v = v*255 + 0.5
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
