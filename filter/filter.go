// Package filter holds pure raster filters applied to placed designs before compositing.
package filter

import "image"

// Func transforms a raster into a new one. Implementations must not modify their input.
type Func func(src *image.NRGBA) *image.NRGBA

// Chain composes filters left to right. Nil entries are skipped.
func Chain(fs ...Func) Func {
	return func(src *image.NRGBA) *image.NRGBA {
		out := src
		for _, f := range fs {
			if f == nil {
				continue
			}
			out = f(out)
		}
		return out
	}
}
