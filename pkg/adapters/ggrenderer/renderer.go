// Package ggrenderer draws synthetic frames used when no captured image is
// available for a sequence position.
package ggrenderer

import (
	"image"

	"github.com/fogleman/gg"
)

// Placeholder renders a blank frame for gaps that precede any valid capture.
// It is deliberately plain: a dark field with a thin inset border, so a
// viewer can tell "no signal yet" apart from a black page render.
func Placeholder(width, height int) image.Image {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.07, 0.07, 0.09)
	dc.Clear()

	inset := float64(width) * 0.04
	dc.SetRGB(0.25, 0.25, 0.30)
	dc.SetLineWidth(2)
	dc.DrawRectangle(inset, inset, float64(width)-2*inset, float64(height)-2*inset)
	dc.Stroke()

	return dc.Image()
}
