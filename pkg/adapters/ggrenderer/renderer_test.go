package ggrenderer

import (
	"image/color"
	"testing"
)

func TestPlaceholder_Dimensions(t *testing.T) {
	img := Placeholder(320, 240)
	b := img.Bounds()
	if b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("expected 320x240, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPlaceholder_ClampsInvalidSize(t *testing.T) {
	img := Placeholder(0, -5)
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		t.Errorf("expected at least 1x1, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPlaceholder_IsDarkNotBlack(t *testing.T) {
	img := Placeholder(100, 100)

	// Center is the dark field, distinguishable from a pure black render.
	r, g, b, _ := img.At(50, 50).RGBA()
	if r == 0 && g == 0 && b == 0 {
		t.Error("placeholder should not be pure black")
	}
	c := color.NRGBAModel.Convert(img.At(50, 50)).(color.NRGBA)
	if c.R > 64 || c.G > 64 || c.B > 64 {
		t.Errorf("placeholder field too bright: %+v", c)
	}
}
