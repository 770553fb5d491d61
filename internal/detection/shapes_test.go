package detection

import (
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// drawRing paints a white ring centered at (cx, cy)
func drawRing(img *image.NRGBA, cx, cy, outer, inner float64) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			d2 := dx*dx + dy*dy
			if d2 <= outer*outer && d2 >= inner*inner {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
}

// fillRect paints a white axis-aligned rectangle, inclusive of x2 and y2
func fillRect(img *image.NRGBA, x1, y1, x2, y2 int) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
}

func TestComponents_Separate(t *testing.T) {
	img := createTestImage(100, 100, color.Black)
	fillRect(img, 10, 10, 29, 29) // 400 px
	fillRect(img, 60, 60, 69, 69) // 100 px
	fillRect(img, 90, 5, 90, 5)   // 1 px speck

	m, err := NewMask(img, DefaultMinIntensity, DefaultMaxIntensity)
	if err != nil {
		t.Fatalf("NewMask failed: %v", err)
	}

	comps := m.Components(4)
	if len(comps) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(comps))
	}
	if comps[0].Area != 400 || comps[1].Area != 100 {
		t.Errorf("areas: got %d, %d; want 400, 100", comps[0].Area, comps[1].Area)
	}
	if comps[0].Bounds != image.Rect(10, 10, 30, 30) {
		t.Errorf("bounds: got %v", comps[0].Bounds)
	}
	if comps[0].Centroid != (Point{19.5, 19.5}) {
		t.Errorf("centroid: got %+v, want {19.5 19.5}", comps[0].Centroid)
	}
}

func TestComponents_DiagonalConnectivity(t *testing.T) {
	img := createTestImage(20, 20, color.Black)
	for i := 2; i < 12; i++ {
		fillRect(img, i, i, i, i)
	}

	m, _ := NewMask(img, DefaultMinIntensity, DefaultMaxIntensity)
	comps := m.Components(1)
	if len(comps) != 1 || comps[0].Area != 10 {
		t.Fatalf("Expected one 10 px component, got %+v", comps)
	}
}

func TestComponents_Roundness(t *testing.T) {
	ring := createTestImage(200, 200, color.Black)
	drawRing(ring, 100, 100, 60, 45)

	square := createTestImage(200, 200, color.Black)
	fillRect(square, 50, 50, 149, 149)

	line := createTestImage(200, 200, color.Black)
	fillRect(line, 20, 100, 179, 101)

	score := func(img *image.NRGBA) float64 {
		m, err := NewMask(img, DefaultMinIntensity, DefaultMaxIntensity)
		if err != nil {
			t.Fatalf("NewMask failed: %v", err)
		}
		comps := m.Components(1)
		if len(comps) != 1 {
			t.Fatalf("Expected 1 component, got %d", len(comps))
		}
		return comps[0].Roundness
	}

	r, s, l := score(ring), score(square), score(line)
	if r < 0.85 {
		t.Errorf("ring roundness %g, want >= 0.85", r)
	}
	if s >= r {
		t.Errorf("square roundness %g should be below ring %g", s, r)
	}
	if l > 0.05 {
		t.Errorf("line roundness %g, want about 0", l)
	}
}

func TestComponents_Empty(t *testing.T) {
	img := createTestImage(50, 50, color.Black)
	m, _ := NewMask(img, DefaultMinIntensity, DefaultMaxIntensity)

	if comps := m.Components(1); len(comps) != 0 {
		t.Errorf("Expected no components, got %d", len(comps))
	}
}
