package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

// createInMemoryImage creates a solid-color image in memory.
func createInMemoryImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createRingMarker creates a transparent size x size template with an opaque
// white ring between the inner and outer radius.
func createRingMarker(size int, outer, inner float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)-c, float64(y)-c)
			if d <= outer && d >= inner {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

var grass = color.NRGBA{34, 120, 34, 255}

func TestComposite_ExplicitCenter(t *testing.T) {
	base := createInMemoryImage(800, 600, grass)
	marker := createRingMarker(200, 90, 70)
	center := image.Pt(400, 300)

	c := NewCompositor(nil)
	res, err := c.Composite(base, marker, Transform{ScaleFactor: 0.1}, &center)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	if res.MarkerWidth != 80 || res.MarkerHeight != 80 {
		t.Errorf("marker size: got %dx%d, want 80x80", res.MarkerWidth, res.MarkerHeight)
	}
	if res.Center != center {
		t.Errorf("center: got %v, want %v", res.Center, center)
	}
	if res.Image.Bounds() != base.Bounds() {
		t.Errorf("bounds: got %v, want %v", res.Image.Bounds(), base.Bounds())
	}

	// The hole of the ring shows the canvas.
	if got := res.Image.NRGBAAt(400, 300); got != grass {
		t.Errorf("ring hole: got %v, want %v", got, grass)
	}

	// Middle of the ring band is white.
	got := res.Image.NRGBAAt(431, 300)
	if got.R < 240 || got.G < 240 || got.B < 240 {
		t.Errorf("ring band: got %v, want white", got)
	}

	// Far corner is untouched.
	if got := res.Image.NRGBAAt(10, 10); got != grass {
		t.Errorf("corner: got %v, want %v", got, grass)
	}
}

func TestComposite_DoesNotModifyBase(t *testing.T) {
	base := createInMemoryImage(300, 200, grass)
	marker := createRingMarker(50, 24, 10)
	center := image.Pt(150, 100)

	c := NewCompositor(nil)
	if _, err := c.Composite(base, marker, Transform{ScaleFactor: 0.5, RotationDegrees: 30}, &center); err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			if base.NRGBAAt(x, y) != grass {
				t.Fatalf("base modified at (%d,%d)", x, y)
			}
		}
	}
}

func TestComposite_RotationKeepsWidth(t *testing.T) {
	base := createInMemoryImage(1000, 800, grass)
	marker := createRingMarker(100, 48, 30)
	center := image.Pt(500, 400)

	c := NewCompositor(nil)
	for _, deg := range []float64{0, 45, 90, 137.5, 359} {
		res, err := c.Composite(base, marker, Transform{ScaleFactor: 0.1, RotationDegrees: deg}, &center)
		if err != nil {
			t.Fatalf("Composite(%g) failed: %v", deg, err)
		}
		if res.MarkerWidth != 100 {
			t.Errorf("rotation %g: width %d, want 100", deg, res.MarkerWidth)
		}
		// Square template stays square after expansion.
		if res.MarkerHeight < 99 || res.MarkerHeight > 101 {
			t.Errorf("rotation %g: height %d, want about 100", deg, res.MarkerHeight)
		}
	}
}

func TestComposite_SampledCenterInside(t *testing.T) {
	base := createInMemoryImage(640, 480, grass)
	marker := createRingMarker(120, 55, 40)
	s := NewSampler(2024)
	c := NewCompositor(s)

	for i := 0; i < 50; i++ {
		tr, err := s.Sample(0.05, 0.12)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		res, err := c.Composite(base, marker, tr, nil)
		if err != nil {
			t.Fatalf("Composite failed: %v", err)
		}
		left := res.Center.X - res.MarkerWidth/2
		top := res.Center.Y - res.MarkerHeight/2
		if left < 0 || top < 0 || left+res.MarkerWidth > 640 || top+res.MarkerHeight > 480 {
			t.Fatalf("marker %dx%d at %v leaves canvas", res.MarkerWidth, res.MarkerHeight, res.Center)
		}
	}
}

func TestComposite_EdgeCenterClips(t *testing.T) {
	base := createInMemoryImage(200, 100, grass)
	marker := createInMemoryImage(20, 20, color.NRGBA{255, 255, 255, 255})
	center := image.Pt(0, 0)

	c := NewCompositor(nil)
	res, err := c.Composite(base, marker, Transform{ScaleFactor: 0.1}, &center)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if res.Image.Bounds() != base.Bounds() {
		t.Errorf("bounds: got %v, want %v", res.Image.Bounds(), base.Bounds())
	}
	if got := res.Image.NRGBAAt(0, 0); got.R != 255 {
		t.Errorf("clipped marker pixel: got %v, want white", got)
	}
	if got := res.Image.NRGBAAt(15, 15); got != grass {
		t.Errorf("outside marker: got %v, want %v", got, grass)
	}
}

func TestComposite_Errors(t *testing.T) {
	base := createInMemoryImage(100, 100, grass)
	marker := createRingMarker(40, 18, 10)
	center := image.Pt(50, 50)

	tests := []struct {
		name    string
		c       *Compositor
		base    image.Image
		marker  image.Image
		tr      Transform
		center  *image.Point
		wantErr error
	}{
		{"nil base", NewCompositor(nil), nil, marker, Transform{ScaleFactor: 0.1}, &center, ErrInvalidImage},
		{"empty marker", NewCompositor(nil), base, image.NewNRGBA(image.Rect(0, 0, 0, 0)), Transform{ScaleFactor: 0.1}, &center, ErrInvalidImage},
		{"collapsed scale", NewCompositor(nil), base, marker, Transform{ScaleFactor: 0.001}, &center, ErrInvalidImage},
		{"no sampler", &Compositor{}, base, marker, Transform{ScaleFactor: 0.1}, nil, ErrConfiguration},
		{"too large", NewCompositor(NewSampler(1)), base, marker, Transform{ScaleFactor: 1.5}, nil, ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.Composite(tt.base, tt.marker, tt.tr, tt.center)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
