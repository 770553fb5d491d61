package detection

import (
	"image/color"
	"testing"
)

func TestAnnotate_DrawsBoxAndCrossHair(t *testing.T) {
	img := createTestImage(100, 100, color.Black)
	fillRect(img, 20, 30, 60, 70)

	region, err := Detect(img, DefaultMinIntensity, DefaultMaxIntensity)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	out := Annotate(img, region, "#00ff00")
	green := color.NRGBA{0, 255, 0, 255}

	checks := []struct {
		name string
		x, y int
	}{
		{"top edge", 40, 30},
		{"outer top edge", 40, 29},
		{"left edge", 20, 50},
		{"bottom-right corner", 60, 70},
		{"center", 40, 50},
		{"cross-hair arm", 48, 50},
	}
	for _, c := range checks {
		if got := out.NRGBAAt(c.x, c.y); got != green {
			t.Errorf("%s (%d,%d): got %v, want %v", c.name, c.x, c.y, got, green)
		}
	}

	// Input untouched, background untouched.
	if got := img.NRGBAAt(40, 30); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("input modified: %v", got)
	}
	if got := out.NRGBAAt(5, 5); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("background: got %v", got)
	}
}

func TestAnnotate_BadColorFallsBack(t *testing.T) {
	img := createTestImage(20, 20, color.Black)
	fillRect(img, 5, 5, 10, 10)
	region, _ := Detect(img, DefaultMinIntensity, DefaultMaxIntensity)

	out := Annotate(img, region, "not-a-color")
	if got := out.NRGBAAt(5, 5); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("got %v, want default red", got)
	}
}

func TestAnnotate_NoDetection(t *testing.T) {
	img := createTestImage(20, 20, color.NRGBA{1, 2, 3, 255})
	out := Annotate(img, NoDetection, "#00ff00")

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if out.NRGBAAt(x, y) != (color.NRGBA{1, 2, 3, 255}) {
				t.Fatalf("pixel (%d,%d) changed", x, y)
			}
		}
	}
}
