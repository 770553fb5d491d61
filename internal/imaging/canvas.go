package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// maxCanvasChannel caps each channel of a generated canvas so the canvas
// itself never falls inside the default white detection band.
const maxCanvasChannel = 200

// SolidCanvas returns an opaque width x height canvas filled with a random
// color drawn from s. Each channel lies in [0, 200].
func SolidCanvas(s *Sampler, width, height int) (*image.NRGBA, color.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, color.NRGBA{}, fmt.Errorf("canvas size %dx%d must be positive: %w", width, height, ErrConfiguration)
	}

	fill := color.NRGBA{
		R: uint8(s.Intn(maxCanvasChannel + 1)),
		G: uint8(s.Intn(maxCanvasChannel + 1)),
		B: uint8(s.Intn(maxCanvasChannel + 1)),
		A: 255,
	}
	return imaging.New(width, height, fill), fill, nil
}
