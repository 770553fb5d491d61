package detection

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultAnnotationColor is used when no or an unparsable color is given.
const DefaultAnnotationColor = "#ff0000"

// Annotate returns a copy of img with the region's bounding box and a
// cross-hair at its center drawn in hexColor ("#rrggbb" or "#rgb").
// A region that was not found is returned as an unmarked copy.
func Annotate(img image.Image, region Region, hexColor string) *image.NRGBA {
	out := imaging.Clone(img)
	if !region.Found {
		return out
	}

	c := parseAnnotationColor(hexColor)

	x1 := int(region.Corners.TopLeft.X)
	y1 := int(region.Corners.TopLeft.Y)
	x2 := int(region.Corners.BottomRight.X)
	y2 := int(region.Corners.BottomRight.Y)

	// Box outline, two pixels wide
	for t := 0; t < 2; t++ {
		hline(out, x1, x2, y1-t, c)
		hline(out, x1, x2, y2+t, c)
		vline(out, x1-t, y1, y2, c)
		vline(out, x2+t, y1, y2, c)
	}

	// Cross-hair
	cx := int(math.Round(region.Center.X))
	cy := int(math.Round(region.Center.Y))
	arm := max((x2-x1)/4, 6)
	hline(out, cx-arm, cx+arm, cy, c)
	vline(out, cx, cy-arm, cy+arm, c)

	return out
}

// parseAnnotationColor parses a hex color, falling back to
// DefaultAnnotationColor.
func parseAnnotationColor(hex string) color.NRGBA {
	col, err := colorful.Hex(hex)
	if err != nil {
		col, _ = colorful.Hex(DefaultAnnotationColor)
	}
	r, g, b := col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func hline(img *image.NRGBA, x1, x2, y int, c color.NRGBA) {
	for x := x1; x <= x2; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func vline(img *image.NRGBA, x, y1, y2 int, c color.NRGBA) {
	for y := y1; y <= y2; y++ {
		img.SetNRGBA(x, y, c)
	}
}
