package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Crop extracts the rectangle (x1,y1)-(x2,y2) from img, optionally scaled,
// and returns it as base64 PNG. x2 and y2 are exclusive.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*EncodedImage, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	return EncodeBase64(cropScaled(img, image.Rect(x1, y1, x2, y2), scale))
}

// CropAround returns the square of side 2*radius centered on center,
// shifted to stay inside img, optionally scaled. It is used to zoom in on a
// placed or detected marker.
func CropAround(img image.Image, center image.Point, radius int, scale float64) (*EncodedImage, error) {
	if err := ValidateImage("image", img); err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, fmt.Errorf("crop radius %d must be positive: %w", radius, ErrConfiguration)
	}

	bounds := img.Bounds()
	side := 2 * radius
	r := image.Rect(center.X-radius, center.Y-radius, center.X+radius, center.Y+radius)

	if side >= bounds.Dx() {
		r.Min.X, r.Max.X = bounds.Min.X, bounds.Max.X
	} else if r.Min.X < bounds.Min.X {
		r = r.Add(image.Pt(bounds.Min.X-r.Min.X, 0))
	} else if r.Max.X > bounds.Max.X {
		r = r.Sub(image.Pt(r.Max.X-bounds.Max.X, 0))
	}
	if side >= bounds.Dy() {
		r.Min.Y, r.Max.Y = bounds.Min.Y, bounds.Max.Y
	} else if r.Min.Y < bounds.Min.Y {
		r = r.Add(image.Pt(0, bounds.Min.Y-r.Min.Y))
	} else if r.Max.Y > bounds.Max.Y {
		r = r.Sub(image.Pt(0, r.Max.Y-bounds.Max.Y))
	}

	return EncodeBase64(cropScaled(img, r, scale))
}

func cropScaled(img image.Image, r image.Rectangle, scale float64) *image.NRGBA {
	cropped := imaging.Crop(img, r)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}
	return cropped
}
