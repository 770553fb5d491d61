package imaging

import (
	"errors"
	"fmt"
	"image"
)

// ErrConfiguration reports invalid bounds or parameters (for example
// minScale > maxScale, a non-positive scale, or a marker that cannot fit the
// canvas). It is returned immediately by the operation that received it.
var ErrConfiguration = errors.New("configuration error")

// ErrInvalidImage reports a nil, zero-sized, undecodable or unreadable image.
var ErrInvalidImage = errors.New("invalid image")

// ValidateImage returns ErrInvalidImage (wrapped with name) when img is nil or
// has an empty bounding box.
func ValidateImage(name string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("%s is nil: %w", name, ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%s has zero size %dx%d: %w", name, b.Dx(), b.Dy(), ErrInvalidImage)
	}
	return nil
}
