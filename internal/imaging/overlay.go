package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CompositeResult is the output of one marker placement.
type CompositeResult struct {
	// Image is the canvas copy with the marker blended in. Its bounds start
	// at (0,0) and match the canvas size.
	Image *image.NRGBA `json:"-"`

	// Center is the accepted marker center in canvas pixel coordinates.
	Center image.Point `json:"center"`

	// MarkerWidth and MarkerHeight are the rotated and resized marker
	// dimensions in pixels.
	MarkerWidth  int `json:"marker_width"`
	MarkerHeight int `json:"marker_height"`

	// Transform is the placement that produced this composite.
	Transform Transform `json:"transform"`
}

// Compositor rotates and scales a marker template and alpha-blends it onto a
// copy of a base canvas.
type Compositor struct {
	// Sampler picks the marker center when the caller does not supply one.
	// It may be nil when every call passes an explicit center.
	Sampler *Sampler

	// Filter is the resampling filter for the resize step. The zero value
	// selects Lanczos.
	Filter imaging.ResampleFilter
}

// NewCompositor returns a Compositor that samples centers from s and resizes
// with Lanczos.
func NewCompositor(s *Sampler) *Compositor {
	return &Compositor{Sampler: s, Filter: imaging.Lanczos}
}

// Composite places marker onto a copy of base using t.
//
// The marker is rotated counter-clockwise by t.RotationDegrees about its own
// center with the bounding box expanded so nothing is cropped. It is then
// resized to floor(base width * t.ScaleFactor) pixels wide, keeping the
// rotated aspect ratio.
//
// When center is nil a center is sampled so the marker lies fully inside the
// canvas. An explicit center is used as is and the marker may be clipped by
// the canvas edge.
//
// The marker's top-left corner lands at center - size/2 (integer division).
// base is never modified.
//
// # Errors
//
//   - ErrInvalidImage when base or marker is nil or empty, or when the scaled
//     marker collapses to zero pixels
//   - ErrConfiguration when the scaled marker is larger than the canvas and no
//     center was supplied, or when no Sampler is available to pick one
func (c *Compositor) Composite(base, marker image.Image, t Transform, center *image.Point) (*CompositeResult, error) {
	if err := ValidateImage("base canvas", base); err != nil {
		return nil, err
	}
	if err := ValidateImage("marker template", marker); err != nil {
		return nil, err
	}

	baseBounds := base.Bounds()
	rotated := imaging.Rotate(marker, t.RotationDegrees, color.Transparent)

	rotW := rotated.Bounds().Dx()
	rotH := rotated.Bounds().Dy()
	if rotW <= 0 || rotH <= 0 {
		return nil, fmt.Errorf("rotated marker is empty: %w", ErrInvalidImage)
	}

	width := int(float64(baseBounds.Dx()) * t.ScaleFactor)
	height := int(float64(width) * float64(rotH) / float64(rotW))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("marker scaled by %g collapses to %dx%d: %w",
			t.ScaleFactor, width, height, ErrInvalidImage)
	}

	filter := c.Filter
	if filter.Support == 0 && filter.Kernel == nil {
		filter = imaging.Lanczos
	}
	resized := imaging.Resize(rotated, width, height, filter)

	var pos image.Point
	if center != nil {
		pos = *center
	} else {
		if c.Sampler == nil {
			return nil, fmt.Errorf("no center given and no sampler to choose one: %w", ErrConfiguration)
		}
		var err error
		pos, err = c.Sampler.Position(baseBounds.Size(), image.Pt(width, height))
		if err != nil {
			return nil, err
		}
	}

	topLeft := image.Pt(pos.X-width/2, pos.Y-height/2)
	composite := imaging.Overlay(base, resized, baseBounds.Min.Add(topLeft), 1.0)

	return &CompositeResult{
		Image:        composite,
		Center:       pos,
		MarkerWidth:  width,
		MarkerHeight: height,
		Transform:    t,
	}, nil
}
