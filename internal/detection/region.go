package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	gcpimaging "github.com/ironsheep/gcp-sim/internal/imaging"
)

// Default intensity band: near-white pixels on every channel.
const (
	DefaultMinIntensity = 240
	DefaultMaxIntensity = 255
)

// Point is a pixel coordinate that may fall between pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Corners are the four corners of the axis-aligned box enclosing every
// matching pixel. Coordinates are inclusive pixel positions.
type Corners struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomRight Point `json:"bottom_right"`
	BottomLeft  Point `json:"bottom_left"`
}

// Midpoints holds the midpoints of the two box diagonals.
//
// Both are computed from the same extremes, so Diag1 and Diag2 are always
// equal. The pair is kept for consumers that read either field.
type Midpoints struct {
	Diag1 Point `json:"diag1"`
	Diag2 Point `json:"diag2"`
}

// Region is the outcome of one detection.
type Region struct {
	// Found is false when no pixel fell inside the band. All other fields
	// are zero in that case.
	Found bool `json:"found"`

	Corners   Corners   `json:"corners"`
	Midpoints Midpoints `json:"diagonal_midpoints"`

	// Center is the mean of the two diagonal midpoints.
	Center Point `json:"center"`

	// MatchCount is the number of pixels inside the band.
	MatchCount int `json:"match_count"`
}

// NoDetection is the Region returned when nothing matches.
var NoDetection = Region{}

// Mask marks the pixels of an image whose red, green and blue channels all
// lie within [Min, Max].
type Mask struct {
	Min, Max uint8

	width, height int
	bits          []bool
	count         int

	// extremes over matching pixels; valid when count > 0
	minX, minY, maxX, maxY int
}

// ValidateBand checks that 0 <= minIntensity <= maxIntensity <= 255.
func ValidateBand(minIntensity, maxIntensity int) error {
	if minIntensity < 0 || maxIntensity > 255 || minIntensity > maxIntensity {
		return fmt.Errorf("intensity band [%d, %d] must satisfy 0 <= min <= max <= 255: %w",
			minIntensity, maxIntensity, gcpimaging.ErrConfiguration)
	}
	return nil
}

// NewMask builds the band mask of img.
//
// Channel values are compared without alpha premultiplication, so a fully
// transparent white pixel still matches. Mask coordinates are relative to
// img.Bounds().Min.
func NewMask(img image.Image, minIntensity, maxIntensity int) (*Mask, error) {
	if err := gcpimaging.ValidateImage("image", img); err != nil {
		return nil, err
	}
	if err := ValidateBand(minIntensity, maxIntensity); err != nil {
		return nil, err
	}

	src := toNRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	lo, hi := uint8(minIntensity), uint8(maxIntensity)

	m := &Mask{
		Min:    lo,
		Max:    hi,
		width:  w,
		height: h,
		bits:   make([]bool, w*h),
		minX:   w,
		minY:   h,
		maxX:   -1,
		maxY:   -1,
	}

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			if r < lo || r > hi || g < lo || g > hi || b < lo || b > hi {
				continue
			}
			m.bits[y*w+x] = true
			m.count++
			if x < m.minX {
				m.minX = x
			}
			if x > m.maxX {
				m.maxX = x
			}
			if y < m.minY {
				m.minY = y
			}
			if y > m.maxY {
				m.maxY = y
			}
		}
	}

	return m, nil
}

// toNRGBA returns img as a 0-origin NRGBA, reusing it when it already is one.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// At reports whether pixel (x, y) matched. Out-of-range coordinates report
// false.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x]
}

// Count returns the number of matching pixels.
func (m *Mask) Count() int { return m.count }

// Size returns the mask dimensions.
func (m *Mask) Size() image.Point { return image.Pt(m.width, m.height) }

// Region derives the bounding box, diagonal midpoints and center of the
// matching pixels, or NoDetection.
func (m *Mask) Region() Region {
	if m.count == 0 {
		return NoDetection
	}

	xMin, xMax := float64(m.minX), float64(m.maxX)
	yMin, yMax := float64(m.minY), float64(m.maxY)

	corners := Corners{
		TopLeft:     Point{xMin, yMin},
		TopRight:    Point{xMax, yMin},
		BottomRight: Point{xMax, yMax},
		BottomLeft:  Point{xMin, yMax},
	}

	diag1 := Point{
		X: math.Ceil((xMin + xMax) / 2),
		Y: math.Ceil((yMin + yMax) / 2),
	}
	diag2 := Point{
		X: math.Ceil((xMin + xMax) / 2),
		Y: math.Ceil((yMin + yMax) / 2),
	}

	return Region{
		Found:     true,
		Corners:   corners,
		Midpoints: Midpoints{Diag1: diag1, Diag2: diag2},
		Center: Point{
			X: (diag1.X + diag2.X) / 2,
			Y: (diag1.Y + diag2.Y) / 2,
		},
		MatchCount: m.count,
	}
}

// Image renders the mask as an opaque image: matching pixels white, the rest
// black.
func (m *Mask) Image() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.width, m.height))
	for i, on := range m.bits {
		if on {
			out.Pix[i] = 0xff
		}
	}
	return out
}

// Filter returns a copy of img in which matching pixels keep their color and
// every other pixel is opaque black. img must be the image the mask was
// built from.
func (m *Mask) Filter(img image.Image) *image.NRGBA {
	src := toNRGBA(img)
	out := image.NewNRGBA(image.Rect(0, 0, m.width, m.height))
	black := color.NRGBA{0, 0, 0, 255}

	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.bits[y*m.width+x] {
				out.SetNRGBA(x, y, src.NRGBAAt(x, y))
			} else {
				out.SetNRGBA(x, y, black)
			}
		}
	}
	return out
}

// Detect finds the region of pixels whose red, green and blue channels all
// lie within [minIntensity, maxIntensity].
//
// It is a pure function of the pixel data: identical input always yields an
// identical Region. A band with no matching pixels yields NoDetection and a
// nil error.
//
// # Errors
//
//   - imaging.ErrInvalidImage when img is nil or empty
//   - imaging.ErrConfiguration when the band is outside [0, 255] or inverted
func Detect(img image.Image, minIntensity, maxIntensity int) (Region, error) {
	m, err := NewMask(img, minIntensity, maxIntensity)
	if err != nil {
		return NoDetection, err
	}
	return m.Region(), nil
}
