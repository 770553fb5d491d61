package imaging

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"time"
)

// Transform is the randomized placement applied to the marker in one cycle.
type Transform struct {
	// ScaleFactor is the marker width as a fraction of the canvas width.
	ScaleFactor float64 `json:"scale_factor"`

	// RotationDegrees is the counter-clockwise rotation in [0, 360).
	RotationDegrees float64 `json:"rotation_degrees"`
}

// Sampler draws placement transforms and marker positions from a seedable
// random source.
//
// A Sampler is not safe for concurrent use. The publish loop owns exactly one;
// one-shot callers create their own.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded with seed. A zero seed is replaced with
// a time-based one, so identical non-zero seeds reproduce identical sequences.
func NewSampler(seed uint64) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return NewSamplerFromRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewSamplerFromRand wraps an existing random source.
func NewSamplerFromRand(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// Sample returns a transform with RotationDegrees uniform in [0, 360) and
// ScaleFactor uniform in [minScale, maxScale].
//
// Both bounds must be positive and minScale must not exceed maxScale;
// otherwise ErrConfiguration is returned and no randomness is consumed.
func (s *Sampler) Sample(minScale, maxScale float64) (Transform, error) {
	if err := ValidateScaleBounds(minScale, maxScale); err != nil {
		return Transform{}, err
	}

	rotation := s.rng.Float64() * 360
	scale := minScale + s.rng.Float64()*(maxScale-minScale)

	return Transform{ScaleFactor: scale, RotationDegrees: rotation}, nil
}

// Position returns a center point such that a size.X by size.Y marker placed
// around it, with its top-left corner at center - size/2, lies entirely
// inside a canvas of the given size.
func (s *Sampler) Position(canvas, size image.Point) (image.Point, error) {
	if size.X > canvas.X || size.Y > canvas.Y {
		return image.Point{}, fmt.Errorf("marker %dx%d does not fit canvas %dx%d: %w",
			size.X, size.Y, canvas.X, canvas.Y, ErrConfiguration)
	}

	return image.Point{
		X: s.intBetween(size.X/2, canvas.X-size.X+size.X/2),
		Y: s.intBetween(size.Y/2, canvas.Y-size.Y+size.Y/2),
	}, nil
}

// intBetween returns a uniform integer in [lo, hi].
func (s *Sampler) intBetween(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

// Intn returns a uniform integer in [0, n). It exposes the sampler's source
// to helpers that need extra randomness in the same reproducible sequence.
func (s *Sampler) Intn(n int) int {
	return s.rng.IntN(n)
}

// ValidateScaleBounds checks that both bounds are finite and
// 0 < minScale <= maxScale.
func ValidateScaleBounds(minScale, maxScale float64) error {
	for _, v := range []float64{minScale, maxScale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scale bounds must be finite, got [%g, %g]: %w", minScale, maxScale, ErrConfiguration)
		}
	}
	if minScale <= 0 || maxScale <= 0 {
		return fmt.Errorf("scale bounds must be positive, got [%g, %g]: %w", minScale, maxScale, ErrConfiguration)
	}
	if minScale > maxScale {
		return fmt.Errorf("min scale %g exceeds max scale %g: %w", minScale, maxScale, ErrConfiguration)
	}
	return nil
}
