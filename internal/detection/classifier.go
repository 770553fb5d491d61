package detection

import (
	"context"
	"fmt"
	"image"
	"sort"

	gcpimaging "github.com/ironsheep/gcp-sim/internal/imaging"
)

// Detection is one object reported by a Classifier.
type Detection struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
	Center     Point           `json:"center"`
}

// Classifier finds markers in the image file at path, reporting only
// detections scoring at least confidence.
//
// Implementations may wrap an external model; the publish loop never calls
// one directly.
type Classifier interface {
	Classify(ctx context.Context, path string, confidence float64) ([]Detection, error)
}

// DefaultLadder lists the confidence thresholds ClassifyLadder tries, from
// strictest to most lenient.
var DefaultLadder = []float64{0.25, 0.1, 0.05, 0.01}

// LadderResult is the outcome of ClassifyLadder.
type LadderResult struct {
	// Confidence is the threshold that produced Detections, or the last
	// threshold tried when nothing was found.
	Confidence float64     `json:"confidence"`
	Detections []Detection `json:"detections"`
}

// ClassifyLadder runs c at each threshold in ladder until one returns at
// least one detection. A nil or empty ladder uses DefaultLadder.
func ClassifyLadder(ctx context.Context, c Classifier, path string, ladder []float64) (*LadderResult, error) {
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}

	result := &LadderResult{Detections: []Detection{}}
	for _, conf := range ladder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detections, err := c.Classify(ctx, path, conf)
		if err != nil {
			return nil, fmt.Errorf("classify at confidence %g: %w", conf, err)
		}
		result.Confidence = conf
		if len(detections) > 0 {
			result.Detections = detections
			return result, nil
		}
	}
	return result, nil
}

// RingLabel is the label RingClassifier assigns to its detections.
const RingLabel = "gcp"

// RingClassifier is an in-process Classifier that looks for ring-shaped
// groups of near-white pixels.
type RingClassifier struct {
	// MinIntensity and MaxIntensity bound the white band. Zero values use
	// the detection defaults.
	MinIntensity int
	MaxIntensity int

	// MinRadius and MaxRadius bound the mean component radius in pixels.
	// A zero MaxRadius disables the upper bound.
	MinRadius float64
	MaxRadius float64
}

// Classify implements Classifier.
func (r *RingClassifier) Classify(ctx context.Context, path string, confidence float64) ([]Detection, error) {
	img, err := gcpimaging.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return r.ClassifyImage(ctx, img, confidence)
}

// ClassifyImage runs the classifier on an already decoded image.
func (r *RingClassifier) ClassifyImage(ctx context.Context, img image.Image, confidence float64) ([]Detection, error) {
	lo, hi := r.MinIntensity, r.MaxIntensity
	if lo == 0 && hi == 0 {
		lo, hi = DefaultMinIntensity, DefaultMaxIntensity
	}

	mask, err := NewMask(img, lo, hi)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	detections := make([]Detection, 0)
	for _, comp := range mask.Components(minComponentArea(r.MinRadius)) {
		if comp.Radius < r.MinRadius {
			continue
		}
		if r.MaxRadius > 0 && comp.Radius > r.MaxRadius {
			continue
		}
		if comp.Roundness < confidence {
			continue
		}
		detections = append(detections, Detection{
			Label:      RingLabel,
			Confidence: comp.Roundness,
			Box:        comp.Bounds.Add(origin),
			Center: Point{
				X: comp.Centroid.X + float64(origin.X),
				Y: comp.Centroid.Y + float64(origin.Y),
			},
		})
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
	return detections, nil
}

// minComponentArea drops specks too small to be a ring of radius r.
func minComponentArea(r float64) int {
	if r < 2 {
		return 4
	}
	return int(r)
}
