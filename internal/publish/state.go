package publish

import (
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/gcp-sim/internal/detection"
	"github.com/ironsheep/gcp-sim/internal/imaging"
)

// State summarizes the latest published cycle. A State is immutable once
// committed; readers share the same pointer.
type State struct {
	// Version identifies the file pair committed together with this State.
	Version uuid.UUID `json:"version"`

	// Cycle counts committed cycles since the loop was created, from 1.
	Cycle uint64 `json:"cycle"`

	ScaleFactor     float64 `json:"scaleFactor"`
	RotationDegrees float64 `json:"rotationDegrees"`

	// CenterPosition is where the marker was placed, as [x, y].
	CenterPosition [2]int `json:"centerPosition"`

	// DetectedCenter is the detector's center as [x, y], or nil when nothing
	// matched the band.
	DetectedCenter *[2]float64 `json:"detectedCenter"`

	// MarkerSize is the rotated and resized marker size as [width, height].
	MarkerSize [2]int `json:"markerSize"`

	// Region is the full detection result.
	Region detection.Region `json:"region"`

	// CanvasColor is the fill of a generated canvas, empty for a file canvas.
	CanvasColor string `json:"canvasColor,omitempty"`

	PublishedAt time.Time `json:"publishedAt"`
}

// NewState builds the State for one cycle's composite and detection.
func NewState(cycle uint64, res *imaging.CompositeResult, region detection.Region, at time.Time) *State {
	s := &State{
		Version:         uuid.New(),
		Cycle:           cycle,
		ScaleFactor:     res.Transform.ScaleFactor,
		RotationDegrees: res.Transform.RotationDegrees,
		CenterPosition:  [2]int{res.Center.X, res.Center.Y},
		MarkerSize:      [2]int{res.MarkerWidth, res.MarkerHeight},
		Region:          region,
		PublishedAt:     at.UTC(),
	}
	if region.Found {
		s.DetectedCenter = &[2]float64{region.Center.X, region.Center.Y}
	}
	return s
}
