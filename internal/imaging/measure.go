package imaging

import (
	"image"
	"math"
)

// OffsetResult describes how far a detected center lies from the center the
// marker was placed at.
type OffsetResult struct {
	DistancePixels float64 `json:"distance_pixels"`
	DeltaX         float64 `json:"delta_x"`
	DeltaY         float64 `json:"delta_y"`
	AngleDegrees   float64 `json:"angle_degrees"`
}

// MeasureOffset returns the displacement from the placed center to the
// detected center (x, y). Angle 0 points right and 90 points down.
func MeasureOffset(placed image.Point, x, y float64) OffsetResult {
	dx := x - float64(placed.X)
	dy := y - float64(placed.Y)

	distance := math.Sqrt(dx*dx + dy*dy)
	angle := math.Atan2(dy, dx) * 180 / math.Pi

	return OffsetResult{
		DistancePixels: math.Round(distance*100) / 100,
		DeltaX:         dx,
		DeltaY:         dy,
		AngleDegrees:   math.Round(angle*10) / 10,
	}
}
