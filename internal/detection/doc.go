// Package detection locates a ground control point (GCP) marker in an image.
//
// The core detector is a color band filter: a pixel matches when its red,
// green and blue channels all lie within [minIntensity, maxIntensity]
// (240-255 by default, i.e. near white). The matching pixels form a Mask,
// from which a Region is derived:
//
//   - Corners: the axis-aligned box through the extreme matching pixels
//   - Midpoints: the midpoints of the two box diagonals
//   - Center: the mean of the two midpoints
//
// Both diagonal midpoints are computed as
// (ceil((xMin+xMax)/2), ceil((yMin+yMax)/2)) and are therefore always equal.
// Consumers read either field, so both are kept.
//
// An image without matching pixels yields NoDetection, which is a normal
// result and not an error.
//
// # Classification
//
// Classifier is the contract for a marker classifier that takes an image
// path and a confidence threshold. ClassifyLadder retries a classifier with
// decreasing thresholds (0.25, 0.1, 0.05, 0.01) until something is found.
// RingClassifier implements the contract in process by scoring the
// roundness of connected mask components.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Corners are inclusive pixel positions
//
// # Performance Considerations
//
// Detection is a single pass over the pixels. Component analysis adds a
// flood fill over matching pixels only, which is cheap for a marker
// covering a few percent of the canvas.
package detection
