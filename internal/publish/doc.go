// Package publish runs the marker simulation loop and publishes its output.
//
// Each cycle samples a placement, composites the marker onto the canvas,
// detects it again and publishes two PNG files (the composite and the
// filtered detection view) plus a State record. Files are staged under
// temporary names and renamed over stable names, so readers never see a
// partial file. The State is swapped atomically under the same lock as the
// renames, so a reader using Store.Open gets a file and a State from the
// same cycle.
//
// Errors that end a cycle (ErrPublishIO, imaging.ErrInvalidImage) also end
// the loop; they are logged and available from Loop.Err. A cycle that finds
// no marker is not an error and is published with a nil DetectedCenter.
package publish
