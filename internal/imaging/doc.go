// Package imaging places a synthetic ground control point (GCP) marker onto a
// base canvas.
//
// A placement is drawn by a Sampler (scale factor and rotation) and applied by
// a Compositor, which rotates the marker template about its center, resizes
// it relative to the canvas width and alpha-blends it onto a copy of the
// canvas. The package also loads and caches images, generates solid test
// canvases, reports per-channel statistics and encodes results as PNG.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. A marker center c with size
// (w, h) puts the marker's top-left pixel at (c.X - w/2, c.Y - h/2) using
// integer division.
//
// # Randomness
//
// Every random choice goes through a Sampler built on math/rand/v2. Two
// samplers created with the same non-zero seed produce the same sequence of
// transforms and positions. A Sampler is not safe for concurrent use.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Compositing and statistics are
// stateless and never modify their inputs.
//
// # Error Handling
//
// Invalid parameters wrap ErrConfiguration; nil, empty or undecodable images
// wrap ErrInvalidImage. Use errors.Is to classify them.
package imaging
