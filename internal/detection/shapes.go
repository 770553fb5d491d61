package detection

import (
	"image"
	"math"
	"sort"
)

// Component is one 8-connected group of matching mask pixels.
type Component struct {
	// Bounds is the inclusive-exclusive bounding rectangle in mask
	// coordinates.
	Bounds image.Rectangle `json:"bounds"`

	// Centroid is the mean position of the component's pixels.
	Centroid Point `json:"centroid"`

	// Area is the number of pixels in the component.
	Area int `json:"area"`

	// Radius is the mean distance of the pixels from the centroid.
	Radius float64 `json:"radius"`

	// Roundness scores how ring- or disc-like the component is (0.0 to 1.0).
	Roundness float64 `json:"roundness"`
}

// Components groups the matching pixels of m into connected components with
// at least minArea pixels, sorted by area (largest first).
//
// # Algorithm
//
//  1. Flood fill: group matching pixels using 8-connectivity
//  2. Moments: accumulate centroid and bounding box per group
//  3. Roundness: 1 - (stddev / mean) of the pixel distances from the
//     centroid, multiplied by the bounding box aspect ratio
//
// A thin ring scores close to 1.0 because every pixel lies about the same
// distance from the center. A filled square scores lower, a line close to 0.
func (m *Mask) Components(minArea int) []Component {
	if m.count == 0 {
		return nil
	}

	visited := make([]bool, len(m.bits))
	components := make([]Component, 0)

	for y := m.minY; y <= m.maxY; y++ {
		for x := m.minX; x <= m.maxX; x++ {
			i := y*m.width + x
			if !m.bits[i] || visited[i] {
				continue
			}
			pixels := m.floodFill(visited, x, y)
			if len(pixels) < minArea {
				continue
			}
			components = append(components, measureComponent(pixels))
		}
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].Area > components[j].Area
	})
	return components
}

// floodFill collects the component containing (startX, startY).
//
// Uses an explicit stack rather than recursion so large markers cannot
// overflow the goroutine stack.
func (m *Mask) floodFill(visited []bool, startX, startY int) []image.Point {
	pixels := make([]image.Point, 0)
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= m.width || p.Y < 0 || p.Y >= m.height {
			continue
		}
		i := p.Y*m.width + p.X
		if visited[i] || !m.bits[i] {
			continue
		}

		visited[i] = true
		pixels = append(pixels, p)

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return pixels
}

// measureComponent computes bounds, centroid, mean radius and roundness of
// a non-empty pixel set.
func measureComponent(pixels []image.Point) Component {
	minX, minY := pixels[0].X, pixels[0].Y
	maxX, maxY := minX, minY
	var sumX, sumY float64

	for _, p := range pixels {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
		sumX += float64(p.X)
		sumY += float64(p.Y)
	}

	n := float64(len(pixels))
	cx, cy := sumX/n, sumY/n

	var sumD, sumD2 float64
	for _, p := range pixels {
		d := math.Hypot(float64(p.X)-cx, float64(p.Y)-cy)
		sumD += d
		sumD2 += d * d
	}
	mean := sumD / n
	variance := math.Max(sumD2/n-mean*mean, 0)

	w := float64(maxX - minX + 1)
	h := float64(maxY - minY + 1)

	roundness := 0.0
	if mean > 0 {
		aspect := math.Min(w, h) / math.Max(w, h)
		roundness = (1 - math.Sqrt(variance)/mean) * aspect
		roundness = math.Max(0, math.Min(1, roundness))
	}

	return Component{
		Bounds:    image.Rect(minX, minY, maxX+1, maxY+1),
		Centroid:  Point{X: cx, Y: cy},
		Area:      len(pixels),
		Radius:    mean,
		Roundness: roundness,
	}
}
