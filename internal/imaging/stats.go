package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/lucasb-eyer/go-colorful"
)

// ChannelStats summarizes one 8-bit channel of an image.
type ChannelStats struct {
	Channel int     `json:"channel"` // 0=R, 1=G, 2=B, 3=A
	Name    string  `json:"name"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Mean    float64 `json:"mean"` // rounded to 2 decimals
}

// HSLColor is a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// MeanColor is the per-channel mean of an image expressed as a color.
type MeanColor struct {
	Hex string   `json:"hex"`
	HSL HSLColor `json:"hsl"`
}

// ImageStats contains per-channel statistics for an image.
type ImageStats struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Dimensions is "<height> x <width>", rows first.
	Dimensions string `json:"dimensions"`

	// NumChannels is 3 for fully opaque images and 4 otherwise.
	NumChannels int `json:"num_channels"`

	Channels  []ChannelStats `json:"channels"`
	MeanColor MeanColor      `json:"mean_color"`
}

// ChannelStatistics computes min, max and mean of every channel of img.
//
// The alpha channel is only reported for images that are not fully opaque,
// matching how a decoder would expose an RGB versus RGBA file.
func ChannelStatistics(img image.Image) (*ImageStats, error) {
	if err := ValidateImage("image", img); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	hist := histogram.NewRGBAHistogram(img)

	channels := []ChannelStats{
		summarize(0, "red", hist.R.Bins),
		summarize(1, "green", hist.G.Bins),
		summarize(2, "blue", hist.B.Bins),
	}
	alpha := summarize(3, "alpha", hist.A.Bins)
	if alpha.Min < 255 {
		channels = append(channels, alpha)
	}

	mean := colorful.Color{
		R: channels[0].Mean / 255,
		G: channels[1].Mean / 255,
		B: channels[2].Mean / 255,
	}.Clamped()
	h, s, l := mean.Hsl()

	return &ImageStats{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Dimensions:  fmt.Sprintf("%d x %d", bounds.Dy(), bounds.Dx()),
		NumChannels: len(channels),
		Channels:    channels,
		MeanColor: MeanColor{
			Hex: mean.Hex(),
			HSL: HSLColor{
				H: int(math.Round(h)),
				S: int(math.Round(s * 100)),
				L: int(math.Round(l * 100)),
			},
		},
	}, nil
}

// summarize reduces a 256-bin histogram to min, max and mean sample values.
func summarize(channel int, name string, bins []int) ChannelStats {
	stats := ChannelStats{Channel: channel, Name: name, Min: -1}

	var total, weighted int
	for value, count := range bins {
		if count == 0 {
			continue
		}
		if stats.Min < 0 {
			stats.Min = value
		}
		stats.Max = value
		total += count
		weighted += value * count
	}

	if total == 0 {
		stats.Min = 0
		return stats
	}
	stats.Mean = math.Round(float64(weighted)/float64(total)*100) / 100
	return stats
}
