// Package config loads gcp-sim settings with viper.
//
// Values come from, in increasing priority: built-in defaults, an optional
// gcp-sim.json in the config directory, and GCP_SIM_* environment variables
// (dots become underscores, e.g. GCP_SIM_SCALE_MIN).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ironsheep/gcp-sim/internal/detection"
	"github.com/ironsheep/gcp-sim/internal/imaging"
	"github.com/ironsheep/gcp-sim/internal/publish"
)

// FileName is the config file looked up in the config directory.
const FileName = "gcp-sim.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GCP_SIM"

// CanvasConfig selects the base canvas.
type CanvasConfig struct {
	Path   string `json:"path" mapstructure:"path"`
	Width  int    `json:"width" mapstructure:"width"`
	Height int    `json:"height" mapstructure:"height"`
}

// MarkerConfig selects the marker template.
type MarkerConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ScaleConfig bounds the marker width as a fraction of the canvas width.
type ScaleConfig struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// DetectConfig is the intensity band of the detector.
type DetectConfig struct {
	MinIntensity int `json:"minIntensity" mapstructure:"minIntensity"`
	MaxIntensity int `json:"maxIntensity" mapstructure:"maxIntensity"`
}

// LoopConfig controls cycle timing and randomness.
type LoopConfig struct {
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
	StopTimeout time.Duration `json:"stopTimeout" mapstructure:"stopTimeout"`
	Seed        uint64        `json:"seed" mapstructure:"seed"`
	AutoStart   bool          `json:"autoStart" mapstructure:"autoStart"`
}

// PublishConfig names the publish directory and files.
type PublishConfig struct {
	Dir           string `json:"dir" mapstructure:"dir"`
	CompositeName string `json:"compositeName" mapstructure:"compositeName"`
	FilterName    string `json:"filterName" mapstructure:"filterName"`
}

// HTTPConfig configures the status and control server.
type HTTPConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// ClassifierConfig configures the in-process ring classifier.
type ClassifierConfig struct {
	MinRadius float64   `json:"minRadius" mapstructure:"minRadius"`
	MaxRadius float64   `json:"maxRadius" mapstructure:"maxRadius"`
	Ladder    []float64 `json:"ladder" mapstructure:"ladder"`
}

// Config is the complete typed configuration.
type Config struct {
	Canvas     CanvasConfig     `json:"canvas" mapstructure:"canvas"`
	Marker     MarkerConfig     `json:"marker" mapstructure:"marker"`
	Scale      ScaleConfig      `json:"scale" mapstructure:"scale"`
	Detect     DetectConfig     `json:"detect" mapstructure:"detect"`
	Loop       LoopConfig       `json:"loop" mapstructure:"loop"`
	Publish    PublishConfig    `json:"publish" mapstructure:"publish"`
	HTTP       HTTPConfig       `json:"http" mapstructure:"http"`
	Log        LogConfig        `json:"log" mapstructure:"log"`
	Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier"`
}

// setDefaults registers every key so environment overrides apply to all of
// them.
func setDefaults() {
	viper.SetDefault("canvas.path", "")
	viper.SetDefault("canvas.width", 1920)
	viper.SetDefault("canvas.height", 1080)

	viper.SetDefault("marker.path", "marker.png")

	viper.SetDefault("scale.min", 0.05)
	viper.SetDefault("scale.max", 0.12)

	viper.SetDefault("detect.minIntensity", detection.DefaultMinIntensity)
	viper.SetDefault("detect.maxIntensity", detection.DefaultMaxIntensity)

	viper.SetDefault("loop.interval", "5s")
	viper.SetDefault("loop.stopTimeout", "10s")
	viper.SetDefault("loop.seed", 0)
	viper.SetDefault("loop.autoStart", false)

	viper.SetDefault("publish.dir", "static")
	viper.SetDefault("publish.compositeName", "composite.png")
	viper.SetDefault("publish.filterName", "filtered.png")

	viper.SetDefault("http.addr", ":5000")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.maxSizeMB", 10)
	viper.SetDefault("log.maxBackups", 3)

	viper.SetDefault("classifier.minRadius", 3.0)
	viper.SetDefault("classifier.maxRadius", 0.0)
	viper.SetDefault("classifier.ladder", detection.DefaultLadder)
}

// Load registers defaults, environment overrides and, when present,
// gcp-sim.json from configDir. A missing file is not an error; a malformed
// one is.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configDir == "" {
		return nil
	}

	viper.SetConfigFile(filepath.Join(configDir, FileName))
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}
	return nil
}

// Get decodes the loaded settings into a Config and validates it.
func Get() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %v: %w", err, imaging.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that can be checked without touching the
// file system.
func (c *Config) Validate() error {
	if err := c.LoopConfig().Validate(); err != nil {
		return err
	}
	if c.Publish.Dir == "" || c.Publish.CompositeName == "" || c.Publish.FilterName == "" {
		return fmt.Errorf("publish dir and file names are required: %w", imaging.ErrConfiguration)
	}
	if c.Publish.CompositeName == c.Publish.FilterName {
		return fmt.Errorf("composite and filter names must differ: %w", imaging.ErrConfiguration)
	}
	if c.Classifier.MaxRadius > 0 && c.Classifier.MaxRadius < c.Classifier.MinRadius {
		return fmt.Errorf("classifier radius range [%g, %g] is inverted: %w",
			c.Classifier.MinRadius, c.Classifier.MaxRadius, imaging.ErrConfiguration)
	}
	for _, conf := range c.Classifier.Ladder {
		if conf < 0 || conf > 1 {
			return fmt.Errorf("classifier confidence %g outside [0, 1]: %w", conf, imaging.ErrConfiguration)
		}
	}
	return nil
}

// LoopConfig returns the publish loop parameters.
func (c *Config) LoopConfig() publish.Config {
	return publish.Config{
		CanvasPath:   c.Canvas.Path,
		CanvasWidth:  c.Canvas.Width,
		CanvasHeight: c.Canvas.Height,
		MarkerPath:   c.Marker.Path,
		MinScale:     c.Scale.Min,
		MaxScale:     c.Scale.Max,
		MinIntensity: c.Detect.MinIntensity,
		MaxIntensity: c.Detect.MaxIntensity,
		Interval:     c.Loop.Interval,
		StopTimeout:  c.Loop.StopTimeout,
		Seed:         c.Loop.Seed,
	}
}

// RingClassifier returns a classifier using the configured band and radii.
func (c *Config) RingClassifier() *detection.RingClassifier {
	return &detection.RingClassifier{
		MinIntensity: c.Detect.MinIntensity,
		MaxIntensity: c.Detect.MaxIntensity,
		MinRadius:    c.Classifier.MinRadius,
		MaxRadius:    c.Classifier.MaxRadius,
	}
}
