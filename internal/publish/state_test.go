package publish

import (
	"encoding/json"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/gcp-sim/internal/detection"
	"github.com/ironsheep/gcp-sim/internal/imaging"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewState_JSON(t *testing.T) {
	res := &imaging.CompositeResult{
		Center:       image.Pt(400, 300),
		MarkerWidth:  80,
		MarkerHeight: 82,
		Transform:    imaging.Transform{ScaleFactor: 0.1, RotationDegrees: 45},
	}
	region := detection.Region{Found: true, Center: detection.Point{X: 400, Y: 301}}

	s := NewState(3, res, region, testTime)
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, 0.1, got["scaleFactor"])
	assert.Equal(t, 45.0, got["rotationDegrees"])
	assert.Equal(t, []any{400.0, 300.0}, got["centerPosition"])
	assert.Equal(t, []any{400.0, 301.0}, got["detectedCenter"])
	assert.Equal(t, []any{80.0, 82.0}, got["markerSize"])
	assert.Equal(t, 3.0, got["cycle"])
	assert.NotEmpty(t, got["version"])
	assert.NotContains(t, got, "canvasColor")
}

func TestNewState_NoDetectionIsNull(t *testing.T) {
	s := NewState(1, &imaging.CompositeResult{}, detection.NoDetection, testTime)
	assert.Nil(t, s.DetectedCenter)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"detectedCenter":null`)
}

func TestNewState_UniqueVersions(t *testing.T) {
	a := NewState(1, &imaging.CompositeResult{}, detection.NoDetection, testTime)
	b := NewState(1, &imaging.CompositeResult{}, detection.NoDetection, testTime)
	assert.NotEqual(t, a.Version, b.Version)
}
