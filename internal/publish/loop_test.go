package publish

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/gcp-sim/internal/imaging"
)

// writeRingMarker writes a 120x120 transparent PNG with a white ring.
func writeRingMarker(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			d := math.Hypot(float64(x)-59.5, float64(y)-59.5)
			if d <= 58 && d >= 30 {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
	return writePNG(t, dir, "marker.png", img)
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func testConfig(t *testing.T) (Config, string) {
	t.Helper()
	dir := t.TempDir()
	return Config{
		CanvasWidth:  400,
		CanvasHeight: 300,
		MarkerPath:   writeRingMarker(t, dir),
		MinScale:     0.15,
		MaxScale:     0.25,
		MinIntensity: 240,
		MaxIntensity: 255,
		Interval:     5 * time.Millisecond,
		StopTimeout:  5 * time.Second,
		Seed:         42,
	}, filepath.Join(dir, "static")
}

func newTestLoop(t *testing.T, cfg Config, dir string) *Loop {
	t.Helper()
	store, err := NewStore(dir, "composite.png", "filtered.png")
	require.NoError(t, err)
	l := NewLoop(cfg, store)
	l.Now = func() time.Time { return testTime }
	t.Cleanup(func() { _ = l.Stop(context.Background()) })
	return l
}

func TestLoop_RunCycle(t *testing.T) {
	cfg, dir := testConfig(t)
	l := newTestLoop(t, cfg, dir)

	state, err := l.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), state.Cycle)
	assert.GreaterOrEqual(t, state.ScaleFactor, cfg.MinScale)
	assert.LessOrEqual(t, state.ScaleFactor, cfg.MaxScale)
	assert.GreaterOrEqual(t, state.RotationDegrees, 0.0)
	assert.Less(t, state.RotationDegrees, 360.0)
	assert.NotEmpty(t, state.CanvasColor)
	assert.Equal(t, testTime, state.PublishedAt)
	assert.Same(t, state, l.Store().Snapshot())

	require.NotNil(t, state.DetectedCenter, "ring should be detected on a dark canvas")
	dx := state.DetectedCenter[0] - float64(state.CenterPosition[0])
	dy := state.DetectedCenter[1] - float64(state.CenterPosition[1])
	assert.LessOrEqual(t, math.Hypot(dx, dy), 3.0)

	assert.FileExists(t, l.Store().Path(Composite))
	assert.FileExists(t, l.Store().Path(Filtered))
}

func TestLoop_DeterministicWithSeed(t *testing.T) {
	cfg, dir := testConfig(t)
	a := newTestLoop(t, cfg, dir)
	b := newTestLoop(t, cfg, filepath.Join(t.TempDir(), "other"))

	for i := 0; i < 3; i++ {
		sa, err := a.RunCycle(context.Background())
		require.NoError(t, err)
		sb, err := b.RunCycle(context.Background())
		require.NoError(t, err)

		assert.Equal(t, sa.ScaleFactor, sb.ScaleFactor)
		assert.Equal(t, sa.RotationDegrees, sb.RotationDegrees)
		assert.Equal(t, sa.CenterPosition, sb.CenterPosition)
		assert.Equal(t, sa.Region, sb.Region)
	}
}

func TestLoop_FileCanvas(t *testing.T) {
	cfg, dir := testConfig(t)
	canvas := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	for i := 3; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = 255
	}
	cfg.CanvasPath = writePNG(t, t.TempDir(), "canvas.png", canvas)
	l := newTestLoop(t, cfg, dir)

	state, err := l.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.CanvasColor)

	f, snap, err := l.Store().Open(Composite)
	require.NoError(t, err)
	defer f.Close()
	imgCfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 320, imgCfg.Width)
	assert.Equal(t, state.Version, snap.Version)
}

func TestLoop_NoDetectionIsPublished(t *testing.T) {
	cfg, dir := testConfig(t)
	dark := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	for i := 0; i < len(dark.Pix); i += 4 {
		dark.Pix[i], dark.Pix[i+3] = 90, 255
	}
	cfg.MarkerPath = writePNG(t, t.TempDir(), "dark.png", dark)
	l := newTestLoop(t, cfg, dir)

	state, err := l.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.DetectedCenter)
	assert.False(t, state.Region.Found)
	assert.Same(t, state, l.Store().Snapshot())
}

func TestLoop_StartStopIdempotent(t *testing.T) {
	cfg, dir := testConfig(t)
	l := newTestLoop(t, cfg, dir)
	ctx := context.Background()

	assert.NoError(t, l.Stop(ctx), "stop while idle")
	assert.False(t, l.Running())

	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Start(ctx))
	assert.True(t, l.Running())

	require.Eventually(t, func() bool {
		return l.Status().Cycles >= 3
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, l.Stop(ctx))
	require.NoError(t, l.Stop(ctx))
	assert.False(t, l.Running())
	assert.Equal(t, Idle, l.State())
	assert.NoError(t, l.Err())

	// Restart after stop
	require.NoError(t, l.Start(ctx))
	assert.True(t, l.Running())
	require.NoError(t, l.Stop(ctx))
}

// Readers that bypass Store.Open see either the previous or the next
// complete file at the published paths, never a missing or partial one.
func TestLoop_PublishedPathsAlwaysReadable(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Interval = time.Millisecond
	l := newTestLoop(t, cfg, dir)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool {
		return l.Status().Cycles >= 1
	}, 5*time.Second, time.Millisecond)

	paths := []string{l.Store().Path(Composite), l.Store().Path(Filtered)}
	start := l.Status().Cycles
	reads := 0
	deadline := time.Now().Add(10 * time.Second)
	for l.Status().Cycles < start+20 && time.Now().Before(deadline) {
		for _, p := range paths {
			_, err := os.Stat(p)
			require.NoError(t, err, "stat %s", p)

			f, err := os.Open(p)
			require.NoError(t, err, "open %s", p)
			img, err := png.Decode(f)
			f.Close()
			require.NoError(t, err, "decode %s", p)
			assert.Equal(t, image.Rect(0, 0, cfg.CanvasWidth, cfg.CanvasHeight), img.Bounds())
			reads++
		}
	}

	require.NoError(t, l.Stop(ctx))
	assert.GreaterOrEqual(t, l.Status().Cycles, start+20, "loop kept publishing while read")
	assert.Positive(t, reads)
}

func TestLoop_ConcurrentStartStop(t *testing.T) {
	cfg, dir := testConfig(t)
	l := newTestLoop(t, cfg, dir)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Start(ctx))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Stop(ctx))
		}()
	}
	wg.Wait()

	require.NoError(t, l.Stop(ctx))
	assert.False(t, l.Running())
}

func TestLoop_StopInterruptsInterval(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Interval = time.Hour
	l := newTestLoop(t, cfg, dir)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool {
		return l.Store().Snapshot() != nil
	}, 5*time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Stop(ctx))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLoop_StartValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"inverted scale", func(c *Config) { c.MinScale, c.MaxScale = 0.3, 0.1 }, imaging.ErrConfiguration},
		{"zero scale", func(c *Config) { c.MinScale = 0 }, imaging.ErrConfiguration},
		{"bad band", func(c *Config) { c.MinIntensity = 300 }, imaging.ErrConfiguration},
		{"no marker", func(c *Config) { c.MarkerPath = "" }, imaging.ErrConfiguration},
		{"no canvas size", func(c *Config) { c.CanvasWidth = 0 }, imaging.ErrConfiguration},
		{"no stop timeout", func(c *Config) { c.StopTimeout = 0 }, imaging.ErrConfiguration},
		{"missing marker file", func(c *Config) { c.MarkerPath = "/nonexistent/marker.png" }, imaging.ErrInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, dir := testConfig(t)
			tt.mutate(&cfg)
			l := newTestLoop(t, cfg, dir)

			err := l.Start(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, l.Running())
		})
	}
}

func TestLoop_PublishFailureHalts(t *testing.T) {
	cfg, dir := testConfig(t)
	l := newTestLoop(t, cfg, dir)

	// Pull the publish directory away after the first commit.
	var once sync.Once
	l.OnPublish(func(*State) {
		once.Do(func() { assert.NoError(t, os.RemoveAll(dir)) })
	})

	require.NoError(t, l.Start(context.Background()))

	require.Eventually(t, func() bool {
		return !l.Running()
	}, 5*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, l.Err(), ErrPublishIO)
	assert.NotEmpty(t, l.Status().LastError)
}

func TestLoop_InvalidCanvasHalts(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.CanvasPath = filepath.Join(t.TempDir(), "missing.png")
	l := newTestLoop(t, cfg, dir)

	require.NoError(t, l.Start(context.Background()))
	require.Eventually(t, func() bool {
		return !l.Running()
	}, 5*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, l.Err(), imaging.ErrInvalidImage)
	assert.Nil(t, l.Store().Snapshot())
}

func TestLoop_OnPublish(t *testing.T) {
	cfg, dir := testConfig(t)
	l := newTestLoop(t, cfg, dir)

	var got []*State
	l.OnPublish(func(s *State) { got = append(got, s) })

	s1, err := l.RunCycle(context.Background())
	require.NoError(t, err)
	s2, err := l.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Same(t, s1, got[0])
	assert.Same(t, s2, got[1])
	assert.NotEqual(t, s1.Version, s2.Version)
}

func TestLoop_StopTimeout(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.StopTimeout = time.Millisecond
	l := newTestLoop(t, cfg, dir)

	block := make(chan struct{})
	entered := make(chan struct{}, 1)
	l.OnPublish(func(*State) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-block
	})

	require.NoError(t, l.Start(context.Background()))
	<-entered

	assert.ErrorIs(t, l.Stop(context.Background()), ErrStopTimeout)
	assert.Equal(t, Stopping, l.State())

	close(block)
	require.Eventually(t, func() bool {
		return !l.Running()
	}, 5*time.Second, 5*time.Millisecond)
}
