package publish

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/gcp-sim/internal/detection"
	"github.com/ironsheep/gcp-sim/internal/imaging"
	"github.com/ironsheep/gcp-sim/internal/logging"
)

// ErrStopTimeout is returned by Stop when the worker did not exit within
// the stop timeout. The loop keeps stopping in the background.
var ErrStopTimeout = errors.New("timed out waiting for publish loop to stop")

// RunState is the loop's lifecycle state.
type RunState int

const (
	Idle RunState = iota
	Running
	Stopping
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Config holds the loop parameters.
type Config struct {
	// CanvasPath is the base canvas image. When empty a solid canvas of
	// CanvasWidth x CanvasHeight with a random color is generated per cycle.
	CanvasPath   string
	CanvasWidth  int
	CanvasHeight int

	// MarkerPath is the marker template, decoded once and cached.
	MarkerPath string

	MinScale, MaxScale         float64
	MinIntensity, MaxIntensity int

	// Interval is the pause between cycles.
	Interval time.Duration

	// StopTimeout bounds how long Stop waits for the worker.
	StopTimeout time.Duration

	// Seed seeds the sampler; zero means time based.
	Seed uint64
}

// Validate reports the first invalid parameter, wrapped in
// imaging.ErrConfiguration.
func (c Config) Validate() error {
	if c.MarkerPath == "" {
		return fmt.Errorf("marker path is required: %w", imaging.ErrConfiguration)
	}
	if c.CanvasPath == "" && (c.CanvasWidth <= 0 || c.CanvasHeight <= 0) {
		return fmt.Errorf("generated canvas size %dx%d must be positive: %w",
			c.CanvasWidth, c.CanvasHeight, imaging.ErrConfiguration)
	}
	if err := imaging.ValidateScaleBounds(c.MinScale, c.MaxScale); err != nil {
		return err
	}
	if err := detection.ValidateBand(c.MinIntensity, c.MaxIntensity); err != nil {
		return err
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval %s must not be negative: %w", c.Interval, imaging.ErrConfiguration)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout %s must be positive: %w", c.StopTimeout, imaging.ErrConfiguration)
	}
	return nil
}

// Status is a point-in-time view of the loop for status endpoints.
type Status struct {
	State     string `json:"state"`
	Running   bool   `json:"running"`
	Cycles    uint64 `json:"cycles"`
	LastError string `json:"lastError,omitempty"`
	Published *State `json:"published"`
}

// Loop repeatedly places the marker on the canvas, detects it and publishes
// the result through a Store.
//
// Start and Stop are safe to call concurrently from any goroutine and are
// idempotent. A stop request is observed between cycles or during the
// interval wait; a cycle that has begun always completes.
type Loop struct {
	cfg   Config
	store *Store
	cache *imaging.ImageCache

	// Now returns the timestamp recorded in each State.
	Now func() time.Time

	mu    sync.Mutex
	state RunState
	stop  chan struct{}
	done  chan struct{}
	err   error

	// cycleMu serializes cycles; the sampler is not safe for concurrent use.
	cycleMu    sync.Mutex
	sampler    *imaging.Sampler
	compositor *imaging.Compositor
	cycles     atomic.Uint64

	hookMu sync.RWMutex
	hooks  []func(*State)
}

// NewLoop creates an idle loop publishing to store.
func NewLoop(cfg Config, store *Store) *Loop {
	sampler := imaging.NewSampler(cfg.Seed)
	return &Loop{
		cfg:        cfg,
		store:      store,
		cache:      imaging.NewImageCache(),
		Now:        time.Now,
		sampler:    sampler,
		compositor: imaging.NewCompositor(sampler),
	}
}

// Store returns the loop's store.
func (l *Loop) Store() *Store { return l.store }

// Config returns the loop configuration.
func (l *Loop) Config() Config { return l.cfg }

// OnPublish registers fn to be called after every committed cycle. Hooks
// run on the worker goroutine and must not block.
func (l *Loop) OnPublish(fn func(*State)) {
	l.hookMu.Lock()
	l.hooks = append(l.hooks, fn)
	l.hookMu.Unlock()
}

// Start moves an idle loop to Running and spawns the worker. It is a no-op
// when the loop is already running or stopping.
//
// The configuration is validated and the marker decoded before the worker
// starts; failures are returned and the loop stays idle.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Idle {
		logging.Debugf("Start ignored, loop is %s", l.state)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.cfg.Validate(); err != nil {
		return err
	}
	if _, err := l.cache.Load(l.cfg.MarkerPath); err != nil {
		return fmt.Errorf("load marker: %w", err)
	}

	l.state = Running
	l.err = nil
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.stop, l.done)

	log.Printf("Publish loop started (interval %s, scale [%g, %g])",
		l.cfg.Interval, l.cfg.MinScale, l.cfg.MaxScale)
	return nil
}

// Stop signals the worker and waits until it exits, ctx is done or the stop
// timeout elapses. Stopping an idle loop is a no-op.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case Idle:
		l.mu.Unlock()
		return nil
	case Running:
		l.state = Stopping
		close(l.stop)
	}
	done := l.done
	l.mu.Unlock()

	timer := time.NewTimer(l.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Printf("Publish loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Running reports whether the worker is active (running or stopping).
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state != Idle
}

// State returns the current lifecycle state.
func (l *Loop) State() RunState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error that ended the last worker, or nil. It is cleared by
// the next successful Start.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Status returns the loop state together with the latest published State.
func (l *Loop) Status() Status {
	l.mu.Lock()
	st := Status{State: l.state.String(), Running: l.state != Idle}
	if l.err != nil {
		st.LastError = l.err.Error()
	}
	l.mu.Unlock()

	st.Cycles = l.cycles.Load()
	st.Published = l.store.Snapshot()
	return st
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	var runErr error
	defer func() {
		l.mu.Lock()
		l.state = Idle
		l.err = runErr
		l.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if _, err := l.RunCycle(context.Background()); err != nil {
			log.Printf("Publish loop halted: %v", err)
			runErr = err
			return
		}

		wait := time.NewTimer(l.cfg.Interval)
		select {
		case <-stop:
			wait.Stop()
			return
		case <-wait.C:
		}
	}
}

// RunCycle runs one sample, composite, detect and publish cycle and returns
// the committed State.
//
// A cycle without a detection is published normally. Image failures wrap
// imaging.ErrInvalidImage and file failures wrap ErrPublishIO; in both cases
// nothing is published.
func (l *Loop) RunCycle(ctx context.Context) (*State, error) {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, canvasColor, err := l.canvas()
	if err != nil {
		return nil, err
	}
	marker, err := l.cache.Load(l.cfg.MarkerPath)
	if err != nil {
		return nil, fmt.Errorf("load marker: %w", err)
	}

	t, err := l.sampler.Sample(l.cfg.MinScale, l.cfg.MaxScale)
	if err != nil {
		return nil, err
	}
	res, err := l.compositor.Composite(base, marker, t, nil)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	mask, err := detection.NewMask(res.Image, l.cfg.MinIntensity, l.cfg.MaxIntensity)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	region := mask.Region()

	staged, err := l.store.Stage(res.Image, mask.Filter(res.Image))
	if err != nil {
		return nil, err
	}

	state := NewState(l.cycles.Load()+1, res, region, l.Now())
	state.CanvasColor = canvasColor
	if err := l.store.Commit(staged, state); err != nil {
		return nil, err
	}
	l.cycles.Add(1)

	logCycle(state)

	l.hookMu.RLock()
	hooks := l.hooks
	l.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(state)
	}

	return state, nil
}

// canvas returns this cycle's base canvas and, for a generated one, its
// fill color as hex.
func (l *Loop) canvas() (image.Image, string, error) {
	if l.cfg.CanvasPath != "" {
		img, err := imaging.LoadImage(l.cfg.CanvasPath)
		if err != nil {
			return nil, "", fmt.Errorf("load canvas: %w", err)
		}
		return img, "", nil
	}

	img, fill, err := imaging.SolidCanvas(l.sampler, l.cfg.CanvasWidth, l.cfg.CanvasHeight)
	if err != nil {
		return nil, "", err
	}
	c, _ := colorful.MakeColor(fill)
	return img, c.Hex(), nil
}

func logCycle(s *State) {
	detected := "none"
	if s.DetectedCenter != nil {
		detected = fmt.Sprintf("(%.1f, %.1f)", s.DetectedCenter[0], s.DetectedCenter[1])
	}
	log.Printf("Cycle %d: scale %.4f, rotation %.1f deg, center (%d, %d), detected %s",
		s.Cycle, s.ScaleFactor, s.RotationDegrees, s.CenterPosition[0], s.CenterPosition[1], detected)
	logging.Debugf("Cycle %d version %s marker %dx%d", s.Cycle, s.Version, s.MarkerSize[0], s.MarkerSize[1])
}
