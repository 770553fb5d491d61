package publish

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/anthonynsimon/bild/imgio"
)

// ErrPublishIO reports a failure writing or renaming published files.
var ErrPublishIO = errors.New("publish I/O error")

// ErrNotPublished is returned by Open before the first commit.
var ErrNotPublished = errors.New("nothing published yet")

// Artifact names one of the two published files.
type Artifact string

const (
	// Composite is the canvas with the marker blended in.
	Composite Artifact = "composite"

	// Filtered keeps the pixels inside the detection band and blacks out
	// the rest.
	Filtered Artifact = "filtered"
)

// Artifacts lists every published artifact in commit order.
var Artifacts = []Artifact{Composite, Filtered}

// Store owns the publish directory and the current State.
//
// Files are staged under temporary names in the same directory and renamed
// over the stable names on commit. Commit holds the write lock across both
// renames and the State swap; Open holds the read lock while it opens a file
// and takes the State, so a reader always gets a file and State from the same
// cycle. An open file keeps its content after later renames replace the name.
type Store struct {
	dir   string
	names map[Artifact]string

	mu    sync.RWMutex
	state atomic.Pointer[State]

	encode imgio.Encoder
}

// Staged is a pair of written but not yet published temporary files.
type Staged struct {
	paths map[Artifact]string
}

// NewStore creates the publish directory if needed and removes temporary
// files left behind by an interrupted run.
func NewStore(dir, compositeName, filteredName string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrPublishIO, dir, err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	for _, p := range leftovers {
		if err := os.Remove(p); err == nil {
			log.Printf("Removed stale temp file %s", p)
		}
	}

	return &Store{
		dir: dir,
		names: map[Artifact]string{
			Composite: compositeName,
			Filtered:  filteredName,
		},
		encode: imgio.PNGEncoder(),
	}, nil
}

// Dir returns the publish directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the stable path of an artifact.
func (s *Store) Path(a Artifact) string {
	return filepath.Join(s.dir, s.names[a])
}

// Snapshot returns the latest committed State, or nil before the first
// commit. It never blocks.
func (s *Store) Snapshot() *State {
	return s.state.Load()
}

// Stage writes both images to temporary files in the publish directory.
// On error nothing is left behind.
func (s *Store) Stage(composite, filtered image.Image) (*Staged, error) {
	staged := &Staged{paths: make(map[Artifact]string, 2)}
	images := map[Artifact]image.Image{Composite: composite, Filtered: filtered}

	for _, a := range Artifacts {
		p, err := s.writeTemp(a, images[a])
		if err != nil {
			s.Discard(staged)
			return nil, err
		}
		staged.paths[a] = p
	}
	return staged, nil
}

func (s *Store) writeTemp(a Artifact, img image.Image) (string, error) {
	f, err := os.CreateTemp(s.dir, "."+string(a)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp for %s: %w", ErrPublishIO, a, err)
	}

	if err := s.encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: write %s: %w", ErrPublishIO, a, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: close %s: %w", ErrPublishIO, a, err)
	}
	return f.Name(), nil
}

// Discard removes staged files that were not committed.
func (s *Store) Discard(staged *Staged) {
	if staged == nil {
		return
	}
	for _, p := range staged.paths {
		os.Remove(p)
	}
}

// Commit renames the staged files over the stable names and then makes state
// the current State, all under the write lock.
//
// If a rename fails the State is not updated and ErrPublishIO is returned.
// The first file may already have been replaced in that case; the caller is
// expected to stop publishing.
func (s *Store) Commit(staged *Staged, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range Artifacts {
		src, ok := staged.paths[a]
		if !ok {
			s.Discard(staged)
			return fmt.Errorf("%w: %s was not staged", ErrPublishIO, a)
		}
		if err := os.Rename(src, s.Path(a)); err != nil {
			s.Discard(staged)
			return fmt.Errorf("%w: rename %s: %w", ErrPublishIO, a, err)
		}
		delete(staged.paths, a)
	}

	s.state.Store(state)
	return nil
}

// Open opens the published file for a and returns it together with the State
// it was committed with. The caller must close the file.
func (s *Store) Open(a Artifact) (*os.File, *State, error) {
	if _, ok := s.names[a]; !ok {
		return nil, nil, fmt.Errorf("unknown artifact %q", a)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state.Load()
	if state == nil {
		return nil, nil, ErrNotPublished
	}

	f, err := os.Open(s.Path(a))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %w", ErrPublishIO, a, err)
	}
	return f, state, nil
}
