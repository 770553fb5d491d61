package httpapi

import (
	"log"
	"net/http"

	"github.com/disintegration/imaging"

	gcpimaging "github.com/ironsheep/gcp-sim/internal/imaging"
	"github.com/ironsheep/gcp-sim/internal/publish"
)

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONOK(w, map[string]string{
		"status":  "running",
		"version": s.version,
	})
}

// statusResponse is publish.Status plus the image URLs.
type statusResponse struct {
	publish.Status
	CompositeURL string `json:"compositeUrl"`
	FilteredURL  string `json:"filteredUrl"`
}

func (s *Server) status() statusResponse {
	return statusResponse{
		Status:       s.loop.Status(),
		CompositeURL: "/images/composite.png",
		FilteredURL:  "/images/filtered.png",
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSONOK(w, s.status())
}

// handleStart starts the loop. Starting a running loop is not an error.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.loop.Start(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSONOK(w, s.status())
}

// handleStop stops the loop and waits for the current cycle to finish.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.loop.Stop(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSONOK(w, s.status())
}

// statsResponse is the channel statistics of the published composite.
type statsResponse struct {
	Cycle   uint64                 `json:"cycle"`
	Version string                 `json:"version"`
	Stats   *gcpimaging.ImageStats `json:"stats"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	f, state, err := s.loop.Store().Open(publish.Composite)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := gcpimaging.ChannelStatistics(img)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSONOK(w, statsResponse{
		Cycle:   state.Cycle,
		Version: state.Version.String(),
		Stats:   stats,
	})
}

// imageHandler serves the current file of artifact a. The open file and the
// version header always belong to the same cycle.
func (s *Server) imageHandler(a publish.Artifact) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w)
			return
		}

		f, state, err := s.loop.Store().Open(a)
		if err != nil {
			writeError(w, err)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set(VersionHeader, state.Version.String())
		http.ServeContent(w, r, string(a)+".png", state.PublishedAt, f)
	}
}

// handleWebSocket upgrades the connection, sends the latest State and keeps
// the client registered until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := s.register(conn)
	defer s.unregister(c)
	go c.writePump()

	for {
		// Clients only send keepalives.
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
