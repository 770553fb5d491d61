// Package httpapi serves loop status, control and the published images over
// HTTP, and pushes every published State to WebSocket clients.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ironsheep/gcp-sim/internal/logging"
	"github.com/ironsheep/gcp-sim/internal/publish"
)

const (
	// writeWait bounds a single WebSocket write; a client that misses it is
	// disconnected.
	writeWait = 2 * time.Second

	// sendBuffer is the number of messages queued per client. Broadcasts to
	// a full queue are dropped for that client.
	sendBuffer = 8
)

// VersionHeader carries the State version of a served image.
const VersionHeader = "X-GCP-Version"

// Server is the HTTP/WebSocket front of a publish loop.
type Server struct {
	loop       *publish.Loop
	version    string
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	httpServer *http.Server

	clients   map[*client]bool
	clientsMu sync.Mutex
}

// client is one WebSocket connection and its outbound queue, drained by
// writePump.
type client struct {
	conn    *websocket.Conn
	send    chan Message
	dropped int
}

// Message is the envelope sent to WebSocket clients.
type Message struct {
	Type  string         `json:"type"` // "state" on connect, "published" after each cycle
	State *publish.State `json:"state"`
}

// New creates a server for loop and subscribes it to published cycles.
func New(loop *publish.Loop, version string) *Server {
	s := &Server{
		loop:    loop,
		version: version,
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]bool),
	}
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	loop.OnPublish(s.Broadcast)
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.enableCORS(s.handleHealth))
	s.mux.HandleFunc("/api/status", s.enableCORS(s.handleStatus))
	s.mux.HandleFunc("/api/start", s.enableCORS(s.handleStart))
	s.mux.HandleFunc("/api/stop", s.enableCORS(s.handleStop))
	s.mux.HandleFunc("/api/stats", s.enableCORS(s.handleStats))
	s.mux.HandleFunc("/images/composite.png", s.enableCORS(s.imageHandler(publish.Composite)))
	s.mux.HandleFunc("/images/filtered.png", s.enableCORS(s.imageHandler(publish.Filtered)))
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}

// enableCORS adds CORS headers to the handler.
func (s *Server) enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until Shutdown is called. It returns nil
// after a graceful shutdown, including one that happened before it started.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer.Addr = addr
	log.Printf("HTTP server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes WebSocket clients and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.clientsMu.Lock()
	for c := range s.clients {
		c.conn.Close()
		s.removeLocked(c)
	}
	s.clientsMu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// Broadcast queues a "published" message for state to every connected
// client without blocking. A client whose queue is full misses the message.
func (s *Server) Broadcast(state *publish.State) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	msg := Message{Type: "published", State: state}
	for c := range s.clients {
		if !c.enqueue(msg) {
			logging.Debugf("Client queue full, dropped cycle %d (%d dropped)", state.Cycle, c.dropped)
		}
	}
	logging.Debugf("Broadcast cycle %d to %d clients", state.Cycle, len(s.clients))
}

// register adds a client for conn. The latest published state, if any, is
// queued first so it precedes every broadcast the client receives.
func (s *Server) register(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if state := s.loop.Store().Snapshot(); state != nil {
		c.enqueue(Message{Type: "state", State: state})
	}
	s.clients[c] = true
	return c
}

// unregister removes c if it is still connected.
func (s *Server) unregister(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.removeLocked(c)
}

// removeLocked deletes c and closes its queue. clientsMu must be held.
func (s *Server) removeLocked(c *client) {
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

// enqueue reports whether msg fit in the client's queue. clientsMu must be
// held.
func (c *client) enqueue(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.dropped++
		return false
	}
}

// writePump writes queued messages until the queue is closed. A failed
// write closes the connection, which ends the handler's read loop.
func (c *client) writePump() {
	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			c.conn.Close()
			return
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("WebSocket write failed: %v", err)
			c.conn.Close()
			return
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}
