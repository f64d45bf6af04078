// Package api implements the dashboard query API: an HTTP endpoint
// answering "what is the state of path P?" via the resolver, plus a
// websocket feed that pushes a notification whenever the watched data root
// changes so clients can re-query instead of polling.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agenthud/hud/internal/resolver"
	"github.com/agenthud/hud/internal/store"
)

// Server serves the resolve endpoint and the websocket feed.
type Server struct {
	LockBase string
	Store    func() *store.Store // re-loaded per request; sessions.json may change between requests
	Windows  resolver.Windows
	Hub      *Hub

	upgrader websocket.Upgrader
}

// NewServer returns a Server. loadStore is called once per HTTP request so
// each request observes the current on-disk state rather than a snapshot
// taken at server start. win is normally sourced from
// internal/config.ResolverConfig, so the dashboard honors the same
// staleness windows as the resolve CLI command.
func NewServer(lockBase string, loadStore func() *store.Store, win resolver.Windows) *Server {
	return &Server{
		LockBase: lockBase,
		Store:    loadStore,
		Windows:  win,
		Hub:      NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is a local tool talking to a local API; origin
			// checking exists to stop cross-site browsers from opening
			// sockets to it, which a purely local, unauthenticated server
			// doesn't need to defend against.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/resolve", s.handleResolve)
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

type resolveResponse struct {
	State      string `json:"state,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	CWD        string `json:"cwd,omitempty"`
	IsFromLock bool   `json:"is_from_lock"`
	Found      bool   `json:"found"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path query parameter", http.StatusBadRequest)
		return
	}

	resolved := resolver.ResolveWithWindows(s.LockBase, s.Store(), path, s.Windows)
	resp := resolveResponse{}
	if resolved != nil {
		resp = resolveResponse{
			State:      string(resolved.State),
			SessionID:  resolved.SessionID,
			CWD:        resolved.CWD,
			IsFromLock: resolved.IsFromLock,
			Found:      true,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{send: make(chan []byte, 16)}
	s.Hub.register(c)
	defer s.Hub.unregister(c)

	go func() {
		// Drain and discard client->server frames; this feed is push-only,
		// but a connection that never reads incoming pongs/closes will
		// leak, so something must consume conn.ReadMessage.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for msg := range c.send {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			return
		}
	}
}
