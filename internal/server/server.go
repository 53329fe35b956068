package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kayz/dogcmd/internal/dispatch"
	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
)

const (
	maxRequestBytes = 64 << 10
	writeTimeout    = 10 * time.Second
)

// Request is the body of POST /route and of each /ws text frame.
type Request struct {
	Text string `json:"text"`
}

// Reply is one /ws response frame.
type Reply struct {
	Type   string         `json:"type"`
	Result *intent.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Server exposes the dispatcher over HTTP and WebSocket.
type Server struct {
	dispatcher *dispatch.Dispatcher
	upgrader   websocket.Upgrader
	httpServer *http.Server
	conns      map[*websocket.Conn]struct{}
	mu         sync.Mutex
}

// New creates a server listening on addr once Start is called.
func New(addr string, dispatcher *dispatch.Dispatcher) *Server {
	s := &Server{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/route", s.handleRoute)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info("[Server] Listening on %s", s.httpServer.Addr)
	logger.Info("[Server] WebSocket: ws://%s/ws", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes open WebSocket sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for conn := range s.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	res, err := s.dispatcher.Dispatch(r.Context(), req.Text)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Stats())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[Server] WebSocket upgrade error: %v", err)
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	conn.SetReadLimit(maxRequestBytes)

	logger.Debug("[Server] WebSocket connection from %s", r.RemoteAddr)

	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("[Server] WebSocket read error: %v", err)
			}
			return
		}

		reply := s.handleFrame(ctx, msg)
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Debug("[Server] WebSocket write error: %v", err)
			return
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, msg []byte) Reply {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		// plain text frames are accepted as the utterance itself
		req.Text = string(msg)
	}
	res, err := s.dispatcher.Dispatch(ctx, req.Text)
	if err != nil {
		return Reply{Type: "error", Error: err.Error()}
	}
	return Reply{Type: "result", Result: res}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, intent.ErrClassificationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
