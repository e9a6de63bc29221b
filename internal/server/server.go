package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/config"
	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/narration"
	"github.com/pixelarena/arena-server-go/internal/repository"
)

// Options configures the collaborators each started match gets.
type Options struct {
	Match          config.MatchConfig
	AllowedOrigins []string
	MaxMatches     int
	Narrator       narration.Narrator
	Planner        game.Planner
}

// Server accepts websocket clients and runs one match per client.
type Server struct {
	logger   *zap.Logger
	manager  *game.Manager
	store    repository.CharacterStore
	opts     Options
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

// New creates a server over the shared match manager and character store.
func New(manager *game.Manager, store repository.CharacterStore, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = 100
	}
	s := &Server{
		logger:  logger,
		manager: manager,
		store:   store,
		opts:    opts,
		clients: make(map[string]*client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler routes the websocket endpoint and the read-only JSON endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/matches", s.listMatches)
	mux.HandleFunc("GET /api/characters", s.listCharacters)
	return mux
}

// checkOrigin allows every origin when none are configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.opts.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(s, conn)

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("client connected", zap.String("client_id", c.id), zap.String("remote", r.RemoteAddr))

	go c.writePump()
	go c.readPump()
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	if id := c.matchID(); id != "" {
		s.manager.EndMatch(id)
	}
	s.logger.Info("client disconnected", zap.String("client_id", c.id))
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// CloseAll disconnects every client.
func (s *Server) CloseAll() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (s *Server) listMatches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.ListMatches())
}

func (s *Server) listCharacters(w http.ResponseWriter, r *http.Request) {
	chars, err := s.store.ListCharacters(r.Context())
	if err != nil {
		s.logger.Error("list characters failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "character store unavailable"})
		return
	}
	sheets := make([]character.Sheet, 0, len(chars))
	for _, c := range chars {
		sheets = append(sheets, character.ToSheet(c))
	}
	writeJSON(w, http.StatusOK, sheets)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
