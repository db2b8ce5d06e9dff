package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"neuroquest/internal/celebrate"
	"neuroquest/internal/evolab"
	"neuroquest/internal/progress"
	"neuroquest/internal/store"
)

// Server holds the HTTP surface: learner accounts, the progress API and the
// websocket feed of celebrations and leaderboard updates.
type Server struct {
	store    store.Store
	progress *progress.Service
	lab      *evolab.Lab
	labMu    sync.Mutex
	router   *mux.Router
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer wires routes and starts the websocket hub.
func NewServer(st store.Store, svc *progress.Service, lab *evolab.Lab, log zerolog.Logger) *Server {
	s := &Server{
		store:    st,
		progress: svc,
		lab:      lab,
		router:   mux.NewRouter(),
		hub:      newHub(log),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}

	s.setupRoutes()
	go s.hub.run()

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Accounts
	api.HandleFunc("/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/me", s.handleMe).Methods("GET")

	// Progress tracker
	api.HandleFunc("/progress", s.handleGetProgress).Methods("GET")
	api.HandleFunc("/progress/xp", s.handleAwardXP).Methods("POST")
	api.HandleFunc("/progress/points", s.handleAddPoints).Methods("POST")
	api.HandleFunc("/progress/reset", s.handleResetProgress).Methods("POST")
	api.HandleFunc("/progress/mode", s.handleSetMode).Methods("POST")
	api.HandleFunc("/lessons/{id}/complete", s.handleCompleteLesson).Methods("POST")
	api.HandleFunc("/badges/{id}/progress", s.handleBadgeProgress).Methods("POST")

	// Quests and sessions
	api.HandleFunc("/quests", s.handleGetQuests).Methods("GET")
	api.HandleFunc("/quests/progress", s.handleQuestProgress).Methods("POST")
	api.HandleFunc("/session/start", s.handleSessionStart).Methods("POST")
	api.HandleFunc("/session/end", s.handleSessionEnd).Methods("POST")

	// Read-only views
	api.HandleFunc("/evolution/stages", s.handleStages).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")

	// Evolution lab demo
	api.HandleFunc("/evolab/evolve", s.handleEvolabEvolve).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastCelebration pushes a celebration event to every client. Wired to
// the dispatcher at startup.
func (s *Server) BroadcastCelebration(ev celebrate.Event) {
	s.hub.send("celebration", ev)
}

// BroadcastLeaderboard pushes the current standings to every client.
func (s *Server) BroadcastLeaderboard() {
	entries, err := s.store.Leaderboard(leaderboardLimit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build leaderboard broadcast")
		return
	}
	s.hub.send("leaderboard-update", entries)
}
