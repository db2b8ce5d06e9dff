package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"neuroquest/internal/progress"
	"neuroquest/internal/store"
)

const leaderboardLimit = 50

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.DisplayName == "" || len(req.Password) < 6 {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	if _, err := s.store.LearnerByEmail(req.Email); err == nil {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	learner, err := s.store.CreateLearner(req.Email, req.DisplayName, string(hashed))
	if err != nil {
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		s.log.Error().Err(err).Msg("failed to create learner")
		return
	}

	s.setSession(w, learner.ID)
	s.writeJSON(w, http.StatusCreated, learner)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	learner, err := s.store.LearnerByEmail(strings.TrimSpace(strings.ToLower(credentials.Email)))
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(learner.PasswordHash), []byte(credentials.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	s.setSession(w, learner.ID)
	s.writeJSON(w, http.StatusOK, learner)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	learner, err := s.store.LearnerByID(learnerID)
	if err != nil {
		http.Error(w, "Learner not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, learner)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	snapshot, err := s.progress.Snapshot(learnerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.progress.AwardXP(learnerID, req.Amount); err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.BroadcastLeaderboard()
	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.progress.AddPoints(learnerID, req.Amount); err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.BroadcastLeaderboard()
	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.progress.ResetProgress(learnerID); err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.BroadcastLeaderboard()
	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mode == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.progress.SetMode(learnerID, req.Mode); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	lessonID := mux.Vars(r)["id"]
	if lessonID == "" {
		http.Error(w, "Invalid lesson ID", http.StatusBadRequest)
		return
	}

	if err := s.progress.CompleteLesson(learnerID, lessonID); err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.BroadcastLeaderboard()
	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleBadgeProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.progress.UpdateBadgeProgress(learnerID, mux.Vars(r)["id"], req.Delta); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleGetQuests(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	snapshot, err := s.progress.Snapshot(learnerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot.Engagement.DailyQuests)
}

func (s *Server) handleQuestProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Type   string `json:"type"`
		Amount int    `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.progress.UpdateQuestProgress(learnerID, req.Type, req.Amount); err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.progress.StartSession(learnerID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeSnapshot(w, learnerID)
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	learnerID := s.learnerFromSession(r)
	if learnerID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	minutes, err := s.progress.EndSession(learnerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"minutes": minutes})
}

func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.progress.Stages())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Leaderboard(leaderboardLimit)
	if err != nil {
		http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
		s.log.Error().Err(err).Msg("failed to get leaderboard")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleEvolabEvolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Population [][]float64 `json:"population"`
		Target     []float64   `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if len(req.Target) == 0 {
		http.Error(w, "Missing target genome", http.StatusBadRequest)
		return
	}

	s.labMu.Lock()
	if len(req.Population) == 0 {
		req.Population = s.lab.Seed()
	}
	next, best, err := s.lab.Step(req.Population, req.Target)
	s.labMu.Unlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"population": next,
		"best":       best,
	})
}

// Helper functions

func (s *Server) setSession(w http.ResponseWriter, learnerID int64) {
	// Simplified session: the cookie carries the learner ID directly.
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    strconv.FormatInt(learnerID, 10),
		Path:     "/",
		HttpOnly: true,
		MaxAge:   86400, // 24 hours
	})
}

func (s *Server) learnerFromSession(r *http.Request) int64 {
	cookie, err := r.Cookie("session")
	if err != nil {
		return 0
	}

	learnerID, err := strconv.ParseInt(cookie.Value, 10, 64)
	if err != nil {
		return 0
	}
	return learnerID
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeSnapshot(w http.ResponseWriter, learnerID int64) {
	snapshot, err := s.progress.Snapshot(learnerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrNegativeAmount),
		errors.Is(err, progress.ErrUnknownQuestType),
		errors.Is(err, progress.ErrUnknownBadge):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
		s.log.Error().Err(err).Msg("progress operation failed")
	}
}
