package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"neuroquest/pkg/models"
)

// MemoryStore is an in-memory Store used by tests and as a fallback when no
// database path is configured. State is round-tripped through JSON so callers
// never share memory with the store.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	learners map[int64]models.Learner
	byEmail  map[string]int64
	states   map[int64][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		learners: make(map[int64]models.Learner),
		byEmail:  make(map[string]int64),
		states:   make(map[int64][]byte),
	}
}

// CreateLearner inserts a new account.
func (m *MemoryStore) CreateLearner(email, displayName, passwordHash string) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return nil, fmt.Errorf("learner %s already exists", email)
	}

	l := models.Learner{
		ID:           m.nextID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.learners[l.ID] = l
	m.byEmail[email] = l.ID
	return &l, nil
}

// LearnerByEmail looks up an account by email.
func (m *MemoryStore) LearnerByEmail(email string) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	l := m.learners[id]
	return &l, nil
}

// LearnerByID looks up an account by ID.
func (m *MemoryStore) LearnerByID(id int64) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.learners[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

// LearnerIDs returns every account ID in ascending order.
func (m *MemoryStore) LearnerIDs() ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.learners))
	for id := range m.learners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LoadState returns the saved state, or (nil, nil) if none exists.
func (m *MemoryStore) LoadState(learnerID int64) (*models.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.states[learnerID]
	if !ok {
		return nil, nil
	}
	var state models.PersistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState stores a snapshot of the state.
func (m *MemoryStore) SaveState(learnerID int64, state *models.PersistedState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[learnerID] = raw
	return nil
}

// Leaderboard ranks learners by total points from their saved states.
func (m *MemoryStore) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]models.LeaderboardEntry, 0, len(m.learners))
	for id, l := range m.learners {
		entry := models.LeaderboardEntry{LearnerID: id, DisplayName: l.DisplayName, Level: 1}
		if raw, ok := m.states[id]; ok {
			var state models.PersistedState
			if err := json.Unmarshal(raw, &state); err != nil {
				return nil, err
			}
			entry.TotalPoints = state.Core.TotalPoints
			entry.Level = state.Core.Level
			entry.CurrentStreak = state.Engagement.CurrentStreak
			entry.EvolutionStage = state.Engagement.CurrentEvolutionStage
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].LearnerID < entries[j].LearnerID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
