package progress

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"neuroquest/internal/celebrate"
	"neuroquest/internal/quest"
	"neuroquest/internal/store"
	"neuroquest/pkg/models"
)

// Service owns every learner's tracker. It serializes mutations behind one
// lock, keeps the authoritative state in memory, and writes through to the
// store after every mutation. A failed write is logged and swallowed: the
// in-memory state stays correct for the session and the worst case is stale
// state on the next load.
type Service struct {
	mu         sync.Mutex
	store      store.Store
	gen        *quest.Generator
	dispatcher *celebrate.Dispatcher
	stages     []models.EvolutionStage
	catalog    []models.Badge
	now        func() time.Time
	log        zerolog.Logger

	states map[int64]*models.PersistedState
}

// NewService wires the progress engine together. now may be nil, in which
// case time.Now is used.
func NewService(st store.Store, gen *quest.Generator, dispatcher *celebrate.Dispatcher, stages []models.EvolutionStage, catalog []models.Badge, now func() time.Time, log zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:      st,
		gen:        gen,
		dispatcher: dispatcher,
		stages:     stages,
		catalog:    catalog,
		now:        now,
		log:        log,
		states:     make(map[int64]*models.PersistedState),
	}
}

// Stages returns the evolution stage table.
func (s *Service) Stages() []models.EvolutionStage {
	return s.stages
}

// Snapshot returns a copy of the learner's current state, refreshing the
// daily quests first if the set has expired.
func (s *Service) Snapshot(learnerID int64) (models.PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.stateFor(learnerID)
	if err != nil {
		return models.PersistedState{}, err
	}
	if s.trackerFor(learnerID, state).RefreshQuestsIfNeeded(s.gen) {
		s.persist(learnerID, state)
	}
	return cloneState(state)
}

// AwardXP adds amount to both level XP and lifetime evolution XP.
func (s *Service) AwardXP(learnerID int64, amount int) error {
	return s.mutate(learnerID, func(t *Tracker) error {
		if err := t.AddXP(amount); err != nil {
			return err
		}
		return t.AddEvolutionXP(amount)
	})
}

// AddPoints adds to the learner's cumulative score.
func (s *Service) AddPoints(learnerID int64, amount int) error {
	return s.mutate(learnerID, func(t *Tracker) error {
		return t.AddPoints(amount)
	})
}

// SetMode records the learner's current play mode (explore, build, story...).
func (s *Service) SetMode(learnerID int64, mode string) error {
	return s.mutate(learnerID, func(t *Tracker) error {
		t.state.Core.CurrentMode = mode
		return nil
	})
}

// CompleteLesson records a lesson completion, awarding XP and points on the
// first completion only.
func (s *Service) CompleteLesson(learnerID int64, lessonID string) error {
	return s.mutate(learnerID, func(t *Tracker) error {
		return t.CompleteLesson(lessonID)
	})
}

// UpdateBadgeProgress advances a badge's progress counter.
func (s *Service) UpdateBadgeProgress(learnerID int64, badgeID string, delta int) error {
	return s.mutate(learnerID, func(t *Tracker) error {
		return t.UpdateBadgeProgress(badgeID, delta)
	})
}

// UpdateQuestProgress advances quests of the given type. The type must be in
// the template vocabulary.
func (s *Service) UpdateQuestProgress(learnerID int64, questType string, amount int) error {
	if !s.gen.KnownType(questType) {
		return fmt.Errorf("%w: %s", ErrUnknownQuestType, questType)
	}
	return s.mutate(learnerID, func(t *Tracker) error {
		t.RefreshQuestsIfNeeded(s.gen)
		return t.UpdateQuestProgress(questType, amount)
	})
}

// StartSession stamps the session start and updates the streak.
func (s *Service) StartSession(learnerID int64) error {
	return s.mutate(learnerID, func(t *Tracker) error {
		t.RefreshQuestsIfNeeded(s.gen)
		return t.StartSession()
	})
}

// EndSession flushes elapsed minutes into today's counters and returns them.
func (s *Service) EndSession(learnerID int64) (int, error) {
	minutes := 0
	err := s.mutate(learnerID, func(t *Tracker) error {
		var err error
		minutes, err = t.EndSession()
		return err
	})
	return minutes, err
}

// ResetProgress restores the learner to defaults and re-locks all badges.
func (s *Service) ResetProgress(learnerID int64) error {
	return s.mutate(learnerID, func(t *Tracker) error {
		t.Reset()
		return nil
	})
}

// RefreshExpiredQuests sweeps every known learner and refreshes stale quest
// sets. It returns how many learners were refreshed. Used by the midnight
// scheduler; learners also refresh lazily on their next request.
func (s *Service) RefreshExpiredQuests() (int, error) {
	ids, err := s.store.LearnerIDs()
	if err != nil {
		return 0, fmt.Errorf("failed to list learners: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	refreshed := 0
	for _, id := range ids {
		state, err := s.stateFor(id)
		if err != nil {
			s.log.Warn().Err(err).Int64("learner", id).Msg("skipping quest refresh")
			continue
		}
		if s.trackerFor(id, state).RefreshQuestsIfNeeded(s.gen) {
			s.persist(id, state)
			refreshed++
		}
	}
	return refreshed, nil
}

// mutate runs op on the learner's tracker under the service lock, then
// persists best-effort.
func (s *Service) mutate(learnerID int64, op func(*Tracker) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.stateFor(learnerID)
	if err != nil {
		return err
	}
	if err := op(s.trackerFor(learnerID, state)); err != nil {
		return err
	}
	s.persist(learnerID, state)
	return nil
}

// stateFor returns the cached state, loading from the store (or creating
// defaults) on first touch. Callers hold s.mu.
func (s *Service) stateFor(learnerID int64) (*models.PersistedState, error) {
	if state, ok := s.states[learnerID]; ok {
		return state, nil
	}

	state, err := s.store.LoadState(learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if state == nil {
		fresh := NewDefaultState(s.catalog)
		state = &fresh
	}
	s.states[learnerID] = state
	return state, nil
}

func (s *Service) trackerFor(learnerID int64, state *models.PersistedState) *Tracker {
	return NewTracker(learnerID, state, s.stages, s.catalog, s.dispatcher, s.now)
}

// persist writes through to the store. Failures are logged, not surfaced.
func (s *Service) persist(learnerID int64, state *models.PersistedState) {
	if err := s.store.SaveState(learnerID, state); err != nil {
		s.log.Warn().Err(err).Int64("learner", learnerID).Msg("failed to persist progress")
	}
}

// cloneState deep-copies via JSON so snapshots never alias engine memory.
func cloneState(state *models.PersistedState) (models.PersistedState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return models.PersistedState{}, err
	}
	var out models.PersistedState
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.PersistedState{}, err
	}
	return out, nil
}
