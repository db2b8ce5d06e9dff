package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroquest/pkg/models"
)

// sampleState builds a reachable-looking state with fixed timestamps so the
// round-trip comparison is exact.
func sampleState() *models.PersistedState {
	unlocked := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	refreshed := time.Date(2026, 8, 23, 0, 5, 0, 0, time.UTC)
	return &models.PersistedState{
		Core: models.CoreState{
			Level:            4,
			XP:               120,
			XPToNext:         337,
			TotalPoints:      900,
			CurrentMode:      "explore",
			CompletedLessons: []string{"neurons-101", "synapses-101"},
			Achievements:     []string{"first-lesson"},
		},
		Engagement: models.EngagementState{
			DailyQuests: []models.Quest{
				{
					ID: "q-1", Type: models.QuestTypeNeurons, Title: "Neuron Gardener",
					Description: "Place 10 neurons today", Target: 10, Progress: 4,
					XPReward: 50, ExpiresAt: refreshed.AddDate(0, 0, 1),
				},
			},
			LastQuestRefresh:      refreshed,
			CurrentStreak:         3,
			LongestStreak:         6,
			LastActiveDate:        "2026-08-23",
			CurrentEvolutionStage: 2,
			TotalXPEarned:         760,
			Badges: []models.Badge{
				{ID: "first-lesson", Name: "First Steps", Rarity: models.RarityCommon, Category: "lessons", UnlockedAt: &unlocked},
				{ID: "neuron-builder", Name: "Neuron Builder", Rarity: models.RarityCommon, Category: "building", Progress: 40, MaxProgress: 100},
			},
			MissionsCompletedToday:  1,
			NeuronsPlacedToday:      4,
			ConnectionsCreatedToday: 2,
			MinutesPlayedToday:      25,
		},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	learner, err := m.CreateLearner("worm@example.com", "Wormy", "hash")
	require.NoError(t, err)

	loaded, err := m.LoadState(learner.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded, "fresh learner has no saved state")

	state := sampleState()
	require.NoError(t, m.SaveState(learner.ID, state))

	loaded, err = m.LoadState(learner.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state, loaded)
}

func TestMemoryStoreSnapshotsDoNotAlias(t *testing.T) {
	m := NewMemoryStore()
	learner, err := m.CreateLearner("worm@example.com", "Wormy", "hash")
	require.NoError(t, err)

	state := sampleState()
	require.NoError(t, m.SaveState(learner.ID, state))

	// Mutating the caller's copy after save must not affect the store.
	state.Core.TotalPoints = 9999
	loaded, err := m.LoadState(learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 900, loaded.Core.TotalPoints)
}

func TestMemoryStoreLearners(t *testing.T) {
	m := NewMemoryStore()

	a, err := m.CreateLearner("a@example.com", "A", "hash-a")
	require.NoError(t, err)
	b, err := m.CreateLearner("b@example.com", "B", "hash-b")
	require.NoError(t, err)

	_, err = m.CreateLearner("a@example.com", "Dup", "hash")
	assert.Error(t, err, "duplicate email rejected")

	byEmail, err := m.LearnerByEmail("b@example.com")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byEmail.ID)

	_, err = m.LearnerByEmail("missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.LearnerByID(999)
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := m.LearnerIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ids)
}

func TestMemoryStoreLeaderboard(t *testing.T) {
	m := NewMemoryStore()

	a, _ := m.CreateLearner("a@example.com", "A", "h")
	b, _ := m.CreateLearner("b@example.com", "B", "h")
	c, _ := m.CreateLearner("c@example.com", "C", "h")

	stateA := sampleState()
	stateA.Core.TotalPoints = 100
	require.NoError(t, m.SaveState(a.ID, stateA))

	stateB := sampleState()
	stateB.Core.TotalPoints = 300
	require.NoError(t, m.SaveState(b.ID, stateB))

	// c has no saved state and sorts last with zero points.
	entries, err := m.Leaderboard(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, b.ID, entries[0].LearnerID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, a.ID, entries[1].LearnerID)
	assert.Equal(t, c.ID, entries[2].LearnerID)

	top, err := m.Leaderboard(1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, b.ID, top[0].LearnerID)
}
