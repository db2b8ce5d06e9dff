package progress

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroquest/internal/celebrate"
	"neuroquest/internal/quest"
	"neuroquest/internal/store"
	"neuroquest/pkg/models"
)

// brokenStore fails every save, standing in for a full disk or quota error.
type brokenStore struct {
	*store.MemoryStore
}

func (b *brokenStore) SaveState(learnerID int64, state *models.PersistedState) error {
	return errors.New("disk full")
}

func newTestService(t *testing.T, st store.Store, clock *testClock) *Service {
	t.Helper()

	stages, err := DefaultStages()
	require.NoError(t, err)
	badges, err := DefaultBadges()
	require.NoError(t, err)
	templates, err := quest.DefaultTemplates()
	require.NoError(t, err)

	gen := quest.NewGenerator(templates, rand.New(rand.NewSource(1)), clock.Now)
	dispatcher := celebrate.New(0)
	return NewService(st, gen, dispatcher, stages, badges, clock.Now, zerolog.Nop())
}

func TestServiceSnapshotRefreshesQuests(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, store.NewMemoryStore(), clock)

	snapshot, err := svc.Snapshot(1)
	require.NoError(t, err)
	assert.Len(t, snapshot.Engagement.DailyQuests, quest.QuestsPerDay)
	assert.Equal(t, clock.Now(), snapshot.Engagement.LastQuestRefresh)

	// Next day: the set is replaced lazily on read.
	clock.AdvanceDays(1)
	snapshot2, err := svc.Snapshot(1)
	require.NoError(t, err)
	assert.NotEqual(t, snapshot.Engagement.DailyQuests[0].ID, snapshot2.Engagement.DailyQuests[0].ID)
}

func TestServicePersistsAcrossInstances(t *testing.T) {
	clock := newTestClock()
	st := store.NewMemoryStore()

	svc := newTestService(t, st, clock)
	require.NoError(t, svc.AwardXP(1, 250))
	require.NoError(t, svc.AddPoints(1, 40))

	// A fresh service over the same store sees the saved state.
	svc2 := newTestService(t, st, clock)
	snapshot, err := svc2.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.Core.Level)
	assert.Equal(t, 40, snapshot.Core.TotalPoints)
	assert.Equal(t, 250, snapshot.Engagement.TotalXPEarned)
}

func TestServiceSwallowsPersistenceFailures(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, &brokenStore{store.NewMemoryStore()}, clock)

	// The mutation succeeds even though every save fails; in-memory state
	// stays authoritative for the session.
	require.NoError(t, svc.AwardXP(1, 100))
	snapshot, err := svc.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Core.Level)
}

func TestServiceValidatesQuestType(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, store.NewMemoryStore(), clock)

	require.ErrorIs(t, svc.UpdateQuestProgress(1, "telepathy", 1), ErrUnknownQuestType)
	require.NoError(t, svc.UpdateQuestProgress(1, models.QuestTypeNeurons, 2))
}

func TestServiceSnapshotIsACopy(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, store.NewMemoryStore(), clock)

	snapshot, err := svc.Snapshot(1)
	require.NoError(t, err)
	snapshot.Core.TotalPoints = 12345

	again, err := svc.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Core.TotalPoints)
}

func TestServiceRefreshExpiredQuests(t *testing.T) {
	clock := newTestClock()
	st := store.NewMemoryStore()
	svc := newTestService(t, st, clock)

	a, err := st.CreateLearner("a@example.com", "A", "h")
	require.NoError(t, err)
	b, err := st.CreateLearner("b@example.com", "B", "h")
	require.NoError(t, err)

	// Seed both learners with quest sets, then cross midnight.
	_, err = svc.Snapshot(a.ID)
	require.NoError(t, err)
	_, err = svc.Snapshot(b.ID)
	require.NoError(t, err)

	clock.AdvanceDays(1)
	refreshed, err := svc.RefreshExpiredQuests()
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)

	// Nothing left to refresh.
	refreshed, err = svc.RefreshExpiredQuests()
	require.NoError(t, err)
	assert.Equal(t, 0, refreshed)
}
