package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroquest/internal/celebrate"
	"neuroquest/pkg/models"
)

// testClock is a controllable clock for streak and session tests.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.current }
func (c *testClock) Advance(d time.Duration) { c.current = c.current.Add(d) }
func (c *testClock) AdvanceDays(days int)    { c.current = c.current.AddDate(0, 0, days) }

func newTestTracker(t *testing.T, clock *testClock) (*Tracker, *models.PersistedState, *[]celebrate.Event) {
	t.Helper()

	stages, err := DefaultStages()
	require.NoError(t, err)
	badges, err := DefaultBadges()
	require.NoError(t, err)

	var events []celebrate.Event
	dispatcher := celebrate.New(0)
	dispatcher.Subscribe(func(ev celebrate.Event) {
		events = append(events, ev)
	})

	state := NewDefaultState(badges)
	tracker := NewTracker(1, &state, stages, badges, dispatcher, clock.Now)
	return tracker, &state, &events
}

func eventsOfKind(events []celebrate.Event, kind celebrate.Kind) []celebrate.Event {
	var out []celebrate.Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestAddXPGeometricThresholds(t *testing.T) {
	tracker, state, events := newTestTracker(t, newTestClock())

	// 250 XP from level 1: crosses 100 then 150, landing on level 3 with
	// nothing left over and a threshold of floor(100*1.5^2) = 225.
	require.NoError(t, tracker.AddXP(250))
	assert.Equal(t, 3, state.Core.Level)
	assert.Equal(t, 0, state.Core.XP)
	assert.Equal(t, 225, state.Core.XPToNext)

	levelUps := eventsOfKind(*events, celebrate.KindLevelUp)
	require.Len(t, levelUps, 1)
	assert.Equal(t, 3, levelUps[0].Level)
}

func TestAddXPInvariantHoldsAcrossSequences(t *testing.T) {
	tracker, state, _ := newTestTracker(t, newTestClock())

	for _, amount := range []int{0, 1, 99, 100, 37, 512, 10000, 3} {
		require.NoError(t, tracker.AddXP(amount))
		assert.Less(t, state.Core.XP, state.Core.XPToNext)
		assert.GreaterOrEqual(t, state.Core.XP, 0)
		assert.Equal(t, xpToNextLevel(state.Core.Level), state.Core.XPToNext)
	}
}

func TestAddXPRejectsNegative(t *testing.T) {
	tracker, state, _ := newTestTracker(t, newTestClock())

	require.ErrorIs(t, tracker.AddXP(-1), ErrNegativeAmount)
	assert.Equal(t, 0, state.Core.XP)
	assert.Equal(t, 1, state.Core.Level)
}

func TestAddXPLevelTenUnlocksBadge(t *testing.T) {
	tracker, state, events := newTestTracker(t, newTestClock())

	// Thresholds for levels 1..9 sum to 7486.
	require.NoError(t, tracker.AddXP(7486))
	require.Equal(t, 10, state.Core.Level)

	unlocks := eventsOfKind(*events, celebrate.KindBadgeUnlock)
	require.Len(t, unlocks, 1)
	assert.Equal(t, "level-10", unlocks[0].BadgeID)
}

func TestAddPoints(t *testing.T) {
	tracker, state, _ := newTestTracker(t, newTestClock())

	require.NoError(t, tracker.AddPoints(10))
	require.NoError(t, tracker.AddPoints(0))
	require.NoError(t, tracker.AddPoints(5))
	assert.Equal(t, 15, state.Core.TotalPoints)

	require.ErrorIs(t, tracker.AddPoints(-5), ErrNegativeAmount)
	assert.Equal(t, 15, state.Core.TotalPoints)
}

func TestCompleteLessonIdempotent(t *testing.T) {
	tracker, state, _ := newTestTracker(t, newTestClock())

	require.NoError(t, tracker.CompleteLesson("neurons-101"))
	xpAfterFirst := state.Engagement.TotalXPEarned
	pointsAfterFirst := state.Core.TotalPoints
	assert.Equal(t, []string{"neurons-101"}, state.Core.CompletedLessons)
	assert.Greater(t, xpAfterFirst, 0)

	// Re-completing must not re-award anything.
	require.NoError(t, tracker.CompleteLesson("neurons-101"))
	assert.Equal(t, []string{"neurons-101"}, state.Core.CompletedLessons)
	assert.Equal(t, xpAfterFirst, state.Engagement.TotalXPEarned)
	assert.Equal(t, pointsAfterFirst, state.Core.TotalPoints)
}

func TestFirstLessonUnlocksBadge(t *testing.T) {
	tracker, state, _ := newTestTracker(t, newTestClock())

	require.NoError(t, tracker.CompleteLesson("a"))
	require.NoError(t, tracker.CompleteLesson("b"))

	var firstLesson *models.Badge
	for i := range state.Engagement.Badges {
		if state.Engagement.Badges[i].ID == "first-lesson" {
			firstLesson = &state.Engagement.Badges[i]
		}
	}
	require.NotNil(t, firstLesson)
	assert.True(t, firstLesson.Unlocked())
}

func TestUnlockBadgeIdempotent(t *testing.T) {
	clock := newTestClock()
	tracker, state, events := newTestTracker(t, clock)

	require.NoError(t, tracker.UnlockBadge("first-lesson"))
	firstAt := *state.Engagement.Badges[0].UnlockedAt

	clock.Advance(time.Hour)
	require.NoError(t, tracker.UnlockBadge("first-lesson"))

	// The timestamp never changes and the celebration fired once.
	assert.Equal(t, firstAt, *state.Engagement.Badges[0].UnlockedAt)
	assert.Len(t, eventsOfKind(*events, celebrate.KindBadgeUnlock), 1)

	require.ErrorIs(t, tracker.UnlockBadge("no-such-badge"), ErrUnknownBadge)
}

func TestUpdateBadgeProgress(t *testing.T) {
	tracker, state, events := newTestTracker(t, newTestClock())

	// neuron-builder unlocks at 100.
	require.NoError(t, tracker.UpdateBadgeProgress("neuron-builder", 60))
	require.NoError(t, tracker.UpdateBadgeProgress("neuron-builder", 60))

	var badge *models.Badge
	for i := range state.Engagement.Badges {
		if state.Engagement.Badges[i].ID == "neuron-builder" {
			badge = &state.Engagement.Badges[i]
		}
	}
	require.NotNil(t, badge)
	assert.True(t, badge.Unlocked())
	assert.Equal(t, badge.MaxProgress, badge.Progress)

	// Over-threshold updates after unlock are no-ops.
	require.NoError(t, tracker.UpdateBadgeProgress("neuron-builder", 500))
	assert.Equal(t, badge.MaxProgress, badge.Progress)
	assert.Len(t, eventsOfKind(*events, celebrate.KindBadgeUnlock), 1)

	require.ErrorIs(t, tracker.UpdateBadgeProgress("neuron-builder", -1), ErrNegativeAmount)
}

func TestResetRestoresDefaults(t *testing.T) {
	tracker, state, _ := newTestTracker(t, newTestClock())

	require.NoError(t, tracker.AddXP(5000))
	require.NoError(t, tracker.AddEvolutionXP(5000))
	require.NoError(t, tracker.AddPoints(300))
	require.NoError(t, tracker.CompleteLesson("x"))
	require.NoError(t, tracker.CheckStreak())

	tracker.Reset()

	badges, err := DefaultBadges()
	require.NoError(t, err)
	assert.Equal(t, NewDefaultState(badges), *state)
	for _, b := range state.Engagement.Badges {
		assert.False(t, b.Unlocked(), "badge %s survived reset", b.ID)
		assert.Equal(t, 0, b.Progress)
	}
}
