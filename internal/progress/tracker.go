// Package progress is the single source of truth for a learner's
// gamification state: XP, level, streaks, evolution stage, badges and daily
// quests. All mutation goes through the tracker; derived values (level
// thresholds, evolution stage, badge unlocks) are recomputed at the point of
// mutation and celebrations are published through the dispatcher.
package progress

import (
	"errors"
	"fmt"
	"time"

	"neuroquest/internal/celebrate"
	"neuroquest/internal/quest"
	"neuroquest/pkg/models"
)

var (
	// ErrNegativeAmount rejects negative XP/point/progress deltas instead of
	// letting them silently corrupt counters.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrUnknownBadge means the badge ID is not in the catalog.
	ErrUnknownBadge = errors.New("unknown badge")

	// ErrUnknownQuestType means the quest type is not in the template
	// vocabulary.
	ErrUnknownQuestType = errors.New("unknown quest type")
)

// Tracker mutates one learner's state. It is not safe for concurrent use;
// the owning service serializes calls.
type Tracker struct {
	learnerID  int64
	state      *models.PersistedState
	stages     []models.EvolutionStage
	catalog    []models.Badge
	dispatcher *celebrate.Dispatcher
	now        func() time.Time
}

// NewTracker binds a tracker to a learner's state. now may be nil, in which
// case time.Now is used.
func NewTracker(learnerID int64, state *models.PersistedState, stages []models.EvolutionStage, catalog []models.Badge, dispatcher *celebrate.Dispatcher, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		learnerID:  learnerID,
		state:      state,
		stages:     stages,
		catalog:    catalog,
		dispatcher: dispatcher,
		now:        now,
	}
}

// AddXP adds toward the next level, carrying the remainder across as many
// level-ups as the amount covers. The threshold grows geometrically with the
// new level. Reaching level 10 unlocks the level badge.
func (t *Tracker) AddXP(amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	c := &t.state.Core
	c.XP += amount

	leveled := false
	for c.XP >= c.XPToNext {
		c.XP -= c.XPToNext
		c.Level++
		c.XPToNext = xpToNextLevel(c.Level)
		leveled = true
	}

	if leveled {
		t.dispatcher.Dispatch(celebrate.Event{
			Kind:      celebrate.KindLevelUp,
			LearnerID: t.learnerID,
			Level:     c.Level,
			At:        t.now(),
		})
		if c.Level >= levelBadgeAt {
			if err := t.UnlockBadge(levelBadgeID); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddPoints accumulates the cumulative score. No derived effects.
func (t *Tracker) AddPoints(amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	t.state.Core.TotalPoints += amount
	return nil
}

// AddEvolutionXP adds to lifetime XP and recomputes the evolution stage:
// the highest stage whose threshold is satisfied. The stage never moves
// backward because lifetime XP never decreases.
func (t *Tracker) AddEvolutionXP(amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	e := &t.state.Engagement
	e.TotalXPEarned += amount

	next := StageFor(e.TotalXPEarned, t.stages)
	if next > e.CurrentEvolutionStage {
		e.CurrentEvolutionStage = next
		t.dispatcher.Dispatch(celebrate.Event{
			Kind:      celebrate.KindEvolution,
			LearnerID: t.learnerID,
			Stage:     next,
			StageName: t.stages[next].Name,
			At:        t.now(),
		})
		if next == len(t.stages)-1 {
			if err := t.UnlockBadge("golden-worm"); err != nil {
				return err
			}
		}
	}
	return nil
}

// StageFor resolves the evolution stage for a lifetime XP total: the largest
// index whose unlock threshold is satisfied, scanning from the top.
func StageFor(totalXP int, stages []models.EvolutionStage) int {
	for i := len(stages) - 1; i >= 0; i-- {
		if totalXP >= stages[i].UnlockThresholdXP {
			return i
		}
	}
	return 0
}

// CompleteLesson records a lesson completion. Re-completing an already
// recorded lesson is a no-op and never re-awards XP or points.
func (t *Tracker) CompleteLesson(id string) error {
	c := &t.state.Core
	for _, done := range c.CompletedLessons {
		if done == id {
			return nil
		}
	}

	first := len(c.CompletedLessons) == 0
	c.CompletedLessons = append(c.CompletedLessons, id)

	if err := t.AddXP(lessonXP); err != nil {
		return err
	}
	if err := t.AddEvolutionXP(lessonXP); err != nil {
		return err
	}
	if err := t.AddPoints(lessonPoints); err != nil {
		return err
	}
	if first {
		return t.UnlockBadge("first-lesson")
	}
	return nil
}

// UnlockBadge sets the badge's unlock timestamp if it is not already set.
// The celebration fires exactly once per badge; repeat calls are no-ops.
func (t *Tracker) UnlockBadge(id string) error {
	b := t.findBadge(id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrUnknownBadge, id)
	}
	if b.Unlocked() {
		return nil
	}

	at := t.now()
	b.UnlockedAt = &at
	if b.MaxProgress > 0 && b.Progress < b.MaxProgress {
		b.Progress = b.MaxProgress
	}
	t.state.Core.Achievements = append(t.state.Core.Achievements, b.ID)

	t.dispatcher.Dispatch(celebrate.Event{
		Kind:      celebrate.KindBadgeUnlock,
		LearnerID: t.learnerID,
		BadgeID:   b.ID,
		BadgeName: b.Name,
		At:        at,
	})
	return nil
}

// UpdateBadgeProgress accumulates toward a badge's unlock threshold and
// unlocks it when the threshold is reached. Progress on an already unlocked
// badge is a no-op.
func (t *Tracker) UpdateBadgeProgress(id string, delta int) error {
	if delta < 0 {
		return ErrNegativeAmount
	}
	b := t.findBadge(id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrUnknownBadge, id)
	}
	if b.Unlocked() {
		return nil
	}

	b.Progress += delta
	if b.MaxProgress > 0 && b.Progress >= b.MaxProgress {
		b.Progress = b.MaxProgress
		return t.UnlockBadge(id)
	}
	return nil
}

// CheckStreak compares the last active date to today. Same day is a no-op;
// yesterday extends the streak; anything older resets it to 1. Milestone
// celebrations fire on the upward crossing only, and each milestone also
// unlocks its streak badge.
func (t *Tracker) CheckStreak() error {
	e := &t.state.Engagement
	now := t.now()
	today := now.Format("2006-01-02")
	if e.LastActiveDate == today {
		return nil
	}
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	prev := e.CurrentStreak
	if e.LastActiveDate == yesterday {
		e.CurrentStreak++
	} else {
		e.CurrentStreak = 1
	}
	e.LastActiveDate = today
	if e.CurrentStreak > e.LongestStreak {
		e.LongestStreak = e.CurrentStreak
	}

	for _, m := range streakMilestones {
		if prev < m && e.CurrentStreak >= m {
			t.dispatcher.Dispatch(celebrate.Event{
				Kind:      celebrate.KindStreakMilestone,
				LearnerID: t.learnerID,
				Milestone: m,
				At:        now,
			})
			if err := t.UnlockBadge(fmt.Sprintf("streak-%d", m)); err != nil {
				return err
			}
		}
	}
	return nil
}

// StartSession stamps the session start and counts today as an active day.
func (t *Tracker) StartSession() error {
	now := t.now()
	t.state.Engagement.SessionStartTime = &now
	return t.CheckStreak()
}

// EndSession flushes elapsed whole minutes into today's play time and the
// minute-type quests. Without a matching start it is a no-op.
func (t *Tracker) EndSession() (int, error) {
	e := &t.state.Engagement
	if e.SessionStartTime == nil {
		return 0, nil
	}
	minutes := int(t.now().Sub(*e.SessionStartTime).Minutes())
	e.SessionStartTime = nil
	if minutes <= 0 {
		return 0, nil
	}
	return minutes, t.UpdateQuestProgress(models.QuestTypeMinutes, minutes)
}

// UpdateQuestProgress advances every non-completed quest of the given type,
// clamping at the target. Completion fires the quest celebration exactly
// once per quest and awards its XP reward. The matching today-counter and
// the building badges advance alongside.
func (t *Tracker) UpdateQuestProgress(questType string, amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	e := &t.state.Engagement
	switch questType {
	case models.QuestTypeMissions:
		e.MissionsCompletedToday += amount
	case models.QuestTypeNeurons:
		e.NeuronsPlacedToday += amount
		if err := t.UpdateBadgeProgress("neuron-builder", amount); err != nil {
			return err
		}
	case models.QuestTypeConnections:
		e.ConnectionsCreatedToday += amount
		if err := t.UpdateBadgeProgress("connection-expert", amount); err != nil {
			return err
		}
	case models.QuestTypeMinutes:
		e.MinutesPlayedToday += amount
	default:
		return fmt.Errorf("%w: %s", ErrUnknownQuestType, questType)
	}

	for i := range e.DailyQuests {
		q := &e.DailyQuests[i]
		if q.Type != questType || q.Completed {
			continue
		}
		q.Progress += amount
		if q.Progress < q.Target {
			continue
		}
		q.Progress = q.Target
		q.Completed = true

		t.dispatcher.Dispatch(celebrate.Event{
			Kind:      celebrate.KindQuestComplete,
			LearnerID: t.learnerID,
			QuestID:   q.ID,
			QuestName: q.Title,
			XPReward:  q.XPReward,
			At:        t.now(),
		})

		if err := t.AddXP(q.XPReward); err != nil {
			return err
		}
		if err := t.AddEvolutionXP(q.XPReward); err != nil {
			return err
		}
		if err := t.UpdateBadgeProgress("quest-master", 1); err != nil {
			return err
		}
	}
	return nil
}

// RefreshQuestsIfNeeded replaces the whole quest list when it is empty or
// any quest has expired, and zeroes today's activity counters. The refresh
// is atomic: there is no partial replacement. Returns whether it refreshed.
func (t *Tracker) RefreshQuestsIfNeeded(gen *quest.Generator) bool {
	e := &t.state.Engagement
	if !gen.Expired(e.DailyQuests) {
		return false
	}

	e.DailyQuests = gen.Generate(quest.QuestsPerDay)
	e.LastQuestRefresh = t.now()
	e.MissionsCompletedToday = 0
	e.NeuronsPlacedToday = 0
	e.ConnectionsCreatedToday = 0
	e.MinutesPlayedToday = 0
	return true
}

// Reset restores every field to its default and re-locks all badges.
func (t *Tracker) Reset() {
	*t.state = NewDefaultState(t.catalog)
}

func (t *Tracker) findBadge(id string) *models.Badge {
	badges := t.state.Engagement.Badges
	for i := range badges {
		if badges[i].ID == id {
			return &badges[i]
		}
	}
	return nil
}
