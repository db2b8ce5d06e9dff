package progress

import (
	"math"

	"neuroquest/pkg/models"
)

// Award sizes and thresholds for tracker events.
const (
	lessonXP     = 50
	lessonPoints = 100

	levelBadgeID = "level-10"
	levelBadgeAt = 10

	startingXPToNext = 100
)

// streakMilestones are the streak lengths that fire a milestone celebration,
// once per upward crossing.
var streakMilestones = []int{7, 30, 100}

// xpToNextLevel returns the level-up threshold: floor(100 * 1.5^(level-1)).
func xpToNextLevel(level int) int {
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// NewDefaultState returns the state a brand-new learner starts with. The
// badge catalog is copied in locked form.
func NewDefaultState(badges []models.Badge) models.PersistedState {
	locked := make([]models.Badge, len(badges))
	for i, b := range badges {
		b.Progress = 0
		b.UnlockedAt = nil
		locked[i] = b
	}

	return models.PersistedState{
		Core: models.CoreState{
			Level:            1,
			XP:               0,
			XPToNext:         startingXPToNext,
			TotalPoints:      0,
			CurrentMode:      "explore",
			CompletedLessons: []string{},
			Achievements:     []string{},
		},
		Engagement: models.EngagementState{
			DailyQuests:           []models.Quest{},
			CurrentStreak:         0,
			LongestStreak:         0,
			LastActiveDate:        "",
			CurrentEvolutionStage: 0,
			TotalXPEarned:         0,
			Badges:                locked,
		},
	}
}
