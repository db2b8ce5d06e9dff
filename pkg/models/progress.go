package models

import "time"

// CoreState is the "wormquest-storage" namespace: level/XP bookkeeping plus
// the completed-lesson set. Field names follow the persisted JSON layout.
type CoreState struct {
	Level            int      `json:"level"`
	XP               int      `json:"xp"`
	XPToNext         int      `json:"xpToNext"`
	TotalPoints      int      `json:"totalPoints"`
	CurrentMode      string   `json:"currentMode"`
	CompletedLessons []string `json:"completedLessons"`
	Achievements     []string `json:"achievements"`
}

// EngagementState is the "neuroquest-engagement-storage" namespace: quests,
// streaks, evolution and badge state plus the per-day activity counters.
type EngagementState struct {
	DailyQuests             []Quest    `json:"dailyQuests"`
	LastQuestRefresh        time.Time  `json:"lastQuestRefresh"`
	CurrentStreak           int        `json:"currentStreak"`
	LongestStreak           int        `json:"longestStreak"`
	LastActiveDate          string     `json:"lastActiveDate"`
	CurrentEvolutionStage   int        `json:"currentEvolutionStage"`
	TotalXPEarned           int        `json:"totalXPEarned"`
	Badges                  []Badge    `json:"badges"`
	MissionsCompletedToday  int        `json:"missionsCompletedToday"`
	NeuronsPlacedToday      int        `json:"neuronsPlacedToday"`
	ConnectionsCreatedToday int        `json:"connectionsCreatedToday"`
	MinutesPlayedToday      int        `json:"minutesPlayedToday"`
	SessionStartTime        *time.Time `json:"sessionStartTime,omitempty"`
}

// PersistedState is the full per-learner snapshot the store round-trips.
type PersistedState struct {
	Core       CoreState       `json:"core"`
	Engagement EngagementState `json:"engagement"`
}

// EvolutionStage is one tier in the fixed worm life-cycle table. Stages are
// unlocked by lifetime XP, independent of level.
type EvolutionStage struct {
	Stage             int      `json:"stage" yaml:"stage"`
	Name              string   `json:"name" yaml:"name"`
	UnlockThresholdXP int      `json:"unlock_threshold_xp" yaml:"unlock_threshold_xp"`
	Abilities         []string `json:"abilities" yaml:"abilities"`
	Description       string   `json:"description" yaml:"description"`
}

// Learner is an account row. PasswordHash never leaves the server.
type Learner struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LeaderboardEntry is a ranked learner summary for the leaderboard view.
type LeaderboardEntry struct {
	Rank           int    `json:"rank" db:"-"`
	LearnerID      int64  `json:"learner_id" db:"id"`
	DisplayName    string `json:"display_name" db:"display_name"`
	TotalPoints    int    `json:"total_points" db:"total_points"`
	Level          int    `json:"level" db:"level"`
	CurrentStreak  int    `json:"current_streak" db:"current_streak"`
	EvolutionStage int    `json:"evolution_stage" db:"evolution_stage"`
}
