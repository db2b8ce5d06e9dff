package models

import "time"

// Quest type vocabulary. Each type maps to one of the per-day activity
// counters on EngagementState.
const (
	QuestTypeMissions    = "missions"
	QuestTypeNeurons     = "neurons"
	QuestTypeConnections = "connections"
	QuestTypeMinutes     = "minutes"
)

// Quest is one time-boxed daily objective. Progress only moves toward Target
// and is clamped there; Completed flips exactly once.
type Quest struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Target      int       `json:"target"`
	Progress    int       `json:"progress"`
	XPReward    int       `json:"xpReward"`
	Completed   bool      `json:"completed"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// QuestTemplate is one entry in the fixed generation catalog. XPPerUnit
// scales the reward by the chosen target.
type QuestTemplate struct {
	Type             string `json:"type" yaml:"type"`
	Title            string `json:"title" yaml:"title"`
	Description      string `json:"description" yaml:"description"`
	CandidateTargets []int  `json:"candidate_targets" yaml:"candidate_targets"`
	XPPerUnit        int    `json:"xp_per_unit" yaml:"xp_per_unit"`
}
