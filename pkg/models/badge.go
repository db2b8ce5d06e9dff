package models

import "time"

// Badge rarities, lowest to highest.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Badge is a named achievement. Badges with MaxProgress > 0 accumulate
// progress toward an automatic unlock; others are unlocked directly by
// tracker events. UnlockedAt is set at most once.
type Badge struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Rarity      string     `json:"rarity" yaml:"rarity"`
	Category    string     `json:"category" yaml:"category"`
	Progress    int        `json:"progress,omitempty" yaml:"-"`
	MaxProgress int        `json:"maxProgress,omitempty" yaml:"max_progress"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty" yaml:"-"`
}

// Unlocked reports whether the badge has been earned.
func (b *Badge) Unlocked() bool {
	return b.UnlockedAt != nil
}
