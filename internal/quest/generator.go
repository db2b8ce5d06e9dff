// Package quest produces the randomized daily objectives. Generation is
// deterministic under an injected rand source and clock so it can be tested.
package quest

import (
	_ "embed"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"neuroquest/pkg/models"
)

//go:embed templates.yaml
var templatesYAML []byte

// QuestsPerDay is how many quests a refresh produces.
const QuestsPerDay = 3

// DefaultTemplates parses the embedded template catalog.
func DefaultTemplates() ([]models.QuestTemplate, error) {
	var templates []models.QuestTemplate
	if err := yaml.Unmarshal(templatesYAML, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse quest templates: %w", err)
	}
	return templates, nil
}

// Generator picks daily quests from a fixed template list.
type Generator struct {
	templates []models.QuestTemplate
	rng       *rand.Rand
	now       func() time.Time
}

// NewGenerator builds a generator around the given templates, rand source and
// clock. now may be nil, in which case time.Now is used.
func NewGenerator(templates []models.QuestTemplate, rng *rand.Rand, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{templates: templates, rng: rng, now: now}
}

// Generate returns a fresh quest set: n distinct templates chosen without
// replacement, one candidate target each, expiring at the next local midnight.
func (g *Generator) Generate(n int) []models.Quest {
	if n > len(g.templates) {
		n = len(g.templates)
	}

	perm := g.rng.Perm(len(g.templates))
	expires := nextMidnight(g.now())

	quests := make([]models.Quest, 0, n)
	for _, idx := range perm[:n] {
		tpl := g.templates[idx]
		target := tpl.CandidateTargets[g.rng.Intn(len(tpl.CandidateTargets))]
		quests = append(quests, models.Quest{
			ID:          uuid.NewString(),
			Type:        tpl.Type,
			Title:       tpl.Title,
			Description: fmt.Sprintf(tpl.Description, target),
			Target:      target,
			XPReward:    target * tpl.XPPerUnit,
			ExpiresAt:   expires,
		})
	}
	return quests
}

// Expired reports whether the quest set needs a refresh: empty, or any quest
// past its expiry.
func (g *Generator) Expired(quests []models.Quest) bool {
	if len(quests) == 0 {
		return true
	}
	now := g.now()
	for _, q := range quests {
		if !q.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

// KnownType reports whether t is in the template vocabulary.
func (g *Generator) KnownType(t string) bool {
	for _, tpl := range g.templates {
		if tpl.Type == t {
			return true
		}
	}
	return false
}

// nextMidnight returns the first midnight strictly after t, in t's location.
func nextMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
