package progress

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"neuroquest/pkg/models"
)

//go:embed stages.yaml
var stagesYAML []byte

//go:embed badges.yaml
var badgesYAML []byte

// DefaultStages parses the embedded worm life-cycle table. The list is
// ordered by ascending unlock threshold; stage IDs must stay stable because
// clients persist the current stage index.
func DefaultStages() ([]models.EvolutionStage, error) {
	var stages []models.EvolutionStage
	if err := yaml.Unmarshal(stagesYAML, &stages); err != nil {
		return nil, fmt.Errorf("failed to parse evolution stages: %w", err)
	}
	return stages, nil
}

// DefaultBadges parses the embedded badge catalog. Badge IDs must stay
// stable because clients persist unlock state keyed by ID.
func DefaultBadges() ([]models.Badge, error) {
	var badges []models.Badge
	if err := yaml.Unmarshal(badgesYAML, &badges); err != nil {
		return nil, fmt.Errorf("failed to parse badge catalog: %w", err)
	}
	return badges, nil
}
