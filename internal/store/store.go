// Package store persists learner accounts and progress state. Progress is
// saved as two JSON namespaces per learner, matching the layout clients
// already persist locally, so a server-side snapshot and a client-side one
// stay interchangeable.
package store

import (
	"errors"

	"neuroquest/pkg/models"
)

// Persisted namespace keys.
const (
	NamespaceCore       = "wormquest-storage"
	NamespaceEngagement = "neuroquest-engagement-storage"
)

// ErrNotFound is returned for lookups of learners that do not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary consumed by the progress service.
// LoadState returns (nil, nil) when the learner has no saved state yet.
type Store interface {
	CreateLearner(email, displayName, passwordHash string) (*models.Learner, error)
	LearnerByEmail(email string) (*models.Learner, error)
	LearnerByID(id int64) (*models.Learner, error)
	LearnerIDs() ([]int64, error)

	LoadState(learnerID int64) (*models.PersistedState, error)
	SaveState(learnerID int64, state *models.PersistedState) error

	Leaderboard(limit int) ([]models.LeaderboardEntry, error)

	Close() error
}
