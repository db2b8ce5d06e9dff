// Package scheduler runs the recurring background jobs: the post-midnight
// quest sweep and a periodic leaderboard rebroadcast.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// QuestRefresher regenerates expired daily quest sets.
type QuestRefresher interface {
	RefreshExpiredQuests() (int, error)
}

// Broadcaster pushes the current leaderboard to connected clients.
type Broadcaster interface {
	BroadcastLeaderboard()
}

// Scheduler wraps gocron with the jobs this server needs.
type Scheduler struct {
	scheduler   *gocron.Scheduler
	refresher   QuestRefresher
	broadcaster Broadcaster
	log         zerolog.Logger
}

// New creates a scheduler in the local timezone; quest expiry is a local
// midnight boundary.
func New(refresher QuestRefresher, broadcaster Broadcaster, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.Local),
		refresher:   refresher,
		broadcaster: broadcaster,
		log:         log,
	}
}

// Start registers the jobs and begins running them asynchronously.
func (s *Scheduler) Start() {
	// Shortly after midnight so clocks that lag a little still see the new day.
	s.scheduler.Every(1).Day().At("00:05").Do(s.sweepQuests)
	s.scheduler.Every(5).Minutes().Do(s.broadcaster.BroadcastLeaderboard)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sweepQuests() {
	n, err := s.refresher.RefreshExpiredQuests()
	if err != nil {
		s.log.Error().Err(err).Msg("quest sweep failed")
		return
	}
	s.log.Info().Int("refreshed", n).Msg("daily quest sweep complete")
}
