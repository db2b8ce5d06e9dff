// Package celebrate decouples "something worth celebrating happened" from the
// layers that show it. The progress engine publishes events at the point of
// mutation; any number of subscribers (the websocket hub, tests) receive them.
package celebrate

import (
	"sync"
	"time"
)

// Kind identifies the celebration event type.
type Kind string

const (
	KindLevelUp         Kind = "level_up"
	KindEvolution       Kind = "evolution"
	KindBadgeUnlock     Kind = "badge_unlock"
	KindStreakMilestone Kind = "streak_milestone"
	KindQuestComplete   Kind = "quest_complete"
)

// Event carries everything a subscriber needs to render a celebration.
// Only the fields relevant to the Kind are populated.
type Event struct {
	Kind      Kind      `json:"kind"`
	LearnerID int64     `json:"learner_id"`
	Level     int       `json:"level,omitempty"`
	Stage     int       `json:"stage,omitempty"`
	StageName string    `json:"stage_name,omitempty"`
	BadgeID   string    `json:"badge_id,omitempty"`
	BadgeName string    `json:"badge_name,omitempty"`
	Milestone int       `json:"milestone,omitempty"`
	QuestID   string    `json:"quest_id,omitempty"`
	QuestName string    `json:"quest_name,omitempty"`
	XPReward  int       `json:"xp_reward,omitempty"`
	At        time.Time `json:"at"`
}

// Dispatcher fans events out to all registered subscribers. Quest-complete
// events are delivered after a short delay so they land behind the progress
// update that caused them; everything else dispatches synchronously.
type Dispatcher struct {
	mu         sync.Mutex
	subs       map[int]func(Event)
	nextID     int
	questDelay time.Duration
}

// DefaultQuestDelay spaces quest-complete delivery behind the triggering
// progress update.
const DefaultQuestDelay = 250 * time.Millisecond

// New returns a dispatcher with the given quest-complete delay. Tests pass 0
// for synchronous delivery.
func New(questDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		subs:       make(map[int]func(Event)),
		questDelay: questDelay,
	}
}

// Subscribe registers fn for every future event and returns an unsubscribe
// function. Subscribers must not block.
func (d *Dispatcher) Subscribe(fn func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.subs[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Dispatch delivers ev to all current subscribers.
func (d *Dispatcher) Dispatch(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	if ev.Kind == KindQuestComplete && d.questDelay > 0 {
		time.AfterFunc(d.questDelay, func() { d.deliver(ev) })
		return
	}
	d.deliver(ev)
}

func (d *Dispatcher) deliver(ev Event) {
	d.mu.Lock()
	fns := make([]func(Event), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
