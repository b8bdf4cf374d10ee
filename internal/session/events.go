package session

import "time"

// Event types emitted after successful mutations. The presentation layer
// subscribes to these and renders independently of the core.
const (
	EventBalanceChanged      = "balance_changed"
	EventCoinAcquired        = "coin_acquired"
	EventListingCreated      = "listing_created"
	EventListingRemoved      = "listing_removed"
	EventAchievementUnlocked = "achievement_unlocked"
)

type Event struct {
	Type    string    `json:"type"`
	UserID  string    `json:"user_id"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Sink receives post-mutation events. Implementations must not block.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }
