package history

import (
	"context"
	"time"
)

// EventType defines the kind of recorded change.
type EventType string

const (
	EventRecipeCreated EventType = "recipe_created"
	EventEndTimeSet    EventType = "end_time_set"
)

// Event is one change to the application state, exported to external
// systems for auditing. Subject is the recipe name or the new end time;
// Detail carries the recipe anchor or the number of scheduled steps.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Subject    string    `json:"subject"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for history events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Table is the default table or index name used by the sinks.
const Table = "recipebook_history"

// Pruner is implemented by sinks that can delete events older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}
