package resource

import "time"

// EventType tags the variant of a StorageEvent.
type EventType string

const (
	EventSet    EventType = "set"
	EventDelete EventType = "delete"
	EventError  EventType = "error"
)

// StorageEvent is emitted to passive listeners after every completed set
// or delete and after any failed operation. Events are transient and
// fire-and-forget; they are never persisted.
type StorageEvent struct {
	Type      EventType `json:"type"`
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     []byte    `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Err       error     `json:"-"` // set on EventError only
}

// Listener observes storage events. Listeners are best-effort: they cannot
// abort operations, carry no ordering guarantee relative to extension
// handlers, and their errors (or panics) are logged, never propagated.
type Listener func(event StorageEvent) error
