package downloader

import "github.com/fetchd/fetchd/internal/data"

// Event represents a state change or progress update from a downloader.
//
// Type indicates what kind of event occurred. Terminal events (Complete,
// Failed, Cancelled) are the last event for their transfer; nothing follows
// until a new Start. The Snapshot carries the full observation, including
// the classified error kind on failure.
type Event struct {
	TransferID string
	Type       EventType
	Snapshot   data.Snapshot
}

// EventType defines the set of events that downloaders may emit.
type EventType string

const (
	EventStart     EventType = "Start"
	EventProgress  EventType = "Progress"
	EventComplete  EventType = "Complete"
	EventFailed    EventType = "Failed"
	EventCancelled EventType = "Cancelled"
)
