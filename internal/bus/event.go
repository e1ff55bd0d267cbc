package bus

import "time"

// Event is a local event published on the bus.
// Source identifies the publisher; subscribers may use it to skip their own events.
type Event struct {
	Kind      string
	Source    string
	Timestamp time.Time
	Payload   any
}
