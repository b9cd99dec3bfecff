// Package events defines the connection events produced by the decoy
// listener and the bus that fans them out to delivery sinks.
package events

import (
	"fmt"
	"time"
)

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Produced once per completed decoy connection
	EventStatusProbe  EventType = "status_probe"
	EventLoginAttempt EventType = "login_attempt"

	// System events
	EventHeartbeat EventType = "heartbeat"
	EventShutdown  EventType = "shutdown"
)

// Kind discriminates the two variants of ConnectionEvent.
type Kind int

const (
	KindStatusProbe Kind = iota + 1
	KindLoginAttempt
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindStatusProbe:
		return "status_probe"
	case KindLoginAttempt:
		return "login_attempt"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes Kind as a JSON string.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// EventType returns the bus event type for this kind.
func (k Kind) EventType() EventType {
	if k == KindLoginAttempt {
		return EventLoginAttempt
	}
	return EventStatusProbe
}

// ConnectionEvent is the sole output of one decoy connection.
// Username is only set for KindLoginAttempt.
type ConnectionEvent struct {
	Kind       Kind      `json:"kind"`
	RemoteIP   string    `json:"remote_ip"`
	Username   string    `json:"username,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// NewStatusProbe creates a StatusProbe event.
func NewStatusProbe(remoteIP string) *ConnectionEvent {
	return &ConnectionEvent{
		Kind:       KindStatusProbe,
		RemoteIP:   remoteIP,
		ObservedAt: time.Now().UTC(),
	}
}

// NewLoginAttempt creates a LoginAttempt event.
func NewLoginAttempt(remoteIP, username string) *ConnectionEvent {
	return &ConnectionEvent{
		Kind:       KindLoginAttempt,
		RemoteIP:   remoteIP,
		Username:   username,
		ObservedAt: time.Now().UTC(),
	}
}

// String returns the display line handed to the log and the webhook.
func (e ConnectionEvent) String() string {
	switch e.Kind {
	case KindLoginAttempt:
		return fmt.Sprintf("JOIN `%s`, username: `%s`", e.RemoteIP, e.Username)
	default:
		return fmt.Sprintf("STATUS `%s`", e.RemoteIP)
	}
}

// Event represents a single event in the system.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// FromConnection wraps a connection event for the bus.
func FromConnection(ce *ConnectionEvent) Event {
	return Event{
		Type:    ce.Kind.EventType(),
		Source:  "listener:" + ce.RemoteIP,
		Payload: *ce,
	}
}
