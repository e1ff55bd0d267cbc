package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/oklog/ulid/v2"
)

// Kind names a broadcast event type.
type Kind string

const (
	KindJoin     Kind = "join"
	KindUserList Kind = "user_list"
	KindLeave    Kind = "leave"
	KindMessage  Kind = "message"
)

// Event is the unit of broadcast between tabs. Exactly one payload field is
// set, according to Kind.
type Event struct {
	Kind    Kind          `json:"type"`
	Origin  string        `json:"origin"`
	EventID string        `json:"eventId,omitempty"`
	SentAt  int64         `json:"sentAt,omitempty"`
	User    *chat.User    `json:"user,omitempty"`
	Users   []chat.User   `json:"users,omitempty"`
	UserID  string        `json:"userId,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
}

// Join announces u to the room.
func Join(u chat.User) Event {
	return Event{Kind: KindJoin, User: &u}
}

// UserList carries every user the publisher knows.
func UserList(users []chat.User) Event {
	cp := make([]chat.User, len(users))
	copy(cp, users)
	return Event{Kind: KindUserList, Users: cp}
}

// Leave announces that the user with the given ID left.
func Leave(userID string) Event {
	return Event{Kind: KindLeave, UserID: userID}
}

// MessageEvent carries a committed message.
func MessageEvent(m chat.Message) Event {
	return Event{Kind: KindMessage, Message: &m}
}

// Validate checks that the payload matching Kind is present.
func (e Event) Validate() error {
	switch e.Kind {
	case KindJoin:
		if e.User == nil || e.User.ID == "" {
			return fmt.Errorf("join event without user")
		}
	case KindUserList:
		// An empty list is valid and merges nothing.
	case KindLeave:
		if e.UserID == "" {
			return fmt.Errorf("leave event without user id")
		}
	case KindMessage:
		if e.Message == nil || e.Message.ID == "" {
			return fmt.Errorf("message event without message")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Kind)
	}
	return nil
}

// stamp fills in the envelope fields for an event leaving origin.
func stamp(e Event, origin string) Event {
	e.Origin = origin
	e.EventID = ulid.Make().String()
	e.SentAt = time.Now().UnixMilli()
	return e
}

// Encode serializes e for transports that carry bytes.
func Encode(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Decode parses and validates a serialized event.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
