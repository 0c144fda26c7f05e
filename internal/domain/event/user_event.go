package event

import "time"

// Type names the kind of user lifecycle event.
type Type string

const (
	UserCreated Type = "user.created"
	UserDeleted Type = "user.deleted"
)

// UserEvent is the logical payload published after a committed create or
// delete. It is encoded as JSON on the wire.
type UserEvent struct {
	Type       Type      `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func Created(id int64, email, name string) UserEvent {
	return UserEvent{Type: UserCreated, UserID: id, Email: email, Name: name, OccurredAt: time.Now().UTC()}
}

func Deleted(id int64, email, name string) UserEvent {
	return UserEvent{Type: UserDeleted, UserID: id, Email: email, Name: name, OccurredAt: time.Now().UTC()}
}
