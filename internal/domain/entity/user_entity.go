package entity

import (
	"time"
)

// User is the aggregate root for the user registry.
//
// ID and CreatedAt are assigned by the store on first persist and are never
// changed afterwards; only Name, Email and Age are mutable.
type User struct {
	ID        int64
	Name      string
	Email     string
	Age       int
	CreatedAt time.Time
}

// Clone returns a copy that shares no state with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
