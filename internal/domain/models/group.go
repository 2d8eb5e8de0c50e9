package models

import (
	"time"
)

type Group struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GroupMember links a user to a group. Group grants on a page apply to
// every member of the group.
type GroupMember struct {
	GroupID string `json:"group_id" db:"group_id"`
	UserID  string `json:"user_id" db:"user_id"`
}
