package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Role is the effective access level a principal holds on a page.
// RoleNone is an explicit denial - distinct from "no grant recorded".
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWriter Role = "writer"
	RoleReader Role = "reader"
	RoleNone   Role = "none"
)

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleWriter, RoleReader, RoleNone:
		return true
	}
	return false
}

// rank orders positive roles for highest-role comparison.
// RoleNone and unknown values rank below every positive role; they are
// never produced by HighestRole.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleWriter:
		return 2
	case RoleReader:
		return 1
	}
	return 0
}

// HighestRole returns the most permissive positive role in roles.
// RoleNone entries are ignored; ok is false when no positive role is present.
func HighestRole(roles []Role) (Role, bool) {
	var best Role
	for _, r := range roles {
		if r.rank() > best.rank() {
			best = r
		}
	}
	return best, best.rank() > 0
}

// ContainsDenial reports whether roles carries an explicit RoleNone.
func ContainsDenial(roles []Role) bool {
	for _, r := range roles {
		if r == RoleNone {
			return true
		}
	}
	return false
}

// PagePermission is one grant row: a role for exactly one principal
// (a user or a group) on one page. A page may carry several rows and a
// user may match several of them (directly and via group memberships).
type PagePermission struct {
	ID        string     `json:"id" db:"id"`
	PageID    string     `json:"page_id" db:"page_id"`
	UserID    *string    `json:"user_id,omitempty" db:"user_id"`
	GroupID   *string    `json:"group_id,omitempty" db:"group_id"`
	Role      Role       `json:"role" db:"role"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Validate checks the grant row: page, a valid role, and exactly one principal.
func (p *PagePermission) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PageID, validation.Required),
		validation.Field(&p.Role, validation.Required, validation.By(validateRole)),
		validation.Field(&p.UserID, validation.By(func(interface{}) error {
			return validatePrincipal(p.UserID, p.GroupID)
		})),
	)
}

func validateRole(value interface{}) error {
	role, ok := value.(Role)
	if !ok {
		return fmt.Errorf("role must be a string")
	}
	if !role.IsValid() {
		return fmt.Errorf("role must be one of admin, writer, reader, none")
	}
	return nil
}

func validatePrincipal(userID, groupID *string) error {
	if (userID == nil) == (groupID == nil) {
		return fmt.Errorf("exactly one of user_id or group_id must be set")
	}
	return nil
}
