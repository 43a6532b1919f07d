package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the portal role of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleProvider Role = "provider"
	RoleTenant   Role = "tenant"
)

var allRoles = []Role{RoleAdmin, RoleManager, RoleProvider, RoleTenant}

// ParseRole converts a claim or column value into a Role.
func ParseRole(value string) (Role, error) {
	for _, r := range allRoles {
		if string(r) == value {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", value)
}

// Roles returns every known role.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// IsStaff reports whether the role manages a team (manager or admin).
func (r Role) IsStaff() bool {
	return r == RoleManager || r == RoleAdmin
}

// Assignable reports whether the role can be bound to an intervention.
// Admins act through their team, never through an assignment.
func (r Role) Assignable() bool {
	return r == RoleManager || r == RoleProvider || r == RoleTenant
}

func (r Role) String() string { return string(r) }

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID     uuid.UUID
	Role   Role
	TeamID uuid.UUID
}

// Valid reports whether the actor carries an identity, a known role and a team.
func (a Actor) Valid() bool {
	_, err := ParseRole(string(a.Role))
	return a.ID != uuid.Nil && a.TeamID != uuid.Nil && err == nil
}
