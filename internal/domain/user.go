package domain

import "time"

// Role is the staff role carried by access tokens.
type Role string

const (
	RoleCSO     Role = "CSO"
	RoleManager Role = "MANAGER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCSO || r == RoleManager
}

// User is a staff account: customer success officers and their managers.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role Role
}

// IsManager reports whether the actor holds the MANAGER role.
func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}
