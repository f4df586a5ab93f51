package domain

import "time"

// Role enumerates the workflow roles.
type Role string

const (
	RoleRequester  Role = "REQUESTER"
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ADMIN"
)

// IsValid reports whether the value is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleRequester, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// User is a directory entry: requesters submit tickets, technicians
// resolve them, admins triage and assign.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
