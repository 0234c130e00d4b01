package domain

import "time"

// Role enumerates the three account roles.
type Role string

const (
	RoleUser           Role = "user"
	RoleAdmin          Role = "admin"
	RoleAutomationTeam Role = "automation_team"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleAutomationTeam:
		return true
	}
	return false
}

// User is the domain model for an account; each account carries exactly one role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsAutomationTeam reports whether the user is on the automation team.
func (u *User) IsAutomationTeam() bool {
	return u != nil && u.Role == RoleAutomationTeam
}

// IsStaff reports whether the user has blanket ticket rights.
func (u *User) IsStaff() bool {
	return u.IsAdmin() || u.IsAutomationTeam()
}

// CanViewTicket answers whether the user may read the ticket. Staff see every
// ticket; regular users only the ones they created.
func (u *User) CanViewTicket(t *Ticket) bool {
	if u == nil || t == nil {
		return false
	}
	if u.IsStaff() {
		return true
	}
	return t.CreatedBy != nil && *t.CreatedBy == u.ID
}

// CanEditTicket answers whether the user may mutate the ticket. Regular users
// have no edit rights once a ticket exists.
func (u *User) CanEditTicket(t *Ticket) bool {
	if u == nil || t == nil {
		return false
	}
	return u.IsStaff()
}

// CanCommentInternal answers whether the user may author internal notes.
func (u *User) CanCommentInternal() bool {
	return u.IsStaff()
}

// AssignableRole reports whether a user with this role may hold ticket
// assignments.
func (u *User) AssignableRole() bool {
	return u.IsStaff()
}
