package model

import "time"

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	UserID    string
	Username  string
	Role      Role
	ExpiresAt time.Time
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
