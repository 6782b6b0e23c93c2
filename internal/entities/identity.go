package entities

import "smartparking/internal/db"

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID string
	Email  string
	Role   db.Role
}

func (i Identity) IsAdmin() bool { return i.Role == db.RoleAdmin }
