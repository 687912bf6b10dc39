package domain

import "time"

// User is the stored credential record. Username doubles as the delivery
// address for password-reset mail.
type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2id PHC encoded
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated identity derived from a verified User.
// It is immutable for the duration of a request and never persisted.
type Principal struct {
	ID       string
	Username string
	Roles    []Role
}

// Principal derives the request-scoped identity from a user record.
func (u User) Principal() Principal {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return Principal{
		ID:       u.ID,
		Username: u.Username,
		Roles:    roles,
	}
}
