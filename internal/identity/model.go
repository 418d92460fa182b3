package identity

import "time"

// User represents a registered wallet owner.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Credentials carries a login request.
type Credentials struct {
	Email    string
	Password string
}
