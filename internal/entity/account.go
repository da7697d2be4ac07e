package entity

import "time"

// UserAccount is the server-side user row. The embedded User is the snapshot
// handed out to clients; the credential fields never leave the service.
type UserAccount struct {
	User
	PasswordHash string
	IsBlocked    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
