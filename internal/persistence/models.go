package persistence

import "time"

// User represents an employee account in the time tracking domain.
type User struct {
	ID           string
	Username     string
	DisplayName  string
	Initials     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TimeEntry represents one punch session stored in persistence.
//
// Active mirrors the absence of ClockOut; the pairing is maintained by the
// application layer and double-checked by the database schema.
type TimeEntry struct {
	ID          string
	UserID      string
	ClockIn     time.Time
	ClockOut    *time.Time
	Active      bool
	Date        string
	Category    *string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
