package application

import "time"

// WeeklyTargetHours is the fixed benchmark used for progress and
// remaining-hours calculations. It is not configurable at runtime.
const WeeklyTargetHours = 40.0

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// User represents an employee account exposed by the application services.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Initials    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// TimeEntry represents one punch session. Active is true exactly when
// ClockOut is nil; the services never construct an entry that breaks the
// pairing.
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

// TimeEntryWithDuration annotates an entry with its computed duration.
// Duration is nil while the session is open; elapsed time of an open session
// is a presentation concern and never part of authoritative totals.
type TimeEntryWithDuration struct {
	TimeEntry
	Duration *time.Duration
}

// DailyStats aggregates one user-day. Derived fresh on every request.
type DailyStats struct {
	Date       string
	TotalHours float64
	Entries    []TimeEntryWithDuration
	IsToday    bool
}

// WeeklyStats aggregates a Monday-start 7-day window against the weekly target.
type WeeklyStats struct {
	TotalHours         float64
	RemainingHours     float64
	ProgressPercentage float64
	DailyStats         []DailyStats
}

// EntryInput captures the optional labels callers may attach to a punch.
type EntryInput struct {
	Category    *string
	Description *string
}

// PunchInParams wraps the data required to open a new punch session.
type PunchInParams struct {
	Principal Principal
	Input     EntryInput
}

// PunchOutParams wraps the data required to close an active punch session.
type PunchOutParams struct {
	Principal Principal
	EntryID   string
	Input     EntryInput
}

// UpdateEntryParams wraps a label-only update to an active punch session.
type UpdateEntryParams struct {
	Principal Principal
	EntryID   string
	Input     EntryInput
}

// RegisterUserParams wraps the data required to create an account.
type RegisterUserParams struct {
	Username    string
	Password    string
	DisplayName string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
