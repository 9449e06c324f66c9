package persistence

import "context"
import "time"

// UserRepository exposes account storage operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
}

// EntryRepository stores punch records keyed by user and calendar day.
//
// Creating a second active entry for the same user must fail with
// ErrDuplicate; the store carries a partial unique index for this, so the
// check-then-create race between concurrent sessions is closed here rather
// than in the aggregation layer.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	GetEntry(ctx context.Context, id string) (TimeEntry, error)
	UpdateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	ListActiveEntries(ctx context.Context, userID string) ([]TimeEntry, error)
	ListEntriesByDate(ctx context.Context, userID, date string) ([]TimeEntry, error)
	ListRecentEntries(ctx context.Context, userID string, limit int) ([]TimeEntry, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
