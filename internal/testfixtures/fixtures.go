package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/persistence"
)

var (
	userCounter  uint64
	entryCounter uint64
)

var referenceTime = time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday so weekly aggregation tests can anchor on it directly.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Username     string
	DisplayName  string
	Initials     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Username:     fmt.Sprintf("employee%03d", idx),
		DisplayName:  fmt.Sprintf("Employee %03d", idx),
		Initials:     "E" + fmt.Sprintf("%d", idx%10),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) {
		f.Username = username
	}
}

// WithUserDisplayName overrides the generated display name and derived initials.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
		f.Initials = application.DeriveInitials(name)
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Username:    f.Username,
		DisplayName: f.DisplayName,
		Initials:    f.Initials,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Username:     f.Username,
		DisplayName:  f.DisplayName,
		Initials:     f.Initials,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Entry fixtures -----------------------------

// EntryFixture represents a deterministic time entry record.
type EntryFixture struct {
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

// EntryOption configures the generated entry fixture.
type EntryOption func(*EntryFixture)

// NewEntryFixture returns a deterministic open entry fixture with optional
// overrides. Entries are spaced one day apart so daily rollup tests get
// distinct dates by default.
func NewEntryFixture(opts ...EntryOption) EntryFixture {
	idx := atomic.AddUint64(&entryCounter, 1)
	clockIn := referenceTime.AddDate(0, 0, int(idx-1))
	fixture := EntryFixture{
		ID:        fmt.Sprintf("entry-%03d", idx),
		UserID:    "user-001",
		ClockIn:   clockIn,
		Active:    true,
		Date:      clockIn.UTC().Format("2006-01-02"),
		CreatedAt: clockIn,
		UpdatedAt: clockIn,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEntryID overrides the generated entry ID.
func WithEntryID(id string) EntryOption {
	return func(f *EntryFixture) {
		f.ID = id
	}
}

// WithEntryUser assigns the entry to a specific user.
func WithEntryUser(userID string) EntryOption {
	return func(f *EntryFixture) {
		f.UserID = userID
	}
}

// WithEntryClockIn sets the clock-in instant and realigns the derived date.
func WithEntryClockIn(clockIn time.Time) EntryOption {
	return func(f *EntryFixture) {
		f.ClockIn = clockIn
		f.Date = clockIn.UTC().Format("2006-01-02")
		f.CreatedAt = clockIn
		f.UpdatedAt = clockIn
	}
}

// WithEntryClosed closes the entry after the given working duration.
func WithEntryClosed(worked time.Duration) EntryOption {
	return func(f *EntryFixture) {
		clockOut := f.ClockIn.Add(worked)
		f.ClockOut = &clockOut
		f.Active = false
		f.UpdatedAt = clockOut
	}
}

// WithEntryCategory sets the category label.
func WithEntryCategory(category string) EntryOption {
	return func(f *EntryFixture) {
		f.Category = &category
	}
}

// WithEntryDescription sets the description label.
func WithEntryDescription(description string) EntryOption {
	return func(f *EntryFixture) {
		f.Description = &description
	}
}

// Application returns the fixture as an application.TimeEntry value.
func (f EntryFixture) Application() application.TimeEntry {
	return application.TimeEntry{
		ID:          f.ID,
		UserID:      f.UserID,
		ClockIn:     f.ClockIn,
		ClockOut:    f.ClockOut,
		Active:      f.Active,
		Date:        f.Date,
		Category:    f.Category,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.TimeEntry value.
func (f EntryFixture) Persistence() persistence.TimeEntry {
	return persistence.TimeEntry{
		ID:          f.ID,
		UserID:      f.UserID,
		ClockIn:     f.ClockIn,
		ClockOut:    f.ClockOut,
		Active:      f.Active,
		Date:        f.Date,
		Category:    f.Category,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
