package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/example/timetrack/internal/timeclock"
)

// DefaultRecentEntryLimit bounds recent-entry listings when the caller does
// not ask for a specific count.
const DefaultRecentEntryLimit = 10

// maxLabelLength bounds category and description labels, counted in runes.
const maxLabelLength = 200

// EntryRepository captures the persistence interactions needed by the timesheet service.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	GetEntry(ctx context.Context, id string) (TimeEntry, error)
	UpdateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	ListActiveEntries(ctx context.Context, userID string) ([]TimeEntry, error)
	ListEntriesByDate(ctx context.Context, userID, date string) ([]TimeEntry, error)
	ListRecentEntries(ctx context.Context, userID string, limit int) ([]TimeEntry, error)
}

// TimesheetService orchestrates punch sessions and derives daily and weekly
// rollups from them. All totals come from closed entries only.
type TimesheetService struct {
	entries     EntryRepository
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewTimesheetService wires dependencies for timesheet operations.
func NewTimesheetService(entries EntryRepository, idGenerator func() string, now func() time.Time, location *time.Location) *TimesheetService {
	return NewTimesheetServiceWithLogger(entries, idGenerator, now, location, nil)
}

// NewTimesheetServiceWithLogger constructs a TimesheetService with a specified logger.
func NewTimesheetServiceWithLogger(entries EntryRepository, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *TimesheetService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &TimesheetService{
		entries:     entries,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *TimesheetService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimesheetService", operation, attrs...)
}

// PunchIn opens a new active entry for the principal. At most one entry may
// be active per user; a second punch-in is rejected without touching the
// existing entry.
func (s *TimesheetService) PunchIn(ctx context.Context, params PunchInParams) (entry TimeEntry, err error) {
	if s == nil {
		err = fmt.Errorf("TimesheetService is nil")
		return
	}
	if s.entries == nil {
		err = fmt.Errorf("entry repository not configured")
		return
	}

	userID := params.Principal.UserID
	logger := s.loggerWith(ctx, "PunchIn", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "punch-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("entry_id", entry.ID, "date", entry.Date).InfoContext(ctx, "punched in")
	}()

	if userID == "" {
		err = ErrForbidden
		return
	}

	input, vErr := normalizeEntryInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var active []TimeEntry
	active, err = s.entries.ListActiveEntries(ctx, userID)
	if err != nil {
		return
	}
	if len(active) > 1 {
		err = fmt.Errorf("%w: user %s has %d active entries", ErrDataIntegrity, userID, len(active))
		return
	}
	if len(active) == 1 {
		err = ErrAlreadyPunchedIn
		return
	}

	now := s.now()
	candidate := TimeEntry{
		ID:          s.idGenerator(),
		UserID:      userID,
		ClockIn:     now,
		Active:      true,
		Date:        timeclock.LocalDate(now, s.location),
		Category:    input.Category,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	entry, err = s.entries.CreateEntry(ctx, candidate)
	if errors.Is(err, ErrAlreadyExists) {
		// Lost the race against a concurrent punch-in for the same user.
		err = ErrAlreadyPunchedIn
	}
	return
}

// PunchOut closes the identified active entry at the current instant. Closing
// is terminal; a closed entry is rejected with ErrAlreadyClosed.
func (s *TimesheetService) PunchOut(ctx context.Context, params PunchOutParams) (entry TimeEntryWithDuration, err error) {
	if s == nil {
		err = fmt.Errorf("TimesheetService is nil")
		return
	}
	if s.entries == nil {
		err = fmt.Errorf("entry repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "PunchOut", "user_id", params.Principal.UserID, "entry_id", params.EntryID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "punch-out failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("date", entry.Date).InfoContext(ctx, "punched out")
	}()

	input, vErr := normalizeEntryInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing TimeEntry
	existing, err = s.ownedEntry(ctx, params.Principal, params.EntryID)
	if err != nil {
		return
	}
	if !existing.Active || existing.ClockOut != nil {
		err = ErrAlreadyClosed
		return
	}

	now := s.now()
	if now.Before(existing.ClockIn) {
		err = fmt.Errorf("%w: clock-out %s precedes clock-in %s for entry %s",
			ErrDataIntegrity, now.Format(time.RFC3339), existing.ClockIn.Format(time.RFC3339), existing.ID)
		return
	}

	updated := existing
	updated.ClockOut = &now
	updated.Active = false
	updated.UpdatedAt = now
	if input.Category != nil {
		updated.Category = input.Category
	}
	if input.Description != nil {
		updated.Description = input.Description
	}

	var persisted TimeEntry
	persisted, err = s.entries.UpdateEntry(ctx, updated)
	if err != nil {
		return
	}

	entry, err = s.withDuration(persisted)
	return
}

// UpdateActiveEntry replaces the labels of an active entry. Closed entries
// are immutable.
func (s *TimesheetService) UpdateActiveEntry(ctx context.Context, params UpdateEntryParams) (entry TimeEntry, err error) {
	if s == nil {
		err = fmt.Errorf("TimesheetService is nil")
		return
	}
	if s.entries == nil {
		err = fmt.Errorf("entry repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateActiveEntry", "user_id", params.Principal.UserID, "entry_id", params.EntryID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "entry update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "entry updated")
	}()

	input, vErr := normalizeEntryInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing TimeEntry
	existing, err = s.ownedEntry(ctx, params.Principal, params.EntryID)
	if err != nil {
		return
	}
	if !existing.Active || existing.ClockOut != nil {
		err = ErrAlreadyClosed
		return
	}

	updated := existing
	updated.Category = input.Category
	updated.Description = input.Description
	updated.UpdatedAt = s.now()

	entry, err = s.entries.UpdateEntry(ctx, updated)
	return
}

// ActiveEntry returns the principal's active entry, or ErrNotFound when no
// session is open.
func (s *TimesheetService) ActiveEntry(ctx context.Context, principal Principal) (TimeEntry, error) {
	if s == nil {
		return TimeEntry{}, fmt.Errorf("TimesheetService is nil")
	}
	if s.entries == nil {
		return TimeEntry{}, fmt.Errorf("entry repository not configured")
	}

	active, err := s.entries.ListActiveEntries(ctx, principal.UserID)
	if err != nil {
		return TimeEntry{}, err
	}
	if len(active) > 1 {
		err = fmt.Errorf("%w: user %s has %d active entries", ErrDataIntegrity, principal.UserID, len(active))
		s.loggerWith(ctx, "ActiveEntry", "user_id", principal.UserID).
			ErrorContext(ctx, "active entry lookup failed", "error", err, "error_kind", ErrorKind(err))
		return TimeEntry{}, err
	}
	if len(active) == 0 {
		return TimeEntry{}, ErrNotFound
	}
	return active[0], nil
}

// RecentEntries returns the principal's newest entries by clock-in, active
// ones included. limit <= 0 applies the default of 10.
func (s *TimesheetService) RecentEntries(ctx context.Context, principal Principal, limit int) ([]TimeEntryWithDuration, error) {
	if s == nil {
		return nil, fmt.Errorf("TimesheetService is nil")
	}
	if s.entries == nil {
		return nil, fmt.Errorf("entry repository not configured")
	}

	if limit <= 0 {
		limit = DefaultRecentEntryLimit
	}

	entries, err := s.entries.ListRecentEntries(ctx, principal.UserID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]TimeEntryWithDuration, 0, len(entries))
	for _, entry := range entries {
		annotated, err := s.withDuration(entry)
		if err != nil {
			s.loggerWith(ctx, "RecentEntries", "user_id", principal.UserID, "entry_id", entry.ID).
				ErrorContext(ctx, "recent entry listing failed", "error", err, "error_kind", ErrorKind(err))
			return nil, err
		}
		out = append(out, annotated)
	}
	return out, nil
}

// DailyStats aggregates the principal's closed entries for one local date.
// date must be formatted as YYYY-MM-DD; an empty date means today.
func (s *TimesheetService) DailyStats(ctx context.Context, principal Principal, date string) (DailyStats, error) {
	if s == nil {
		return DailyStats{}, fmt.Errorf("TimesheetService is nil")
	}
	if s.entries == nil {
		return DailyStats{}, fmt.Errorf("entry repository not configured")
	}

	today := timeclock.LocalDate(s.now(), s.location)
	if strings.TrimSpace(date) == "" {
		date = today
	} else if _, err := timeclock.ParseDate(date); err != nil {
		vErr := &ValidationError{}
		vErr.add("date", "date must be formatted as YYYY-MM-DD")
		return DailyStats{}, vErr
	}

	stats, err := s.dailyStats(ctx, principal.UserID, date, today)
	if err != nil {
		s.loggerWith(ctx, "DailyStats", "user_id", principal.UserID, "date", date).
			ErrorContext(ctx, "daily stats failed", "error", err, "error_kind", ErrorKind(err))
		return DailyStats{}, err
	}
	return stats, nil
}

// WeeklyStats aggregates a Monday-start week containing startDate against
// the 40 hour target. The seven days are aggregated concurrently.
func (s *TimesheetService) WeeklyStats(ctx context.Context, principal Principal, startDate string) (WeeklyStats, error) {
	if s == nil {
		return WeeklyStats{}, fmt.Errorf("TimesheetService is nil")
	}
	if s.entries == nil {
		return WeeklyStats{}, fmt.Errorf("entry repository not configured")
	}

	now := s.now()
	today := timeclock.LocalDate(now, s.location)

	reference := now.In(s.location)
	if trimmed := strings.TrimSpace(startDate); trimmed != "" {
		parsed, err := timeclock.ParseDate(trimmed)
		if err != nil {
			vErr := &ValidationError{}
			vErr.add("start_date", "start date must be formatted as YYYY-MM-DD")
			return WeeklyStats{}, vErr
		}
		reference = parsed
	}

	dates := timeclock.WeekDates(timeclock.WeekStart(reference))

	days := make([]DailyStats, len(dates))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, date := range dates {
		i, date := i, date
		group.Go(func() error {
			stats, err := s.dailyStats(groupCtx, principal.UserID, date, today)
			if err != nil {
				return err
			}
			days[i] = stats
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.loggerWith(ctx, "WeeklyStats", "user_id", principal.UserID, "week_start", dates[0]).
			ErrorContext(ctx, "weekly stats failed", "error", err, "error_kind", ErrorKind(err))
		return WeeklyStats{}, err
	}

	var total float64
	for _, day := range days {
		total += day.TotalHours
	}

	progress := total / WeeklyTargetHours * 100
	if progress > 100 {
		progress = 100
	}
	remaining := WeeklyTargetHours - total
	if remaining < 0 {
		remaining = 0
	}

	return WeeklyStats{
		TotalHours:         total,
		RemainingHours:     remaining,
		ProgressPercentage: progress,
		DailyStats:         days,
	}, nil
}

func (s *TimesheetService) dailyStats(ctx context.Context, userID, date, today string) (DailyStats, error) {
	entries, err := s.entries.ListEntriesByDate(ctx, userID, date)
	if err != nil {
		return DailyStats{}, err
	}

	annotated := make([]TimeEntryWithDuration, 0, len(entries))
	var total time.Duration
	for _, entry := range entries {
		withDuration, err := s.withDuration(entry)
		if err != nil {
			return DailyStats{}, err
		}
		annotated = append(annotated, withDuration)
		if withDuration.Duration != nil {
			total += *withDuration.Duration
		}
	}

	sort.Slice(annotated, func(i, j int) bool {
		if annotated[i].ClockIn.Equal(annotated[j].ClockIn) {
			return annotated[i].ID < annotated[j].ID
		}
		return annotated[i].ClockIn.Before(annotated[j].ClockIn)
	})

	return DailyStats{
		Date:       date,
		TotalHours: total.Hours(),
		Entries:    annotated,
		IsToday:    date == today,
	}, nil
}

func (s *TimesheetService) ownedEntry(ctx context.Context, principal Principal, entryID string) (TimeEntry, error) {
	if strings.TrimSpace(entryID) == "" {
		return TimeEntry{}, ErrNotFound
	}

	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return TimeEntry{}, err
	}
	if entry.UserID != principal.UserID {
		return TimeEntry{}, ErrForbidden
	}
	return entry, nil
}

func (s *TimesheetService) withDuration(entry TimeEntry) (TimeEntryWithDuration, error) {
	duration, err := timeclock.Duration(entry.ClockIn, entry.ClockOut)
	if err != nil {
		if errors.Is(err, timeclock.ErrNegativeDuration) {
			return TimeEntryWithDuration{}, fmt.Errorf("%w: entry %s has negative duration", ErrDataIntegrity, entry.ID)
		}
		return TimeEntryWithDuration{}, err
	}
	return TimeEntryWithDuration{TimeEntry: entry, Duration: duration}, nil
}

func normalizeEntryInput(input EntryInput) (EntryInput, *ValidationError) {
	vErr := &ValidationError{}
	out := EntryInput{}

	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if utf8.RuneCountInString(category) > maxLabelLength {
			vErr.add("category", "category must be at most 200 characters")
		} else if category != "" {
			out.Category = &category
		}
	}

	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if utf8.RuneCountInString(description) > maxLabelLength {
			vErr.add("description", "description must be at most 200 characters")
		} else if description != "" {
			out.Description = &description
		}
	}

	return out, vErr
}
