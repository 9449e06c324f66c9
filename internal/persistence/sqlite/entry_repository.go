package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/timetrack/internal/persistence"
)

// EntryRepository implements persistence.EntryRepository using SQLite.
type EntryRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEntryRepository creates a new SQLite entry repository.
func NewEntryRepository(pool *ConnectionPool) *EntryRepository {
	return &EntryRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const entryColumns = `id, user_id, clock_in, clock_out, is_active, date, category, description, created_at, updated_at`

// CreateEntry inserts a new punch record. A second active entry for the same
// user trips the partial unique index and surfaces as ErrDuplicate. Caller
// timestamps are preserved; the service owns the clock.
func (r *EntryRepository) CreateEntry(ctx context.Context, entry persistence.TimeEntry) (persistence.TimeEntry, error) {
	if entry.ID == "" || entry.UserID == "" {
		return persistence.TimeEntry{}, persistence.ErrConstraintViolation
	}
	if entry.ClockIn.IsZero() || entry.Date == "" {
		return persistence.TimeEntry{}, persistence.ErrConstraintViolation
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	query := `
		INSERT INTO time_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ClockIn.UTC().Format(time.RFC3339),
		formatTimePtr(entry.ClockOut),
		entry.Active,
		entry.Date,
		nullString(entry.Category),
		nullString(entry.Description),
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return persistence.TimeEntry{}, r.mapper.MapError(err)
	}

	return entry, nil
}

// GetEntry retrieves a punch record by ID.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (persistence.TimeEntry, error) {
	if id == "" {
		return persistence.TimeEntry{}, persistence.ErrNotFound
	}

	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE id = ?`

	entry, err := scanEntry(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.TimeEntry{}, persistence.ErrNotFound
		}
		return persistence.TimeEntry{}, r.mapper.MapError(err)
	}
	return entry, nil
}

// UpdateEntry persists punch-out and label changes for an existing record.
// ClockIn, Date and ownership are immutable once written. The update and the
// re-read run in one transaction so the returned record is the written one.
func (r *EntryRepository) UpdateEntry(ctx context.Context, entry persistence.TimeEntry) (persistence.TimeEntry, error) {
	if entry.ID == "" {
		return persistence.TimeEntry{}, persistence.ErrNotFound
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE time_entries
		SET clock_out = ?, is_active = ?, category = ?, description = ?, updated_at = ?
		WHERE id = ?
	`
	reread := `SELECT ` + entryColumns + ` FROM time_entries WHERE id = ?`

	var updated persistence.TimeEntry
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, query,
			formatTimePtr(entry.ClockOut),
			entry.Active,
			nullString(entry.Category),
			nullString(entry.Description),
			entry.UpdatedAt.UTC().Format(time.RFC3339),
			entry.ID,
		)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		updated, err = scanEntry(r.helper.QueryRowTx(tx, reread, entry.ID))
		return err
	})
	if err != nil {
		return persistence.TimeEntry{}, r.mapper.MapError(err)
	}

	return updated, nil
}

// ListActiveEntries returns every open entry for a user. The schema permits
// at most one; callers treat additional rows as a data integrity breach.
func (r *EntryRepository) ListActiveEntries(ctx context.Context, userID string) ([]persistence.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries
		WHERE user_id = ? AND is_active = 1
		ORDER BY clock_in ASC, id ASC
	`
	return r.queryEntries(ctx, query, userID)
}

// ListEntriesByDate returns a user's entries for one calendar day ordered by
// clock-in ascending.
func (r *EntryRepository) ListEntriesByDate(ctx context.Context, userID, date string) ([]persistence.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries
		WHERE user_id = ? AND date = ?
		ORDER BY clock_in ASC, id ASC
	`
	return r.queryEntries(ctx, query, userID, date)
}

// ListRecentEntries returns a user's most recent entries by clock-in descending.
func (r *EntryRepository) ListRecentEntries(ctx context.Context, userID string, limit int) ([]persistence.TimeEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT ` + entryColumns + `
		FROM time_entries
		WHERE user_id = ?
		ORDER BY clock_in DESC, id DESC
		LIMIT ?
	`
	return r.queryEntries(ctx, query, userID, limit)
}

func (r *EntryRepository) queryEntries(ctx context.Context, query string, args ...any) ([]persistence.TimeEntry, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (persistence.TimeEntry, error) {
	var entry persistence.TimeEntry
	var clockInStr, createdAtStr, updatedAtStr string
	var clockOut, category, description sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&clockInStr,
		&clockOut,
		&entry.Active,
		&entry.Date,
		&category,
		&description,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.TimeEntry{}, err
	}

	if entry.ClockIn, err = time.Parse(time.RFC3339, clockInStr); err != nil {
		return persistence.TimeEntry{}, fmt.Errorf("failed to parse clock_in: %w", err)
	}
	if clockOut.Valid {
		if entry.ClockOut, err = parseTimePtr(clockOut.String); err != nil {
			return persistence.TimeEntry{}, fmt.Errorf("failed to parse clock_out: %w", err)
		}
	}
	if category.Valid {
		value := category.String
		entry.Category = &value
	}
	if description.Valid {
		value := description.String
		entry.Description = &value
	}
	if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.TimeEntry{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.TimeEntry{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return entry, nil
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseTimePtr(value string) (*time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
