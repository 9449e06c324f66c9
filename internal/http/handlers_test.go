package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/timetrack/internal/application"
)

type fakeTimesheetService struct {
	entry        application.TimeEntry
	withDuration application.TimeEntryWithDuration
	recent       []application.TimeEntryWithDuration
	err          error
}

func (f *fakeTimesheetService) PunchIn(ctx context.Context, params application.PunchInParams) (application.TimeEntry, error) {
	if f.err != nil {
		return application.TimeEntry{}, f.err
	}
	return f.entry, nil
}

func (f *fakeTimesheetService) PunchOut(ctx context.Context, params application.PunchOutParams) (application.TimeEntryWithDuration, error) {
	if f.err != nil {
		return application.TimeEntryWithDuration{}, f.err
	}
	return f.withDuration, nil
}

func (f *fakeTimesheetService) UpdateActiveEntry(ctx context.Context, params application.UpdateEntryParams) (application.TimeEntry, error) {
	if f.err != nil {
		return application.TimeEntry{}, f.err
	}
	return f.entry, nil
}

func (f *fakeTimesheetService) ActiveEntry(ctx context.Context, principal application.Principal) (application.TimeEntry, error) {
	if f.err != nil {
		return application.TimeEntry{}, f.err
	}
	return f.entry, nil
}

func (f *fakeTimesheetService) RecentEntries(ctx context.Context, principal application.Principal, limit int) ([]application.TimeEntryWithDuration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent, nil
}

type fakeStatsService struct {
	daily  application.DailyStats
	weekly application.WeeklyStats
	err    error
}

func (f *fakeStatsService) DailyStats(ctx context.Context, principal application.Principal, date string) (application.DailyStats, error) {
	if f.err != nil {
		return application.DailyStats{}, f.err
	}
	return f.daily, nil
}

func (f *fakeStatsService) WeeklyStats(ctx context.Context, principal application.Principal, startDate string) (application.WeeklyStats, error) {
	if f.err != nil {
		return application.WeeklyStats{}, f.err
	}
	return f.weekly, nil
}

type fakeUserService struct {
	user application.User
	err  error
}

func (f *fakeUserService) Register(ctx context.Context, params application.RegisterUserParams) (application.User, error) {
	if f.err != nil {
		return application.User{}, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) GetUser(ctx context.Context, id string) (application.User, error) {
	if f.err != nil {
		return application.User{}, f.err
	}
	return f.user, nil
}

type fakeAuthService struct {
	result    application.AuthenticateResult
	err       error
	revokeErr error
	revoked   string
}

func (f *fakeAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if f.err != nil {
		return application.AuthenticateResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeAuthService) RevokeSession(ctx context.Context, token string) error {
	f.revoked = token
	return f.revokeErr
}

func withPrincipal(principal application.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func entryRouter(service timesheetService) http.Handler {
	return NewRouter(RouterConfig{
		Entries:    NewEntryHandler(service, nil),
		Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
	})
}

func sampleEntry() application.TimeEntry {
	return application.TimeEntry{
		ID:      "entry-1",
		UserID:  "user-1",
		ClockIn: time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
		Active:  true,
		Date:    "2024-03-11",
	}
}

func TestEntryHandlers(t *testing.T) {
	t.Parallel()

	t.Run("punch-in returns the created entry", func(t *testing.T) {
		t.Parallel()

		router := entryRouter(&fakeTimesheetService{entry: sampleEntry()})
		req := httptest.NewRequest(http.MethodPost, "/api/time-entries", strings.NewReader(`{"category":"engineering"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var dto timeEntryDTO
		if err := json.NewDecoder(recorder.Body).Decode(&dto); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dto.ID != "entry-1" || !dto.IsActive || dto.ClockOut != nil {
			t.Fatalf("unexpected entry payload: %+v", dto)
		}
	})

	t.Run("punch-in conflict maps to 400", func(t *testing.T) {
		t.Parallel()

		router := entryRouter(&fakeTimesheetService{err: application.ErrAlreadyPunchedIn})
		req := httptest.NewRequest(http.MethodPost, "/api/time-entries", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}

		var resp errorResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ErrorCode != "ENTRY_ALREADY_ACTIVE" {
			t.Fatalf("expected ENTRY_ALREADY_ACTIVE, got %q", resp.ErrorCode)
		}
	})

	t.Run("punch-out returns the closed entry with duration", func(t *testing.T) {
		t.Parallel()

		closed := sampleEntry()
		out := closed.ClockIn.Add(8*time.Hour + 30*time.Minute)
		closed.ClockOut = &out
		closed.Active = false
		duration := 8*time.Hour + 30*time.Minute

		router := entryRouter(&fakeTimesheetService{withDuration: application.TimeEntryWithDuration{TimeEntry: closed, Duration: &duration}})
		req := httptest.NewRequest(http.MethodPatch, "/api/time-entries/entry-1", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var dto timeEntryDTO
		if err := json.NewDecoder(recorder.Body).Decode(&dto); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dto.IsActive || dto.ClockOut == nil {
			t.Fatalf("expected closed entry, got %+v", dto)
		}
		if dto.DurationMs == nil || *dto.DurationMs != 30600000 {
			t.Fatalf("expected 30600000ms, got %v", dto.DurationMs)
		}
	})

	t.Run("punch-out on a closed entry maps to 400", func(t *testing.T) {
		t.Parallel()

		router := entryRouter(&fakeTimesheetService{err: application.ErrAlreadyClosed})
		req := httptest.NewRequest(http.MethodPatch, "/api/time-entries/entry-1", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("foreign entries map to 403", func(t *testing.T) {
		t.Parallel()

		router := entryRouter(&fakeTimesheetService{err: application.ErrForbidden})
		req := httptest.NewRequest(http.MethodPatch, "/api/time-entries/entry-9", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", recorder.Code)
		}
	})

	t.Run("missing active entry maps to 404", func(t *testing.T) {
		t.Parallel()

		router := entryRouter(&fakeTimesheetService{err: application.ErrNotFound})
		req := httptest.NewRequest(http.MethodGet, "/api/time-entries/active", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
	})

	t.Run("recent rejects a malformed limit", func(t *testing.T) {
		t.Parallel()

		router := entryRouter(&fakeTimesheetService{})
		req := httptest.NewRequest(http.MethodGet, "/api/time-entries/recent?limit=zero", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("label update uses PUT", func(t *testing.T) {
		t.Parallel()

		updated := sampleEntry()
		category := "support"
		updated.Category = &category

		router := entryRouter(&fakeTimesheetService{entry: updated})
		req := httptest.NewRequest(http.MethodPut, "/api/time-entries/entry-1", strings.NewReader(`{"category":"support"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var dto timeEntryDTO
		if err := json.NewDecoder(recorder.Body).Decode(&dto); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dto.Category == nil || *dto.Category != "support" {
			t.Fatalf("expected updated category, got %v", dto.Category)
		}
	})

	t.Run("collection rejects non-POST methods", func(t *testing.T) {
		t.Parallel()

		router := entryRouter(&fakeTimesheetService{})
		req := httptest.NewRequest(http.MethodDelete, "/api/time-entries", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", recorder.Code)
		}
	})
}

func TestStatsHandlers(t *testing.T) {
	t.Parallel()

	t.Run("daily returns the rollup", func(t *testing.T) {
		t.Parallel()

		stats := &fakeStatsService{daily: application.DailyStats{Date: "2024-03-11", TotalHours: 8.5, IsToday: true}}
		router := NewRouter(RouterConfig{
			Stats:      NewStatsHandler(stats, nil),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/stats/daily?date=2024-03-11", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var dto dailyStatsDTO
		if err := json.NewDecoder(recorder.Body).Decode(&dto); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dto.TotalHours != 8.5 || !dto.IsToday {
			t.Fatalf("unexpected daily stats payload: %+v", dto)
		}
	})

	t.Run("weekly includes the target", func(t *testing.T) {
		t.Parallel()

		stats := &fakeStatsService{weekly: application.WeeklyStats{
			TotalHours:         20,
			RemainingHours:     20,
			ProgressPercentage: 50,
			DailyStats:         make([]application.DailyStats, 7),
		}}
		router := NewRouter(RouterConfig{
			Stats:      NewStatsHandler(stats, nil),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/stats/weekly?startDate=2024-03-11", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}

		var dto weeklyStatsDTO
		if err := json.NewDecoder(recorder.Body).Decode(&dto); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dto.TargetHours != 40 || dto.ProgressPercentage != 50 {
			t.Fatalf("unexpected weekly stats payload: %+v", dto)
		}
		if len(dto.DailyStats) != 7 {
			t.Fatalf("expected seven daily buckets, got %d", len(dto.DailyStats))
		}
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		t.Parallel()

		vErr := &application.ValidationError{FieldErrors: map[string]string{"date": "date must be formatted as YYYY-MM-DD"}}
		router := NewRouter(RouterConfig{
			Stats:      NewStatsHandler(&fakeStatsService{err: vErr}, nil),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/stats/daily?date=nonsense", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}

		var resp errorResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if _, ok := resp.Errors["date"]; !ok {
			t.Fatalf("expected date field error, got %v", resp.Errors)
		}
	})
}

func TestReportHandler(t *testing.T) {
	t.Parallel()

	weeklyStats := application.WeeklyStats{
		TotalHours: 8.5,
		DailyStats: []application.DailyStats{
			{Date: "2024-03-11", TotalHours: 8.5},
			{Date: "2024-03-12"}, {Date: "2024-03-13"}, {Date: "2024-03-14"},
			{Date: "2024-03-15"}, {Date: "2024-03-16"}, {Date: "2024-03-17"},
		},
	}
	now := func() time.Time { return time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC) }

	t.Run("renders csv when requested", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{
			Reports:    NewReportHandler(&fakeStatsService{weekly: weeklyStats}, now, time.UTC, nil),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/reports/weekly?format=csv", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Fatalf("expected text/csv content type, got %q", ct)
		}
		if !strings.HasPrefix(recorder.Body.String(), "Date,Day,Hours,First In,Last Out,Entries") {
			t.Fatalf("expected csv header, got %q", recorder.Body.String())
		}
	})

	t.Run("defaults to json", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{
			Reports:    NewReportHandler(&fakeStatsService{weekly: weeklyStats}, now, time.UTC, nil),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/reports/weekly", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Fatalf("expected json content type, got %q", ct)
		}
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{
			Reports:    NewReportHandler(&fakeStatsService{weekly: weeklyStats}, now, time.UTC, nil),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/reports/weekly?format=pdf", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	user := application.User{ID: "user-1", Username: "alice", DisplayName: "Alice Smith", Initials: "AS"}
	session := application.Session{ID: "session-1", UserID: "user-1", Token: "token-1", ExpiresAt: time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC)}

	t.Run("login issues the token via body, header, and cookie", func(t *testing.T) {
		t.Parallel()

		auth := &fakeAuthService{result: application.AuthenticateResult{User: user, Session: session}}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&fakeUserService{user: user}, auth, nil)})

		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"alice","password":"secret-pass"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if recorder.Header().Get("X-Session-Token") != "token-1" {
			t.Fatalf("expected session token header, got %q", recorder.Header().Get("X-Session-Token"))
		}

		var resp sessionResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Token != "token-1" || resp.User.Initials != "AS" {
			t.Fatalf("unexpected session payload: %+v", resp)
		}

		cookies := recorder.Result().Cookies()
		found := false
		for _, cookie := range cookies {
			if cookie.Name == "session_token" && cookie.Value == "token-1" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected session_token cookie, got %v", cookies)
		}
	})

	t.Run("login rejects bad credentials", func(t *testing.T) {
		t.Parallel()

		auth := &fakeAuthService{err: application.ErrInvalidCredentials}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&fakeUserService{}, auth, nil)})

		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
	})

	t.Run("register surfaces duplicate usernames", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&fakeUserService{err: application.ErrAlreadyExists}, &fakeAuthService{}, nil)})

		req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"username":"alice","password":"secret-pass","displayName":"Alice Smith"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}

		var resp errorResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ErrorCode != "USERNAME_TAKEN" {
			t.Fatalf("expected USERNAME_TAKEN, got %q", resp.ErrorCode)
		}
	})

	t.Run("register issues a session for the new account", func(t *testing.T) {
		t.Parallel()

		auth := &fakeAuthService{result: application.AuthenticateResult{User: user, Session: session}}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&fakeUserService{user: user}, auth, nil)})

		req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"username":"alice","password":"secret-pass","displayName":"Alice Smith"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var resp sessionResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Token != "token-1" || resp.User.Username != "alice" {
			t.Fatalf("unexpected registration payload: %+v", resp)
		}
	})

	t.Run("logout revokes the session and clears the cookie", func(t *testing.T) {
		t.Parallel()

		auth := &fakeAuthService{}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&fakeUserService{}, auth, nil)})

		req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
		req.Header.Set("Authorization", "Bearer token-1")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if auth.revoked != "token-1" {
			t.Fatalf("expected token-1 revoked, got %q", auth.revoked)
		}
	})

	t.Run("current user requires a principal", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&fakeUserService{user: user}, &fakeAuthService{}, nil)})

		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
	})

	t.Run("current user returns the account", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{
			Auth:       NewAuthHandler(&fakeUserService{user: user}, &fakeAuthService{}, nil),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}

		var dto userDTO
		if err := json.NewDecoder(recorder.Body).Decode(&dto); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dto.Username != "alice" || dto.Initials != "AS" {
			t.Fatalf("unexpected user payload: %+v", dto)
		}
	})
}
