package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/timetrack/internal/application"
)

type timesheetService interface {
	PunchIn(ctx context.Context, params application.PunchInParams) (application.TimeEntry, error)
	PunchOut(ctx context.Context, params application.PunchOutParams) (application.TimeEntryWithDuration, error)
	UpdateActiveEntry(ctx context.Context, params application.UpdateEntryParams) (application.TimeEntry, error)
	ActiveEntry(ctx context.Context, principal application.Principal) (application.TimeEntry, error)
	RecentEntries(ctx context.Context, principal application.Principal, limit int) ([]application.TimeEntryWithDuration, error)
}

type EntryHandler struct {
	service   timesheetService
	responder responder
	logger    *slog.Logger
}

func NewEntryHandler(service timesheetService, logger *slog.Logger) *EntryHandler {
	base := defaultLogger(logger)
	return &EntryHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EntryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EntryHandler", operation, attrs...)
}

// PunchIn opens a new active entry for the authenticated principal.
func (h *EntryHandler) PunchIn(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req entryInputRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "PunchIn", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode punch-in request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	logger := h.log(r.Context(), "PunchIn", "user_id", principal.UserID)

	entry, err := h.service.PunchIn(r.Context(), application.PunchInParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "punch-in rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("entry_id", entry.ID).InfoContext(r.Context(), "punched in")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTimeEntryDTO(entry, nil))
}

// PunchOut closes the active entry identified by the request path.
func (h *EntryHandler) PunchOut(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	var req entryInputRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "PunchOut", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode punch-out request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	logger := h.log(r.Context(), "PunchOut", "user_id", principal.UserID, "entry_id", entryID)

	entry, err := h.service.PunchOut(r.Context(), application.PunchOutParams{
		Principal: principal,
		EntryID:   entryID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "punch-out rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "punched out")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimeEntryDTO(entry.TimeEntry, entry.Duration))
}

// Update replaces the labels of the active entry identified by the request path.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	var req entryInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode entry update request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "user_id", principal.UserID, "entry_id", entryID)

	entry, err := h.service.UpdateActiveEntry(r.Context(), application.UpdateEntryParams{
		Principal: principal,
		EntryID:   entryID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "entry update rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "entry updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimeEntryDTO(entry, nil))
}

// Active returns the principal's open entry, or 404 when none is open.
func (h *EntryHandler) Active(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	entry, err := h.service.ActiveEntry(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Active", "user_id", principal.UserID).
			ErrorContext(r.Context(), "active entry lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimeEntryDTO(entry, nil))
}

// Recent lists the principal's newest entries. The limit query parameter is
// optional and defaults to 10.
func (h *EntryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			vErr := &application.ValidationError{FieldErrors: map[string]string{"limit": "limit must be a positive integer"}}
			h.responder.handleServiceError(r.Context(), w, vErr)
			return
		}
		limit = parsed
	}

	entries, err := h.service.RecentEntries(r.Context(), principal, limit)
	if err != nil {
		h.log(r.Context(), "Recent", "user_id", principal.UserID).
			ErrorContext(r.Context(), "recent entry listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]timeEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toTimeEntryDTO(entry.TimeEntry, entry.Duration))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *EntryHandler) requirePrincipal(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.Principal{}, false
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return application.Principal{}, false
	}
	return principal, true
}

type entryInputRequest struct {
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

func (r entryInputRequest) toInput() application.EntryInput {
	return application.EntryInput{Category: r.Category, Description: r.Description}
}

type timeEntryDTO struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	ClockIn     string  `json:"clockIn"`
	ClockOut    *string `json:"clockOut"`
	IsActive    bool    `json:"isActive"`
	Date        string  `json:"date"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	DurationMs  *int64  `json:"durationMs,omitempty"`
}

func toTimeEntryDTO(entry application.TimeEntry, duration *time.Duration) timeEntryDTO {
	dto := timeEntryDTO{
		ID:          entry.ID,
		UserID:      entry.UserID,
		ClockIn:     entry.ClockIn.UTC().Format(time.RFC3339Nano),
		IsActive:    entry.Active,
		Date:        entry.Date,
		Category:    entry.Category,
		Description: entry.Description,
	}
	if entry.ClockOut != nil {
		out := entry.ClockOut.UTC().Format(time.RFC3339Nano)
		dto.ClockOut = &out
	}
	if duration != nil {
		ms := duration.Milliseconds()
		dto.DurationMs = &ms
	}
	return dto
}
