package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/report"
)

type ReportHandler struct {
	service   statsService
	now       func() time.Time
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service statsService, now func() time.Time, location *time.Location, logger *slog.Logger) *ReportHandler {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	base := defaultLogger(logger)
	return &ReportHandler{service: service, now: now, location: location, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

// Weekly renders a weekly report for the authenticated principal. The format
// query parameter selects json (default) or csv.
func (h *ReportHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"format": "format must be json or csv"}}
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	startDate := r.URL.Query().Get("startDate")
	logger := h.log(r.Context(), "Weekly", "user_id", principal.UserID, "start_date", startDate, "format", format)

	stats, err := h.service.WeeklyStats(r.Context(), principal, startDate)
	if err != nil {
		logger.ErrorContext(r.Context(), "weekly report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	weekly := report.AssembleWeekly(stats, h.now(), h.location)

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "weekly-report-"+weekly.WeekStart+".csv"))
		w.WriteHeader(http.StatusOK)
		if err := report.WriteCSV(w, weekly); err != nil {
			logger.ErrorContext(r.Context(), "failed to write csv report", "error", err)
		}
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, weekly)
}
