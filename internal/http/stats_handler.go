package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/timetrack/internal/application"
)

type statsService interface {
	DailyStats(ctx context.Context, principal application.Principal, date string) (application.DailyStats, error)
	WeeklyStats(ctx context.Context, principal application.Principal, startDate string) (application.WeeklyStats, error)
}

type StatsHandler struct {
	service   statsService
	responder responder
	logger    *slog.Logger
}

func NewStatsHandler(service statsService, logger *slog.Logger) *StatsHandler {
	base := defaultLogger(logger)
	return &StatsHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *StatsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "StatsHandler", operation, attrs...)
}

// Daily returns the rollup for one local date, defaulting to today.
func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	date := r.URL.Query().Get("date")
	stats, err := h.service.DailyStats(r.Context(), principal, date)
	if err != nil {
		h.log(r.Context(), "Daily", "user_id", principal.UserID, "date", date).
			ErrorContext(r.Context(), "daily stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDailyStatsDTO(stats))
}

// Weekly returns the rollup for the Monday-start week containing startDate,
// defaulting to the current week.
func (h *StatsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	startDate := r.URL.Query().Get("startDate")
	stats, err := h.service.WeeklyStats(r.Context(), principal, startDate)
	if err != nil {
		h.log(r.Context(), "Weekly", "user_id", principal.UserID, "start_date", startDate).
			ErrorContext(r.Context(), "weekly stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWeeklyStatsDTO(stats))
}

type dailyStatsDTO struct {
	Date       string         `json:"date"`
	TotalHours float64        `json:"totalHours"`
	Entries    []timeEntryDTO `json:"entries"`
	IsToday    bool           `json:"isToday"`
}

type weeklyStatsDTO struct {
	TotalHours         float64         `json:"totalHours"`
	TargetHours        float64         `json:"targetHours"`
	RemainingHours     float64         `json:"remainingHours"`
	ProgressPercentage float64         `json:"progressPercentage"`
	DailyStats         []dailyStatsDTO `json:"dailyStats"`
}

func toDailyStatsDTO(stats application.DailyStats) dailyStatsDTO {
	entries := make([]timeEntryDTO, 0, len(stats.Entries))
	for _, entry := range stats.Entries {
		entries = append(entries, toTimeEntryDTO(entry.TimeEntry, entry.Duration))
	}
	return dailyStatsDTO{
		Date:       stats.Date,
		TotalHours: stats.TotalHours,
		Entries:    entries,
		IsToday:    stats.IsToday,
	}
}

func toWeeklyStatsDTO(stats application.WeeklyStats) weeklyStatsDTO {
	days := make([]dailyStatsDTO, 0, len(stats.DailyStats))
	for _, day := range stats.DailyStats {
		days = append(days, toDailyStatsDTO(day))
	}
	return weeklyStatsDTO{
		TotalHours:         stats.TotalHours,
		TargetHours:        application.WeeklyTargetHours,
		RemainingHours:     stats.RemainingHours,
		ProgressPercentage: stats.ProgressPercentage,
		DailyStats:         days,
	}
}
