package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/config"
	httptransport "github.com/example/timetrack/internal/http"
	"github.com/example/timetrack/internal/persistence"
	"github.com/example/timetrack/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	location, err := cfg.Location()
	if err != nil {
		logger.Error("failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	users := sqlite.NewUserRepository(pool)
	entries := sqlite.NewEntryRepository(pool)
	sessions := sqlite.NewSessionRepository(pool)

	userRepo := newUserRepositoryAdapter(users)
	entryRepo := newEntryRepositoryAdapter(entries)
	sessionRepo := newSessionRepositoryAdapter(sessions)

	userService := application.NewUserServiceWithLogger(userRepo, nil, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(userRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)
	timesheetService := application.NewTimesheetServiceWithLogger(entryRepo, idGenerator, now, location, logger)

	authHandler := httptransport.NewAuthHandler(userService, authService, logger)
	entryHandler := httptransport.NewEntryHandler(timesheetService, logger)
	statsHandler := httptransport.NewStatsHandler(timesheetService, logger)
	reportHandler := httptransport.NewReportHandler(timesheetService, now, location, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:    authHandler,
		Entries: entryHandler,
		Stats:   statsHandler,
		Reports: reportHandler,
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httptransport.IsPublicPath(r.URL.Path) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("timetrack API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// mapPersistenceError rewrites storage sentinels into their application
// counterparts so services can branch with errors.Is.
func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	default:
		return err
	}
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, mapPersistenceError(err)
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

type entryRepositoryAdapter struct {
	repo persistence.EntryRepository
}

func newEntryRepositoryAdapter(repo persistence.EntryRepository) *entryRepositoryAdapter {
	return &entryRepositoryAdapter{repo: repo}
}

func (a *entryRepositoryAdapter) CreateEntry(ctx context.Context, entry application.TimeEntry) (application.TimeEntry, error) {
	stored, err := a.repo.CreateEntry(ctx, toPersistenceEntry(entry))
	if err != nil {
		return application.TimeEntry{}, mapPersistenceError(err)
	}
	return toApplicationEntry(stored), nil
}

func (a *entryRepositoryAdapter) GetEntry(ctx context.Context, id string) (application.TimeEntry, error) {
	stored, err := a.repo.GetEntry(ctx, id)
	if err != nil {
		return application.TimeEntry{}, mapPersistenceError(err)
	}
	return toApplicationEntry(stored), nil
}

func (a *entryRepositoryAdapter) UpdateEntry(ctx context.Context, entry application.TimeEntry) (application.TimeEntry, error) {
	stored, err := a.repo.UpdateEntry(ctx, toPersistenceEntry(entry))
	if err != nil {
		return application.TimeEntry{}, mapPersistenceError(err)
	}
	return toApplicationEntry(stored), nil
}

func (a *entryRepositoryAdapter) ListActiveEntries(ctx context.Context, userID string) ([]application.TimeEntry, error) {
	models, err := a.repo.ListActiveEntries(ctx, userID)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return toApplicationEntries(models), nil
}

func (a *entryRepositoryAdapter) ListEntriesByDate(ctx context.Context, userID, date string) ([]application.TimeEntry, error) {
	models, err := a.repo.ListEntriesByDate(ctx, userID, date)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return toApplicationEntries(models), nil
}

func (a *entryRepositoryAdapter) ListRecentEntries(ctx context.Context, userID string, limit int) ([]application.TimeEntry, error) {
	models, err := a.repo.ListRecentEntries(ctx, userID, limit)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return toApplicationEntries(models), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapPersistenceError(a.repo.DeleteExpiredSessions(ctx, reference))
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Username:    model.Username,
		DisplayName: model.DisplayName,
		Initials:    model.Initials,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		Initials:     user.Initials,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationEntry(model persistence.TimeEntry) application.TimeEntry {
	return application.TimeEntry{
		ID:          model.ID,
		UserID:      model.UserID,
		ClockIn:     model.ClockIn,
		ClockOut:    cloneTime(model.ClockOut),
		Active:      model.Active,
		Date:        model.Date,
		Category:    cloneString(model.Category),
		Description: cloneString(model.Description),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toApplicationEntries(models []persistence.TimeEntry) []application.TimeEntry {
	if len(models) == 0 {
		return nil
	}
	entries := make([]application.TimeEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, toApplicationEntry(model))
	}
	return entries
}

func toPersistenceEntry(entry application.TimeEntry) persistence.TimeEntry {
	return persistence.TimeEntry{
		ID:          entry.ID,
		UserID:      entry.UserID,
		ClockIn:     entry.ClockIn,
		ClockOut:    cloneTime(entry.ClockOut),
		Active:      entry.Active,
		Date:        entry.Date,
		Category:    cloneString(entry.Category),
		Description: cloneString(entry.Description),
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
