package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type credentialStoreStub struct {
	creds   UserCredentials
	credErr error
	user    User
	userErr error
}

func (s *credentialStoreStub) GetUserCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error) {
	if s.credErr != nil {
		return UserCredentials{}, s.credErr
	}
	return s.creds, nil
}

func (s *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if s.userErr != nil {
		return User{}, s.userErr
	}
	return s.user, nil
}

type sessionRepoStub struct {
	created   Session
	stored    Session
	getErr    error
	revoked   bool
	revokeErr error
	pruned    bool
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.created = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	return s.stored, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	s.revoked = true
	revoked := s.stored
	revoked.RevokedAt = &revokedAt
	return revoked, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.pruned = true
	return nil
}

func passwordMatches(hashedPassword, password string) error {
	if hashedPassword == "hash:"+password {
		return nil
	}
	return ErrInvalidCredentials
}

func fixedTokens(tokens ...string) func() string {
	i := 0
	return func() string {
		token := tokens[i%len(tokens)]
		i++
		return token
	}
}

func TestAuthService_Authenticate_IssuesSession(t *testing.T) {
	t.Parallel()

	creds := &credentialStoreStub{creds: UserCredentials{
		User:         User{ID: "user-1", Username: "alice"},
		PasswordHash: "hash:secret-pass",
	}}
	sessions := &sessionRepoStub{}
	now := monday9
	svc := NewAuthService(creds, sessions, passwordMatches, fixedTokens("session-1", "token-1"), now, 7*24*time.Hour)

	result, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: " Alice ", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	if result.User.ID != "user-1" {
		t.Fatalf("expected user-1, got %q", result.User.ID)
	}
	if result.Session.Token != "token-1" {
		t.Fatalf("expected issued token, got %q", result.Session.Token)
	}
	if want := monday9().Add(7 * 24 * time.Hour); !result.Session.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, result.Session.ExpiresAt)
	}
	if !sessions.pruned {
		t.Fatal("expected expired sessions pruned on login")
	}
}

func TestAuthService_Authenticate_RejectsBadPassword(t *testing.T) {
	t.Parallel()

	creds := &credentialStoreStub{creds: UserCredentials{
		User:         User{ID: "user-1", Username: "alice"},
		PasswordHash: "hash:secret-pass",
	}}
	svc := NewAuthService(creds, &sessionRepoStub{}, passwordMatches, fixedTokens("token-1"), monday9, 0)

	_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Authenticate_HidesUnknownUsers(t *testing.T) {
	t.Parallel()

	creds := &credentialStoreStub{credErr: ErrNotFound}
	svc := NewAuthService(creds, &sessionRepoStub{}, passwordMatches, fixedTokens("token-1"), monday9, 0)

	_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "nobody", Password: "whatever"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuthService_Authenticate_RequiresCredentials(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(&credentialStoreStub{}, &sessionRepoStub{}, passwordMatches, fixedTokens("token-1"), monday9, 0)

	_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "", Password: ""})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	t.Run("returns the principal for a live session", func(t *testing.T) {
		t.Parallel()

		sessions := &sessionRepoStub{stored: Session{
			ID:        "session-1",
			UserID:    "user-1",
			Token:     "token-1",
			ExpiresAt: monday9().Add(time.Hour),
		}}
		creds := &credentialStoreStub{user: User{ID: "user-1"}}
		svc := NewAuthService(creds, sessions, passwordMatches, nil, monday9, 0)

		principal, err := svc.ValidateSession(context.Background(), "token-1")
		if err != nil {
			t.Fatalf("ValidateSession returned error: %v", err)
		}
		if principal.UserID != "user-1" {
			t.Fatalf("expected principal user-1, got %q", principal.UserID)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()

		sessions := &sessionRepoStub{stored: Session{
			UserID:    "user-1",
			Token:     "token-1",
			ExpiresAt: monday9().Add(-time.Minute),
		}}
		svc := NewAuthService(&credentialStoreStub{}, sessions, passwordMatches, nil, monday9, 0)

		_, err := svc.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		revokedAt := monday9().Add(-time.Minute)
		sessions := &sessionRepoStub{stored: Session{
			UserID:    "user-1",
			Token:     "token-1",
			ExpiresAt: monday9().Add(time.Hour),
			RevokedAt: &revokedAt,
		}}
		svc := NewAuthService(&credentialStoreStub{}, sessions, passwordMatches, nil, monday9, 0)

		_, err := svc.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		t.Parallel()

		sessions := &sessionRepoStub{getErr: ErrNotFound}
		svc := NewAuthService(&credentialStoreStub{}, sessions, passwordMatches, nil, monday9, 0)

		_, err := svc.ValidateSession(context.Background(), "token-404")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("revokes and prunes", func(t *testing.T) {
		t.Parallel()

		sessions := &sessionRepoStub{stored: Session{UserID: "user-1", Token: "token-1"}}
		svc := NewAuthService(&credentialStoreStub{}, sessions, passwordMatches, nil, monday9, 0)

		if err := svc.RevokeSession(context.Background(), "token-1"); err != nil {
			t.Fatalf("RevokeSession returned error: %v", err)
		}
		if !sessions.revoked || !sessions.pruned {
			t.Fatalf("expected revoke and prune, got revoked=%v pruned=%v", sessions.revoked, sessions.pruned)
		}
	})

	t.Run("maps unknown tokens to ErrInvalidCredentials", func(t *testing.T) {
		t.Parallel()

		sessions := &sessionRepoStub{revokeErr: ErrNotFound}
		svc := NewAuthService(&credentialStoreStub{}, sessions, passwordMatches, nil, monday9, 0)

		err := svc.RevokeSession(context.Background(), "token-404")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestVerifyPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct horse battery", DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}

	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Fatalf("expected matching password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "incorrect horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for a mismatch, got %v", err)
	}
	if err := VerifyPassword("not-a-hash", "anything"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
	}
	if err := VerifyPassword("$argon2id$v=19$m=65536,t=3,p=2$!!!$!!!", "anything"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected ErrInvalidPasswordHash for undecodable salt, got %v", err)
	}
	if err := VerifyPassword("$argon2id$v=18$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$AAAA", "anything"); !errors.Is(err, ErrIncompatiblePasswordVersion) {
		t.Fatalf("expected ErrIncompatiblePasswordVersion, got %v", err)
	}
}
