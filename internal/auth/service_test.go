package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memQueries struct {
	usersByEmail map[string]StoredUser
	usersByID    map[uuid.UUID]StoredUser
	sessions     map[string]Session
}

func newMemQueries() *memQueries {
	return &memQueries{
		usersByEmail: map[string]StoredUser{},
		usersByID:    map[uuid.UUID]StoredUser{},
		sessions:     map[string]Session{},
	}
}

func (m *memQueries) CreateUser(_ context.Context, u StoredUser) (StoredUser, error) {
	if _, ok := m.usersByEmail[u.Email]; ok {
		return StoredUser{}, ErrEmailTaken
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.usersByEmail[u.Email] = u
	m.usersByID[u.ID] = u
	return u, nil
}

func (m *memQueries) GetUserByEmail(_ context.Context, email string) (StoredUser, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return StoredUser{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memQueries) GetUserByID(_ context.Context, id uuid.UUID) (StoredUser, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return StoredUser{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memQueries) CreateSession(_ context.Context, s Session) (Session, error) {
	m.sessions[s.RefreshToken] = s
	return s, nil
}

func (m *memQueries) GetSessionByToken(_ context.Context, hashedToken string) (Session, error) {
	s, ok := m.sessions[hashedToken]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memQueries) RotateSessionToken(_ context.Context, id uuid.UUID, hashedToken string, expiresAt time.Time) error {
	for key, s := range m.sessions {
		if s.ID == id {
			delete(m.sessions, key)
			s.RefreshToken = hashedToken
			s.ExpiresAt = expiresAt
			m.sessions[hashedToken] = s
			return nil
		}
	}
	return ErrSessionNotFound
}

func (m *memQueries) DeleteSessionByToken(_ context.Context, hashedToken string) error {
	if _, ok := m.sessions[hashedToken]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, hashedToken)
	return nil
}

func (m *memQueries) DeleteSessionsByUser(_ context.Context, userID uuid.UUID) error {
	for key, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, key)
		}
	}
	return nil
}

func newTestService(t *testing.T, q Querier) *Service {
	t.Helper()
	svc, err := NewService(Config{Queries: q, Secret: "test-secret-test-secret"})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	q := newMemQueries()
	svc := newTestService(t, q)
	ctx := context.Background()

	user, err := svc.Register(ctx, "An Nguyen", "AN@Example.com", "supersecret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "an@example.com" {
		t.Fatalf("email not normalised: %q", user.Email)
	}
	if len(user.Roles) != 1 || user.Roles[0] != "student" {
		t.Fatalf("unexpected roles: %v", user.Roles)
	}

	result, err := svc.Login(ctx, "an@example.com", "supersecret", "go-test", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	sub, roles, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if sub != user.ID {
		t.Fatalf("subject = %q, want %q", sub, user.ID)
	}
	if len(roles) != 1 || roles[0] != "student" {
		t.Fatalf("roles claim = %v", roles)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	q := newMemQueries()
	svc := newTestService(t, q)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "First", "dup@example.com", "supersecret"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := svc.Register(ctx, "Second", "dup@example.com", "othersecret")
	if err == nil {
		t.Fatal("expected duplicate email error")
	}
}

func TestRegisterShortPassword(t *testing.T) {
	svc := newTestService(t, newMemQueries())
	if _, err := svc.Register(context.Background(), "Short", "short@example.com", "abc"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	q := newMemQueries()
	svc := newTestService(t, q)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "User", "u@example.com", "supersecret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "u@example.com", "wrongpassword", "", ""); err == nil {
		t.Fatal("expected invalid credentials")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	q := newMemQueries()
	svc := newTestService(t, q)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "User", "r@example.com", "supersecret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	login, err := svc.Login(ctx, "r@example.com", "supersecret", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The old token must be dead after rotation.
	if _, err := svc.Refresh(ctx, login.RefreshToken); err == nil {
		t.Fatal("expected old refresh token to be rejected")
	}
	if _, err := svc.Refresh(ctx, refreshed.RefreshToken); err != nil {
		t.Fatalf("new refresh token rejected: %v", err)
	}
}

func TestRefreshExpiredSession(t *testing.T) {
	q := newMemQueries()
	svc := newTestService(t, q)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "User", "e@example.com", "supersecret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	login, err := svc.Login(ctx, "e@example.com", "supersecret", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc.WithNow(func() time.Time { return time.Now().Add(48 * time.Hour) })
	if _, err := svc.Refresh(ctx, login.RefreshToken); err == nil {
		t.Fatal("expected expired session to be rejected")
	}
	// Expired session is removed eagerly.
	if _, err := q.GetSessionByToken(ctx, hashRefreshToken(login.RefreshToken)); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session still present, err = %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	q := newMemQueries()
	svc := newTestService(t, q)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "User", "l@example.com", "supersecret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	login, err := svc.Login(ctx, "l@example.com", "supersecret", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, login.RefreshToken); err == nil {
		t.Fatal("expected revoked token to be rejected")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	q := newMemQueries()
	svc := newTestService(t, q)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "User", "x@example.com", "supersecret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	login, err := svc.Login(ctx, "x@example.com", "supersecret", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc.WithNow(func() time.Time { return time.Now().Add(time.Hour) })
	if _, _, err := svc.ParseAccessToken(login.AccessToken); err == nil {
		t.Fatal("expected expired access token to be rejected")
	}
}
