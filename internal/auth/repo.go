package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed auth store.
type Repo struct {
	Pool *pgxpool.Pool
}

const userColumns = `id, name, email, password_hash, roles, created_at, updated_at`

func scanUser(row pgx.Row) (StoredUser, error) {
	var u StoredUser
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredUser{}, ErrUserNotFound
	}
	return u, err
}

// CreateUser inserts a new account.
func (r *Repo) CreateUser(ctx context.Context, u StoredUser) (StoredUser, error) {
	stored, err := scanUser(r.Pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, password_hash, roles)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Roles))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return StoredUser{}, ErrEmailTaken
	}
	return stored, err
}

// GetUserByEmail loads an account by normalised email.
func (r *Repo) GetUserByEmail(ctx context.Context, email string) (StoredUser, error) {
	return scanUser(r.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetUserByID loads an account by primary key.
func (r *Repo) GetUserByID(ctx context.Context, id uuid.UUID) (StoredUser, error) {
	return scanUser(r.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateSession stores a hashed refresh token.
func (r *Repo) CreateSession(ctx context.Context, s Session) (Session, error) {
	err := r.Pool.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token, user_agent, ip, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, refresh_token, user_agent, ip, expires_at`,
		s.ID, s.UserID, s.RefreshToken, s.UserAgent, s.IP, s.ExpiresAt).
		Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.UserAgent, &s.IP, &s.ExpiresAt)
	return s, err
}

// GetSessionByToken loads a session by hashed refresh token.
func (r *Repo) GetSessionByToken(ctx context.Context, hashedToken string) (Session, error) {
	var s Session
	err := r.Pool.QueryRow(ctx,
		`SELECT id, user_id, refresh_token, user_agent, ip, expires_at
		 FROM sessions WHERE refresh_token = $1`, hashedToken).
		Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.UserAgent, &s.IP, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

// RotateSessionToken swaps the hashed token and extends expiry.
func (r *Repo) RotateSessionToken(ctx context.Context, id uuid.UUID, hashedToken string, expiresAt time.Time) error {
	tag, err := r.Pool.Exec(ctx,
		`UPDATE sessions SET refresh_token = $2, expires_at = $3 WHERE id = $1`,
		id, hashedToken, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSessionByToken removes a session by hashed refresh token.
func (r *Repo) DeleteSessionByToken(ctx context.Context, hashedToken string) error {
	tag, err := r.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE refresh_token = $1`, hashedToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSessionsByUser revokes every session for a user.
func (r *Repo) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}
