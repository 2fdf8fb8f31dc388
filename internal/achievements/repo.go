package achievements

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed achievement store.
type Repo struct {
	Pool *pgxpool.Pool
}

// AddCounters upserts the counter row and bumps the given deltas.
func (r *Repo) AddCounters(ctx context.Context, userID uuid.UUID, courses, quizzes, perfect int) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO achievements (user_id, courses_purchased, quizzes_completed, perfect_scores, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id) DO UPDATE SET
		   courses_purchased = achievements.courses_purchased + EXCLUDED.courses_purchased,
		   quizzes_completed = achievements.quizzes_completed + EXCLUDED.quizzes_completed,
		   perfect_scores    = achievements.perfect_scores + EXCLUDED.perfect_scores,
		   updated_at        = now()`,
		userID, courses, quizzes, perfect)
	return err
}

// GetSummary loads the counters for one user. Missing rows come back as zeros.
func (r *Repo) GetSummary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	var s Summary
	err := r.Pool.QueryRow(ctx,
		`SELECT user_id, courses_purchased, quizzes_completed, perfect_scores, updated_at
		 FROM achievements WHERE user_id = $1`, userID).
		Scan(&s.UserID, &s.CoursesPurchased, &s.QuizzesCompleted, &s.PerfectScores, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{UserID: userID}, nil
	}
	return s, err
}

// GetStreak loads the streak row for one user.
func (r *Repo) GetStreak(ctx context.Context, userID uuid.UUID) (Streak, error) {
	var s Streak
	err := r.Pool.QueryRow(ctx,
		`SELECT user_id, current_days, longest_days, last_active
		 FROM streaks WHERE user_id = $1`, userID).
		Scan(&s.UserID, &s.Current, &s.Longest, &s.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Streak{}, ErrNoStreak
	}
	return s, err
}

// UpsertStreak writes the streak row.
func (r *Repo) UpsertStreak(ctx context.Context, s Streak) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO streaks (user_id, current_days, longest_days, last_active)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
		   current_days = EXCLUDED.current_days,
		   longest_days = EXCLUDED.longest_days,
		   last_active  = EXCLUDED.last_active`,
		s.UserID, s.Current, s.Longest, s.LastActive)
	return err
}
