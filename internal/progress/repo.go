package progress

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed progress store.
type Repo struct {
	Pool *pgxpool.Pool
}

// GetLectureByID loads a lecture by primary key.
func (r *Repo) GetLectureByID(ctx context.Context, id uuid.UUID) (Lecture, error) {
	var l Lecture
	err := r.Pool.QueryRow(ctx,
		`SELECT id, course_id, duration_seconds FROM lectures WHERE id = $1`, id).
		Scan(&l.ID, &l.CourseID, &l.DurationSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lecture{}, ErrLectureNotFound
	}
	return l, err
}

// ListLectures returns the lectures of a course in order.
func (r *Repo) ListLectures(ctx context.Context, courseID uuid.UUID) ([]Lecture, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, course_id, duration_seconds FROM lectures
		 WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lecture
	for rows.Next() {
		var l Lecture
		if err := rows.Scan(&l.ID, &l.CourseID, &l.DurationSeconds); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListCompletedLectureIDs returns the user's completed lecture ids for a course.
func (r *Repo) ListCompletedLectureIDs(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT lp.lecture_id FROM lecture_progress lp
		 JOIN lectures l ON l.id = lp.lecture_id
		 WHERE lp.user_id = $1 AND l.course_id = $2`, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpsertCompletion records a completion. Replays keep the first timestamp.
func (r *Repo) UpsertCompletion(ctx context.Context, userID, lectureID uuid.UUID, completedAt time.Time) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO lecture_progress (user_id, lecture_id, completed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, lecture_id) DO NOTHING`,
		userID, lectureID, completedAt)
	return err
}
