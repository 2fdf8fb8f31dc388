package quiz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed quiz store.
type Repo struct {
	Pool *pgxpool.Pool
}

// GetQuizByID loads a quiz by primary key.
func (r *Repo) GetQuizByID(ctx context.Context, id uuid.UUID) (Quiz, error) {
	var q Quiz
	err := r.Pool.QueryRow(ctx,
		`SELECT id, course_id, title FROM quizzes WHERE id = $1`, id).
		Scan(&q.ID, &q.CourseID, &q.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quiz{}, ErrQuizNotFound
	}
	return q, err
}

// ListQuestions loads the questions with their correct option sets.
func (r *Repo) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]Question, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, correct_option_ids FROM quiz_questions
		 WHERE quiz_id = $1 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.CorrectOptionIDs); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// InsertAttempt persists a graded attempt.
func (r *Repo) InsertAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	err := r.Pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (id, quiz_id, user_id, score, correct_count, total_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, quiz_id, user_id, score, correct_count, total_count, created_at`,
		a.ID, a.QuizID, a.UserID, a.Score, a.CorrectCount, a.TotalCount, a.CreatedAt).
		Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.CorrectCount, &a.TotalCount, &a.CreatedAt)
	return a, err
}

// ListAttempts returns the user's attempts for a quiz, newest first.
func (r *Repo) ListAttempts(ctx context.Context, quizID, userID uuid.UUID) ([]Attempt, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, quiz_id, user_id, score, correct_count, total_count, created_at
		 FROM quiz_attempts
		 WHERE quiz_id = $1 AND user_id = $2
		 ORDER BY created_at DESC`, quizID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.CorrectCount, &a.TotalCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
