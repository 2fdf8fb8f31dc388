package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed reviews store.
type Repo struct {
	Pool *pgxpool.Pool
}

const reviewColumns = `id, course_id, user_id, rating, comment, created_at, updated_at`

func scanReview(row pgx.Row) (Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.CourseID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, ErrNotFound
	}
	return rv, err
}

// CreateReview inserts a review. The (course, user) pair is unique.
func (r *Repo) CreateReview(ctx context.Context, rv Review) (Review, error) {
	stored, err := scanReview(r.Pool.QueryRow(ctx,
		`INSERT INTO reviews (id, course_id, user_id, rating, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+reviewColumns,
		rv.ID, rv.CourseID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt, rv.UpdatedAt))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Review{}, ErrAlreadyReviewed
	}
	return stored, err
}

// UpdateReview replaces the rating and comment of an existing review.
func (r *Repo) UpdateReview(ctx context.Context, rv Review) (Review, error) {
	return scanReview(r.Pool.QueryRow(ctx,
		`UPDATE reviews SET rating = $2, comment = $3, updated_at = $4
		 WHERE id = $1
		 RETURNING `+reviewColumns,
		rv.ID, rv.Rating, rv.Comment, rv.UpdatedAt))
}

// DeleteReview removes a review owned by the user.
func (r *Repo) DeleteReview(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx,
		`DELETE FROM reviews WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReviewByUser loads the user's review for a course.
func (r *Repo) GetReviewByUser(ctx context.Context, courseID, userID uuid.UUID) (Review, error) {
	return scanReview(r.Pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE course_id = $1 AND user_id = $2`,
		courseID, userID))
}

// ListReviews returns reviews for a course, newest first, with the total count.
func (r *Repo) ListReviews(ctx context.Context, courseID uuid.UUID, limit, offset int32) ([]Review, int64, error) {
	var total int64
	if err := r.Pool.QueryRow(ctx,
		`SELECT count(*) FROM reviews WHERE course_id = $1`, courseID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE course_id = $1 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, courseID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	return out, total, rows.Err()
}
