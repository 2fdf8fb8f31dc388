package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the review does not exist.
var ErrNotFound = errors.New("review not found")

// ErrAlreadyReviewed indicates the user has already reviewed the course.
var ErrAlreadyReviewed = errors.New("course already reviewed by user")

// ErrInvalidRating indicates the rating is outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Review is a stored course review.
type Review struct {
	ID        uuid.UUID `json:"id"`
	CourseID  uuid.UUID `json:"courseId"`
	UserID    uuid.UUID `json:"userId"`
	Rating    int16     `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Querier captures the persistence methods required by the reviews service.
type Querier interface {
	CreateReview(ctx context.Context, rv Review) (Review, error)
	UpdateReview(ctx context.Context, rv Review) (Review, error)
	DeleteReview(ctx context.Context, id, userID uuid.UUID) error
	GetReviewByUser(ctx context.Context, courseID, userID uuid.UUID) (Review, error)
	ListReviews(ctx context.Context, courseID uuid.UUID, limit, offset int32) ([]Review, int64, error)
}

// Service encapsulates course review operations. One review per user per
// course; writing again updates the existing review.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Write creates or updates the caller's review for a course.
func (s *Service) Write(ctx context.Context, courseID, userID uuid.UUID, rating int16, comment string) (Review, error) {
	if s == nil || s.Q == nil {
		return Review{}, errors.New("reviews service not configured")
	}
	if rating < 1 || rating > 5 {
		return Review{}, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	now := s.now()

	existing, err := s.Q.GetReviewByUser(ctx, courseID, userID)
	if err == nil {
		existing.Rating = rating
		existing.Comment = comment
		existing.UpdatedAt = now
		return s.Q.UpdateReview(ctx, existing)
	}
	if !errors.Is(err, ErrNotFound) {
		return Review{}, err
	}
	return s.Q.CreateReview(ctx, Review{
		ID:        uuid.New(),
		CourseID:  courseID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Delete removes the caller's review.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("reviews service not configured")
	}
	return s.Q.DeleteReview(ctx, id, userID)
}

// List returns reviews for a course, newest first.
func (s *Service) List(ctx context.Context, courseID uuid.UUID, limit, offset int32) ([]Review, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("reviews service not configured")
	}
	return s.Q.ListReviews(ctx, courseID, limit, offset)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
