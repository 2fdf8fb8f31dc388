package progress

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrLectureNotFound is returned when no lecture matches the lookup.
var ErrLectureNotFound = errors.New("lecture not found")

// Lecture is the minimal lecture shape needed for progress weighting.
type Lecture struct {
	ID              uuid.UUID
	CourseID        uuid.UUID
	DurationSeconds int32
}

// Querier captures the persistence methods required by the progress service.
type Querier interface {
	GetLectureByID(ctx context.Context, id uuid.UUID) (Lecture, error)
	ListLectures(ctx context.Context, courseID uuid.UUID) ([]Lecture, error)
	ListCompletedLectureIDs(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error)
	UpsertCompletion(ctx context.Context, userID, lectureID uuid.UUID, completedAt time.Time) error
}

// Summary is the aggregated course progress payload.
type Summary struct {
	CourseID          uuid.UUID `json:"courseId"`
	CompletedLectures int       `json:"completedLectures"`
	TotalLectures     int       `json:"totalLectures"`
	Percent           float64   `json:"percent"`
}

// Service aggregates per-lecture completion into course progress.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// MarkComplete records a lecture as completed. Re-marking is a no-op.
func (s *Service) MarkComplete(ctx context.Context, userID, lectureID uuid.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("progress service not configured")
	}
	if _, err := s.Q.GetLectureByID(ctx, lectureID); err != nil {
		return err
	}
	return s.Q.UpsertCompletion(ctx, userID, lectureID, s.now())
}

// CourseSummary computes duration-weighted completion for a course. Lectures
// with no recorded duration weigh 1 so they still count.
func (s *Service) CourseSummary(ctx context.Context, userID, courseID uuid.UUID) (Summary, error) {
	if s == nil || s.Q == nil {
		return Summary{}, errors.New("progress service not configured")
	}
	lectures, err := s.Q.ListLectures(ctx, courseID)
	if err != nil {
		return Summary{}, err
	}
	completed, err := s.Q.ListCompletedLectureIDs(ctx, userID, courseID)
	if err != nil {
		return Summary{}, err
	}
	done := make(map[uuid.UUID]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}

	var totalWeight, doneWeight float64
	summary := Summary{CourseID: courseID, TotalLectures: len(lectures)}
	for _, l := range lectures {
		weight := float64(l.DurationSeconds)
		if weight <= 0 {
			weight = 1
		}
		totalWeight += weight
		if _, ok := done[l.ID]; ok {
			doneWeight += weight
			summary.CompletedLectures++
		}
	}
	if totalWeight > 0 {
		summary.Percent = math.Round(doneWeight/totalWeight*10000) / 100
	}
	return summary, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
