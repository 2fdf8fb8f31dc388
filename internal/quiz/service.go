package quiz

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQuizNotFound is returned when no quiz matches the lookup.
var ErrQuizNotFound = errors.New("quiz not found")

// Quiz is the stored quiz row.
type Quiz struct {
	ID       uuid.UUID
	CourseID uuid.UUID
	Title    string
}

// Attempt is a persisted grading record.
type Attempt struct {
	ID           uuid.UUID
	QuizID       uuid.UUID
	UserID       uuid.UUID
	Score        float64
	CorrectCount int
	TotalCount   int
	CreatedAt    time.Time
}

// Querier captures the persistence methods required by the quiz service.
type Querier interface {
	GetQuizByID(ctx context.Context, id uuid.UUID) (Quiz, error)
	ListQuestions(ctx context.Context, quizID uuid.UUID) ([]Question, error)
	InsertAttempt(ctx context.Context, a Attempt) (Attempt, error)
	ListAttempts(ctx context.Context, quizID, userID uuid.UUID) ([]Attempt, error)
}

// Notifier publishes quiz completion events for achievement processing.
type Notifier interface {
	QuizCompleted(ctx context.Context, userID, quizID uuid.UUID, score float64) error
}

// Service encapsulates quiz grading and attempt persistence.
type Service struct {
	Q         Querier
	Notify    Notifier
	Precision int
	Now       func() time.Time
}

// Submit grades the answers, records the attempt, and publishes the
// completion event. Event publishing is best effort and never fails the
// submission.
func (s *Service) Submit(ctx context.Context, quizID, userID uuid.UUID, answers []Answer) (Attempt, GradeResult, error) {
	if s == nil || s.Q == nil {
		return Attempt{}, GradeResult{}, errors.New("quiz service not configured")
	}
	quiz, err := s.Q.GetQuizByID(ctx, quizID)
	if err != nil {
		return Attempt{}, GradeResult{}, err
	}
	questions, err := s.Q.ListQuestions(ctx, quiz.ID)
	if err != nil {
		return Attempt{}, GradeResult{}, err
	}
	if len(questions) == 0 {
		return Attempt{}, GradeResult{}, errors.New("quiz has no questions")
	}
	grade := Grade(questions, answers, s.precision())
	attempt, err := s.Q.InsertAttempt(ctx, Attempt{
		ID:           uuid.New(),
		QuizID:       quiz.ID,
		UserID:       userID,
		Score:        grade.Score,
		CorrectCount: grade.CorrectCount,
		TotalCount:   grade.TotalCount,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return Attempt{}, GradeResult{}, err
	}
	if s.Notify != nil {
		_ = s.Notify.QuizCompleted(ctx, userID, quiz.ID, grade.Score)
	}
	return attempt, grade, nil
}

// Attempts lists the user's attempts for a quiz, newest first.
func (s *Service) Attempts(ctx context.Context, quizID, userID uuid.UUID) ([]Attempt, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("quiz service not configured")
	}
	return s.Q.ListAttempts(ctx, quizID, userID)
}

func (s *Service) precision() int {
	if s != nil && s.Precision > 0 {
		return s.Precision
	}
	return 2
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
