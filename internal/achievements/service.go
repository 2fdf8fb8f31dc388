package achievements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoStreak indicates the user has no streak row yet.
var ErrNoStreak = errors.New("streak not found")

// Summary holds the lifetime counters for one user.
type Summary struct {
	UserID           uuid.UUID `json:"user_id"`
	CoursesPurchased int       `json:"courses_purchased"`
	QuizzesCompleted int       `json:"quizzes_completed"`
	PerfectScores    int       `json:"perfect_scores"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Streak tracks consecutive active days. LastActive is a UTC date.
type Streak struct {
	UserID     uuid.UUID `json:"user_id"`
	Current    int       `json:"current"`
	Longest    int       `json:"longest"`
	LastActive time.Time `json:"last_active"`
}

// Querier captures the persistence the achievement service needs.
type Querier interface {
	AddCounters(ctx context.Context, userID uuid.UUID, courses, quizzes, perfect int) error
	GetSummary(ctx context.Context, userID uuid.UUID) (Summary, error)
	GetStreak(ctx context.Context, userID uuid.UUID) (Streak, error)
	UpsertStreak(ctx context.Context, s Streak) error
}

// Service applies achievement events to counters and streaks.
type Service struct {
	Q   Querier
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// HandleCoursePurchased credits purchased courses and marks the day active.
func (s *Service) HandleCoursePurchased(ctx context.Context, ev PurchaseEvent) error {
	if s.Q == nil {
		return errors.New("achievements: store not configured")
	}
	if err := s.Q.AddCounters(ctx, ev.UserID, len(ev.CourseIDs), 0, 0); err != nil {
		return fmt.Errorf("add purchase counters: %w", err)
	}
	return s.touchStreak(ctx, ev.UserID, ev.OccurredAt)
}

// HandleQuizCompleted credits a graded attempt and marks the day active.
// A score of 100 also counts as a perfect score.
func (s *Service) HandleQuizCompleted(ctx context.Context, ev QuizEvent) error {
	if s.Q == nil {
		return errors.New("achievements: store not configured")
	}
	perfect := 0
	if ev.Score >= 100 {
		perfect = 1
	}
	if err := s.Q.AddCounters(ctx, ev.UserID, 0, 1, perfect); err != nil {
		return fmt.Errorf("add quiz counters: %w", err)
	}
	return s.touchStreak(ctx, ev.UserID, ev.OccurredAt)
}

// Progress returns the counters and streak for one user. Users with no
// activity yet get zero values rather than an error.
func (s *Service) Progress(ctx context.Context, userID uuid.UUID) (Summary, Streak, error) {
	if s.Q == nil {
		return Summary{}, Streak{}, errors.New("achievements: store not configured")
	}
	summary, err := s.Q.GetSummary(ctx, userID)
	if err != nil {
		return Summary{}, Streak{}, err
	}
	streak, err := s.Q.GetStreak(ctx, userID)
	if errors.Is(err, ErrNoStreak) {
		streak = Streak{UserID: userID}
		err = nil
	}
	return summary, streak, err
}

// touchStreak advances the daily streak. A day counts at most once; a gap of
// more than one UTC day resets the run.
func (s *Service) touchStreak(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if at.IsZero() {
		at = s.now()
	}
	day := utcDay(at)

	streak, err := s.Q.GetStreak(ctx, userID)
	if errors.Is(err, ErrNoStreak) {
		return s.Q.UpsertStreak(ctx, Streak{UserID: userID, Current: 1, Longest: 1, LastActive: day})
	}
	if err != nil {
		return err
	}

	last := utcDay(streak.LastActive)
	switch {
	case day.Equal(last):
		return nil
	case day.Equal(last.AddDate(0, 0, 1)):
		streak.Current++
	case day.Before(last):
		// Late or replayed event, the streak already moved past this day.
		return nil
	default:
		streak.Current = 1
	}
	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}
	streak.LastActive = day
	return s.Q.UpsertStreak(ctx, streak)
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
