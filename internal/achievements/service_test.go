package achievements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memStore struct {
	summaries map[uuid.UUID]Summary
	streaks   map[uuid.UUID]Streak
}

func newMemStore() *memStore {
	return &memStore{summaries: map[uuid.UUID]Summary{}, streaks: map[uuid.UUID]Streak{}}
}

func (m *memStore) AddCounters(_ context.Context, userID uuid.UUID, courses, quizzes, perfect int) error {
	s := m.summaries[userID]
	s.UserID = userID
	s.CoursesPurchased += courses
	s.QuizzesCompleted += quizzes
	s.PerfectScores += perfect
	m.summaries[userID] = s
	return nil
}

func (m *memStore) GetSummary(_ context.Context, userID uuid.UUID) (Summary, error) {
	s, ok := m.summaries[userID]
	if !ok {
		return Summary{UserID: userID}, nil
	}
	return s, nil
}

func (m *memStore) GetStreak(_ context.Context, userID uuid.UUID) (Streak, error) {
	s, ok := m.streaks[userID]
	if !ok {
		return Streak{}, ErrNoStreak
	}
	return s, nil
}

func (m *memStore) UpsertStreak(_ context.Context, s Streak) error {
	m.streaks[s.UserID] = s
	return nil
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}

func TestPurchaseIncrementsCounters(t *testing.T) {
	store := newMemStore()
	svc := &Service{Q: store}
	userID := uuid.New()

	err := svc.HandleCoursePurchased(context.Background(), PurchaseEvent{
		UserID:     userID,
		OrderID:    uuid.New(),
		CourseIDs:  []uuid.UUID{uuid.New(), uuid.New()},
		OccurredAt: day(t, "2026-03-01T10:00:00Z"),
	})
	if err != nil {
		t.Fatalf("HandleCoursePurchased: %v", err)
	}

	summary, streak, err := svc.Progress(context.Background(), userID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if summary.CoursesPurchased != 2 {
		t.Fatalf("CoursesPurchased = %d, want 2", summary.CoursesPurchased)
	}
	if streak.Current != 1 || streak.Longest != 1 {
		t.Fatalf("streak = %+v, want current 1 longest 1", streak)
	}
}

func TestQuizPerfectScoreCounted(t *testing.T) {
	store := newMemStore()
	svc := &Service{Q: store}
	userID := uuid.New()
	ctx := context.Background()

	events := []QuizEvent{
		{UserID: userID, QuizID: uuid.New(), Score: 100, OccurredAt: day(t, "2026-03-01T08:00:00Z")},
		{UserID: userID, QuizID: uuid.New(), Score: 66.67, OccurredAt: day(t, "2026-03-01T09:00:00Z")},
	}
	for _, ev := range events {
		if err := svc.HandleQuizCompleted(ctx, ev); err != nil {
			t.Fatalf("HandleQuizCompleted: %v", err)
		}
	}

	summary, _, err := svc.Progress(ctx, userID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if summary.QuizzesCompleted != 2 {
		t.Fatalf("QuizzesCompleted = %d, want 2", summary.QuizzesCompleted)
	}
	if summary.PerfectScores != 1 {
		t.Fatalf("PerfectScores = %d, want 1", summary.PerfectScores)
	}
}

func TestStreakCountsDayOnce(t *testing.T) {
	store := newMemStore()
	svc := &Service{Q: store}
	userID := uuid.New()
	ctx := context.Background()

	for _, at := range []string{"2026-03-01T01:00:00Z", "2026-03-01T12:00:00Z", "2026-03-01T23:59:00Z"} {
		ev := QuizEvent{UserID: userID, QuizID: uuid.New(), Score: 80, OccurredAt: day(t, at)}
		if err := svc.HandleQuizCompleted(ctx, ev); err != nil {
			t.Fatalf("HandleQuizCompleted: %v", err)
		}
	}

	streak := store.streaks[userID]
	if streak.Current != 1 {
		t.Fatalf("Current = %d, want 1 after same-day activity", streak.Current)
	}
}

func TestStreakConsecutiveDays(t *testing.T) {
	store := newMemStore()
	svc := &Service{Q: store}
	userID := uuid.New()
	ctx := context.Background()

	for _, at := range []string{"2026-03-01T10:00:00Z", "2026-03-02T10:00:00Z", "2026-03-03T10:00:00Z"} {
		ev := QuizEvent{UserID: userID, QuizID: uuid.New(), Score: 80, OccurredAt: day(t, at)}
		if err := svc.HandleQuizCompleted(ctx, ev); err != nil {
			t.Fatalf("HandleQuizCompleted: %v", err)
		}
	}

	streak := store.streaks[userID]
	if streak.Current != 3 || streak.Longest != 3 {
		t.Fatalf("streak = %+v, want current 3 longest 3", streak)
	}
}

func TestStreakResetsAfterGap(t *testing.T) {
	store := newMemStore()
	svc := &Service{Q: store}
	userID := uuid.New()
	ctx := context.Background()

	for _, at := range []string{"2026-03-01T10:00:00Z", "2026-03-02T10:00:00Z", "2026-03-05T10:00:00Z"} {
		ev := QuizEvent{UserID: userID, QuizID: uuid.New(), Score: 80, OccurredAt: day(t, at)}
		if err := svc.HandleQuizCompleted(ctx, ev); err != nil {
			t.Fatalf("HandleQuizCompleted: %v", err)
		}
	}

	streak := store.streaks[userID]
	if streak.Current != 1 {
		t.Fatalf("Current = %d, want 1 after gap", streak.Current)
	}
	if streak.Longest != 2 {
		t.Fatalf("Longest = %d, want 2", streak.Longest)
	}
}

func TestLateEventDoesNotRewindStreak(t *testing.T) {
	store := newMemStore()
	svc := &Service{Q: store}
	userID := uuid.New()
	ctx := context.Background()

	for _, at := range []string{"2026-03-02T10:00:00Z", "2026-03-01T10:00:00Z"} {
		ev := QuizEvent{UserID: userID, QuizID: uuid.New(), Score: 80, OccurredAt: day(t, at)}
		if err := svc.HandleQuizCompleted(ctx, ev); err != nil {
			t.Fatalf("HandleQuizCompleted: %v", err)
		}
	}

	streak := store.streaks[userID]
	if !streak.LastActive.Equal(day(t, "2026-03-02T00:00:00Z")) {
		t.Fatalf("LastActive = %v, want 2026-03-02", streak.LastActive)
	}
	if streak.Current != 1 {
		t.Fatalf("Current = %d, want 1", streak.Current)
	}
}
