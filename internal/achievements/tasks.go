package achievements

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names used on the asynq queue.
const (
	TaskCoursePurchased = "achievements:course_purchased"
	TaskQuizCompleted   = "achievements:quiz_completed"
)

// QueueName is the asynq queue the worker consumes.
const QueueName = "achievements"

// PurchaseEvent is emitted when a checkout completes.
type PurchaseEvent struct {
	UserID     uuid.UUID   `json:"user_id"`
	OrderID    uuid.UUID   `json:"order_id"`
	CourseIDs  []uuid.UUID `json:"course_ids"`
	Total      int64       `json:"total"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// QuizEvent is emitted when a quiz attempt is graded.
type QuizEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	QuizID     uuid.UUID `json:"quiz_id"`
	Score      float64   `json:"score"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Enqueuer publishes achievement events onto the asynq queue. A nil Client
// turns every publish into a no-op so callers never need to guard.
type Enqueuer struct {
	Client *asynq.Client
	Now    func() time.Time
}

func (e Enqueuer) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CoursePurchased enqueues a purchase event for background processing.
func (e Enqueuer) CoursePurchased(ctx context.Context, userID, orderID uuid.UUID, courseIDs []uuid.UUID, total int64) error {
	if e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(PurchaseEvent{
		UserID:     userID,
		OrderID:    orderID,
		CourseIDs:  courseIDs,
		Total:      total,
		OccurredAt: e.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal purchase event: %w", err)
	}
	_, err = e.Client.EnqueueContext(ctx, asynq.NewTask(TaskCoursePurchased, payload),
		asynq.Queue(QueueName), asynq.MaxRetry(5))
	return err
}

// QuizCompleted enqueues a quiz completion event.
func (e Enqueuer) QuizCompleted(ctx context.Context, userID, quizID uuid.UUID, score float64) error {
	if e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(QuizEvent{
		UserID:     userID,
		QuizID:     quizID,
		Score:      score,
		OccurredAt: e.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal quiz event: %w", err)
	}
	_, err = e.Client.EnqueueContext(ctx, asynq.NewTask(TaskQuizCompleted, payload),
		asynq.Queue(QueueName), asynq.MaxRetry(5))
	return err
}
