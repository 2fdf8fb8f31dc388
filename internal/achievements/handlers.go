package achievements

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vietlearn/backend-academy/internal/common"
)

// Worker consumes achievement tasks from the asynq queue.
type Worker struct {
	Svc *Service
	Log zerolog.Logger
}

// Register mounts the task handlers on an asynq mux.
func (w Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskCoursePurchased, w.handleCoursePurchased)
	mux.HandleFunc(TaskQuizCompleted, w.handleQuizCompleted)
}

func (w Worker) handleCoursePurchased(ctx context.Context, t *asynq.Task) error {
	var ev PurchaseEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		// A malformed payload will never parse on retry.
		w.Log.Error().Err(err).Str("task", t.Type()).Msg("drop malformed payload")
		return fmt.Errorf("unmarshal purchase event: %w: %w", err, asynq.SkipRetry)
	}
	if err := w.Svc.HandleCoursePurchased(ctx, ev); err != nil {
		w.Log.Error().Err(err).Stringer("user_id", ev.UserID).Msg("course purchased task failed")
		return err
	}
	w.Log.Info().Stringer("user_id", ev.UserID).Int("courses", len(ev.CourseIDs)).Msg("purchase credited")
	return nil
}

func (w Worker) handleQuizCompleted(ctx context.Context, t *asynq.Task) error {
	var ev QuizEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		w.Log.Error().Err(err).Str("task", t.Type()).Msg("drop malformed payload")
		return fmt.Errorf("unmarshal quiz event: %w: %w", err, asynq.SkipRetry)
	}
	if err := w.Svc.HandleQuizCompleted(ctx, ev); err != nil {
		w.Log.Error().Err(err).Stringer("user_id", ev.UserID).Msg("quiz completed task failed")
		return err
	}
	return nil
}

// Handler exposes the read side over HTTP.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

type progressView struct {
	Summary Summary `json:"summary"`
	Streak  Streak  `json:"streak"`
}

// Me handles GET /api/v1/achievements.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	summary, streak, err := h.Svc.Progress(r.Context(), userID)
	if err != nil {
		h.Log.Error().Err(err).Msg("load achievements")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, progressView{Summary: summary, Streak: streak}, "achievements")
}

// Routes mounts the achievement endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Me)
	return r
}
