package quiz

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vietlearn/backend-academy/internal/common"
	"github.com/vietlearn/backend-academy/internal/obs"
)

// Handler exposes quiz endpoints.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

type submitRequest struct {
	Answers []submitAnswer `json:"answers"`
}

type submitAnswer struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

type attemptView struct {
	ID           uuid.UUID `json:"id"`
	Score        float64   `json:"score"`
	CorrectCount int       `json:"correctCount"`
	TotalCount   int       `json:"totalCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Submit handles POST /api/v1/quizzes/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quiz service not configured", nil)
		return
	}
	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid quiz id", nil)
		return
	}
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invalid user id", nil)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return
	}
	answers, err := toAnswers(req.Answers)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	attempt, grade, err := h.Svc.Submit(r.Context(), quizID, userID, answers)
	if err != nil {
		if errors.Is(err, ErrQuizNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "quiz not found", nil)
			return
		}
		h.Log.Error().Err(err).Str("quiz_id", quizID.String()).Msg("quiz submit failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	obs.QuizAttemptTotal.Inc()
	common.JSON(w, http.StatusOK, map[string]any{
		"attemptId": attempt.ID,
		"grade":     grade,
	}, "quiz graded")
}

// Attempts handles GET /api/v1/quizzes/{id}/attempts.
func (h *Handler) Attempts(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quiz service not configured", nil)
		return
	}
	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid quiz id", nil)
		return
	}
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invalid user id", nil)
		return
	}
	attempts, err := h.Svc.Attempts(r.Context(), quizID, userID)
	if err != nil {
		h.Log.Error().Err(err).Msg("list attempts failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	out := make([]attemptView, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptView{
			ID: a.ID, Score: a.Score, CorrectCount: a.CorrectCount,
			TotalCount: a.TotalCount, CreatedAt: a.CreatedAt,
		})
	}
	common.JSON(w, http.StatusOK, out, "attempts listed")
}

// Routes mounts the quiz endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/submit", h.Submit)
	r.Get("/{id}/attempts", h.Attempts)
	return r
}

func toAnswers(in []submitAnswer) ([]Answer, error) {
	out := make([]Answer, 0, len(in))
	for _, a := range in {
		questionID, err := uuid.Parse(a.QuestionID)
		if err != nil {
			return nil, errors.New("invalid question id")
		}
		selected := make([]uuid.UUID, 0, len(a.SelectedOptionIDs))
		for _, raw := range a.SelectedOptionIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, errors.New("invalid option id")
			}
			selected = append(selected, id)
		}
		out = append(out, Answer{QuestionID: questionID, SelectedOptionIDs: selected})
	}
	return out, nil
}
