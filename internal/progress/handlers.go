package progress

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vietlearn/backend-academy/internal/common"
)

// Handler exposes progress endpoints.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

// MarkComplete handles POST /api/v1/progress/lectures/{lectureId}/complete.
func (h *Handler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "progress service not configured", nil)
		return
	}
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	lectureID, err := uuid.Parse(chi.URLParam(r, "lectureId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid lecture id", nil)
		return
	}
	if err := h.Svc.MarkComplete(r.Context(), userID, lectureID); err != nil {
		if errors.Is(err, ErrLectureNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "lecture not found", nil)
			return
		}
		h.Log.Error().Err(err).Msg("mark complete failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, nil, "lecture marked complete")
}

// CourseSummary handles GET /api/v1/progress/courses/{courseId}.
func (h *Handler) CourseSummary(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "progress service not configured", nil)
		return
	}
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := uuid.Parse(chi.URLParam(r, "courseId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	summary, err := h.Svc.CourseSummary(r.Context(), userID, courseID)
	if err != nil {
		h.Log.Error().Err(err).Msg("course summary failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, summary, "course progress")
}

// Routes mounts the progress endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/lectures/{lectureId}/complete", h.MarkComplete)
	r.Get("/courses/{courseId}", h.CourseSummary)
	return r
}

func requestUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invalid user id", nil)
		return uuid.Nil, false
	}
	return id, true
}
