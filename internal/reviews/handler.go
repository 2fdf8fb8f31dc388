package reviews

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vietlearn/backend-academy/internal/common"
)

// Handler exposes review endpoints.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

type writeRequest struct {
	Rating  int16  `json:"rating"`
	Comment string `json:"comment"`
}

// List handles GET /api/v1/courses/{courseId}/reviews.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reviews service not configured", nil)
		return
	}
	courseID, err := uuid.Parse(chi.URLParam(r, "courseId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	list, total, err := h.Svc.List(r.Context(), courseID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		h.Log.Error().Err(err).Msg("list reviews failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"items":      list,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	}, "reviews listed")
}

// Write handles PUT /api/v1/courses/{courseId}/reviews.
func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reviews service not configured", nil)
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
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return
	}
	review, err := h.Svc.Write(r.Context(), courseID, userID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRating):
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		case errors.Is(err, ErrAlreadyReviewed):
			common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
		default:
			h.Log.Error().Err(err).Msg("write review failed")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, review, "review saved")
}

// Delete handles DELETE /api/v1/reviews/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reviews service not configured", nil)
		return
	}
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid review id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "review not found", nil)
			return
		}
		h.Log.Error().Err(err).Msg("delete review failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, nil, "review deleted")
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
