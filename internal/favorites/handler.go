package favorites

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vietlearn/backend-academy/internal/common"
)

// Handler exposes favorites endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/favorites.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	ids, err := h.Svc.List(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list favorites", nil)
		return
	}
	common.JSON(w, http.StatusOK, ids, "favorites listed")
}

// Toggle handles POST /api/v1/favorites/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req struct {
		CourseID string `json:"courseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	favorited, err := h.Svc.Toggle(r.Context(), userID, courseID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to toggle favorite", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"favorited": favorited}, "favorite toggled")
}

// Check handles GET /api/v1/favorites/{courseId}.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSON(w, http.StatusOK, map[string]bool{"favorited": false}, "not favorited")
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invalid user id", nil)
		return
	}
	favorited, err := h.Svc.Check(r.Context(), userID, courseID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to check favorite", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"favorited": favorited}, "favorite state")
}

// Routes mounts the favorites endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/toggle", h.Toggle)
	r.Get("/{courseId}", h.Check)
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
