package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vietlearn/backend-academy/internal/common"
	"github.com/vietlearn/backend-academy/internal/voucher"
)

// Handler exposes cart endpoints. Carts work for both authenticated users and
// anonymous visitors carrying an X-Anon-Id header.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

type addItemRequest struct {
	CourseID string `json:"courseId"`
}

type applyVoucherRequest struct {
	Code string `json:"code"`
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ensureCart(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.BuildView(r.Context(), cart.ID, userIDOrNil(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view, "cart")
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ensureCart(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return
	}
	courseID, err := uuid.Parse(strings.TrimSpace(req.CourseID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	if err := h.Svc.AddCourse(r.Context(), cart.ID, courseID); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.BuildView(r.Context(), cart.ID, userIDOrNil(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, view, "course added to cart")
}

// RemoveItem handles DELETE /api/v1/cart/items/{courseId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ensureCart(w, r)
	if !ok {
		return
	}
	courseID, err := uuid.Parse(chi.URLParam(r, "courseId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	if err := h.Svc.RemoveCourse(r.Context(), cart.ID, courseID); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.BuildView(r.Context(), cart.ID, userIDOrNil(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view, "course removed from cart")
}

// ApplyVoucher handles POST /api/v1/cart/apply-voucher.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ensureCart(w, r)
	if !ok {
		return
	}
	var req applyVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return
	}
	view, err := h.Svc.ApplyVoucher(r.Context(), cart.ID, req.Code, userIDOrNil(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view, "voucher applied to cart")
}

// RemoveVoucher handles DELETE /api/v1/cart/voucher.
func (h *Handler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.ensureCart(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveVoucher(r.Context(), cart.ID); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.BuildView(r.Context(), cart.ID, userIDOrNil(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view, "voucher removed from cart")
}

// Routes mounts the cart endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Post("/items", h.AddItem)
	r.Delete("/items/{courseId}", h.RemoveItem)
	r.Post("/apply-voucher", h.ApplyVoucher)
	r.Delete("/voucher", h.RemoveVoucher)
	return r
}

func (h *Handler) ensureCart(w http.ResponseWriter, r *http.Request) (Cart, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return Cart{}, false
	}
	var userID *uuid.UUID
	if id := userIDOrNil(r); id != uuid.Nil {
		userID = &id
	}
	var anonID *string
	if v := strings.TrimSpace(r.Header.Get("X-Anon-Id")); v != "" {
		anonID = &v
	}
	cart, err := h.Svc.EnsureCart(r.Context(), userID, anonID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "authentication or X-Anon-Id header required", nil)
			return Cart{}, false
		}
		h.writeError(w, err)
		return Cart{}, false
	}
	return cart, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if code, status, ok := voucher.ReasonCode(err); ok {
		common.JSONError(w, status, code, err.Error(), nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrAlreadyInCart):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "course already in cart", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart entry not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		h.Log.Error().Err(err).Msg("cart request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func userIDOrNil(r *http.Request) uuid.UUID {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
