package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vietlearn/backend-academy/internal/cart"
	"github.com/vietlearn/backend-academy/internal/common"
	"github.com/vietlearn/backend-academy/internal/obs"
	"github.com/vietlearn/backend-academy/internal/voucher"
)

// Handler exposes checkout and order endpoints.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

type checkoutRequest struct {
	CartID string `json:"cartId"`
}

// Create handles POST /api/v1/checkout.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	userID, ok := requestUserID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return
	}
	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart id", nil)
		return
	}

	out, err := h.Svc.Create(r.Context(), userID, cartID)
	if err != nil {
		obs.CheckoutTotal.WithLabelValues("rejected").Inc()
		h.writeError(w, err)
		return
	}
	obs.CheckoutTotal.WithLabelValues("created").Inc()
	common.JSON(w, http.StatusCreated, out, "order created")
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid order id", nil)
		return
	}
	order, items, err := h.Svc.GetOrder(r.Context(), orderID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"order": order, "items": items}, "order")
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	orders, err := h.Svc.ListOrders(r.Context(), userID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, orders, "orders")
}

// Routes mounts the checkout endpoint on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	return r
}

// OrderRoutes mounts the order read endpoints on a chi router.
func (h *Handler) OrderRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if code, status, ok := voucher.ReasonCode(err); ok {
		common.JSONError(w, status, code, err.Error(), nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	if errors.Is(err, ErrOrderNotFound) {
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		return
	}
	if errors.Is(err, cart.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
		return
	}
	h.Log.Error().Err(err).Msg("checkout failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

func requestUserID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
