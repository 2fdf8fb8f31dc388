package voucher

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vietlearn/backend-academy/internal/common"
	"github.com/vietlearn/backend-academy/internal/obs"
)

var validate = validator.New()

// Handler exposes voucher application and management endpoints.
type Handler struct {
	Svc   *Service
	Admin *Admin
	Log   zerolog.Logger
}

type applyRequest struct {
	Code      string   `json:"code" validate:"required"`
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,uuid"`
}

type applyAndSaveRequest struct {
	Code      string   `json:"code" validate:"required"`
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,uuid"`
	OrderID   string   `json:"orderId" validate:"required,uuid"`
}

type draftPayload struct {
	Code        string     `json:"code" validate:"required"`
	Description string     `json:"description"`
	Scope       string     `json:"scope" validate:"required,oneof=SITE_WIDE CATEGORY SPECIFIC_COURSES"`
	Type        string     `json:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value       int64      `json:"value" validate:"required,gt=0"`
	MaxDiscount *int64     `json:"maxDiscount"`
	StartDate   time.Time  `json:"startDate" validate:"required"`
	EndDate     time.Time  `json:"endDate" validate:"required"`
	MaxUsage    *int32     `json:"maxUsage"`
	CategoryID  *string    `json:"categoryId" validate:"omitempty,uuid"`
	CourseIDs   []string   `json:"courseIds" validate:"omitempty,dive,uuid"`
}

// Apply evaluates a voucher against the submitted course ids without side
// effects.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return
	}
	var req applyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	userID := requestUserID(r)
	courseIDs, err := parseUUIDs(req.CourseIDs)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	result, err := h.Svc.Resolve(r.Context(), req.Code, courseIDs, userID)
	if err != nil {
		obs.VoucherApplyTotal.WithLabelValues(applyOutcome(err)).Inc()
		h.writeError(w, r, err, "voucher apply rejected")
		return
	}
	obs.VoucherApplyTotal.WithLabelValues("applied").Inc()
	common.JSON(w, http.StatusOK, result, "voucher applied")
}

// ApplyAndSave evaluates the voucher and records its usage against an order
// in one request. Replaying the same order id is a no-op.
func (h *Handler) ApplyAndSave(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return
	}
	var req applyAndSaveRequest
	if err := decodeAndValidate(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	userID := requestUserID(r)
	courseIDs, err := parseUUIDs(req.CourseIDs)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid course id", nil)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid order id", nil)
		return
	}
	result, err := h.Svc.Resolve(r.Context(), req.Code, courseIDs, userID)
	if err != nil {
		obs.VoucherApplyTotal.WithLabelValues(applyOutcome(err)).Inc()
		h.writeError(w, r, err, "voucher apply rejected")
		return
	}
	if err := h.Svc.Commit(r.Context(), req.Code, userID, orderID); err != nil {
		obs.VoucherCommitTotal.WithLabelValues("error").Inc()
		h.writeError(w, r, err, "voucher commit failed")
		return
	}
	obs.VoucherCommitTotal.WithLabelValues("committed").Inc()
	common.JSON(w, http.StatusOK, result, "voucher applied and saved")
}

// ActiveSiteVoucher lists currently redeemable SITE_WIDE vouchers.
func (h *Handler) ActiveSiteVoucher(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return
	}
	vouchers, err := h.Svc.ActiveSiteVouchers(r.Context())
	if err != nil {
		h.writeError(w, r, err, "list active vouchers failed")
		return
	}
	out := make([]View, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, NewView(v))
	}
	common.JSON(w, http.StatusOK, out, "active site-wide vouchers")
}

// Create registers a new voucher owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher admin not configured", nil)
		return
	}
	var payload draftPayload
	if err := decodeAndValidate(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	draft, err := payload.toDraft()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	stored, err := h.Admin.Create(r.Context(), requestActor(r), draft)
	if err != nil {
		h.writeError(w, r, err, "create voucher failed")
		return
	}
	common.JSON(w, http.StatusCreated, NewView(stored), "voucher created")
}

// Update replaces the rule fields of an owned voucher.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher admin not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid voucher id", nil)
		return
	}
	var payload draftPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(payload.Code) == "" {
		// code is immutable on update; the service keeps the stored one
		payload.Code = "-"
	}
	if err := validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	draft, err := payload.toDraft()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	stored, err := h.Admin.Update(r.Context(), requestActor(r), id, draft)
	if err != nil {
		h.writeError(w, r, err, "update voucher failed")
		return
	}
	common.JSON(w, http.StatusOK, NewView(stored), "voucher updated")
}

// ToggleActive flips the active flag of an owned voucher.
func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher admin not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid voucher id", nil)
		return
	}
	stored, err := h.Admin.ToggleActive(r.Context(), requestActor(r), id)
	if err != nil {
		h.writeError(w, r, err, "toggle voucher failed")
		return
	}
	common.JSON(w, http.StatusOK, NewView(stored), "voucher toggled")
}

// Delete removes an owned voucher.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher admin not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid voucher id", nil)
		return
	}
	if err := h.Admin.Delete(r.Context(), requestActor(r), id); err != nil {
		h.writeError(w, r, err, "delete voucher failed")
		return
	}
	common.JSON(w, http.StatusOK, nil, "voucher deleted")
}

// List returns the caller's vouchers, or every voucher for admins.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher admin not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	vouchers, err := h.Admin.List(r.Context(), requestActor(r), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		h.writeError(w, r, err, "list vouchers failed")
		return
	}
	out := make([]View, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, NewView(v))
	}
	common.JSON(w, http.StatusOK, out, "vouchers listed")
}

// View is the outward representation of a voucher.
type View struct {
	ID           uuid.UUID    `json:"id"`
	Code         string       `json:"code"`
	Description  string       `json:"description,omitempty"`
	Scope        Scope        `json:"scope"`
	Type         DiscountType `json:"type"`
	Value        int64        `json:"value"`
	MaxDiscount  *int64       `json:"maxDiscount,omitempty"`
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`
	MaxUsage     *int32       `json:"maxUsage,omitempty"`
	CurrentUsage int32        `json:"currentUsage"`
	IsActive     bool         `json:"isActive"`
	CategoryID   *uuid.UUID   `json:"categoryId,omitempty"`
	CourseIDs    []uuid.UUID  `json:"courseIds,omitempty"`
}

// NewView maps a voucher onto its response shape.
func NewView(v Voucher) View {
	return View{
		ID:           v.ID,
		Code:         v.Code,
		Description:  v.Description,
		Scope:        v.Scope,
		Type:         v.Type,
		Value:        v.Value,
		MaxDiscount:  v.MaxDiscount,
		StartDate:    v.StartDate,
		EndDate:      v.EndDate,
		MaxUsage:     v.MaxUsage,
		CurrentUsage: v.CurrentUsage,
		IsActive:     v.IsActive,
		CategoryID:   v.CategoryID,
		CourseIDs:    v.CourseIDs,
	}
}

func (p draftPayload) toDraft() (Draft, error) {
	d := Draft{
		Code:        p.Code,
		Description: p.Description,
		Scope:       Scope(p.Scope),
		Type:        DiscountType(p.Type),
		Value:       p.Value,
		MaxDiscount: p.MaxDiscount,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		MaxUsage:    p.MaxUsage,
	}
	if p.CategoryID != nil && strings.TrimSpace(*p.CategoryID) != "" {
		parsed, err := uuid.Parse(*p.CategoryID)
		if err != nil {
			return Draft{}, err
		}
		d.CategoryID = &parsed
	}
	ids, err := parseUUIDs(p.CourseIDs)
	if err != nil {
		return Draft{}, err
	}
	d.CourseIDs = ids
	return d, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	if code, status, ok := ReasonCode(err); ok {
		common.JSONError(w, status, code, err.Error(), nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "you do not own this voucher", nil)
	case errors.Is(err, ErrDuplicateCode):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "voucher code already exists", nil)
	default:
		h.Log.Error().Err(err).Str("path", r.URL.Path).Msg(logMsg)
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func applyOutcome(err error) string {
	if _, _, ok := ReasonCode(err); ok {
		return "rejected"
	}
	return "error"
}

func decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid payload")
	}
	return validate.Struct(v)
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		parsed, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func requestUserID(r *http.Request) uuid.UUID {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return uuid.Nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return parsed
}

func requestActor(r *http.Request) Actor {
	actor := Actor{UserID: requestUserID(r)}
	if common.HasRole(r.Context(), RoleAdmin) {
		actor.Role = RoleAdmin
	} else if roles := common.Roles(r.Context()); len(roles) > 0 {
		actor.Role = roles[0]
	}
	return actor
}

// Routes mounts the voucher endpoints on a chi router. requireAuth guards the
// user-scoped operations, requireManager the administrative ones.
func (h *Handler) Routes(requireAuth, requireManager func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/apply", h.Apply)
	r.Get("/active-site-voucher", h.ActiveSiteVoucher)
	r.With(requireAuth).Post("/apply-and-save-db", h.ApplyAndSave)
	r.Group(func(admin chi.Router) {
		admin.Use(requireManager)
		admin.Get("/", h.List)
		admin.Post("/create-voucher", h.Create)
		admin.Put("/{id}", h.Update)
		admin.Patch("/{id}/toggle-active", h.ToggleActive)
		admin.Delete("/{id}", h.Delete)
	})
	return r
}
