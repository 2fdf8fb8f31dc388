package voucher

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietlearn/backend-academy/internal/common"
)

// AdminStore captures the persistence methods for voucher management.
type AdminStore interface {
	GetVoucherByID(ctx context.Context, id uuid.UUID) (Voucher, error)
	CreateVoucher(ctx context.Context, v Voucher) (Voucher, error)
	UpdateVoucher(ctx context.Context, v Voucher) (Voucher, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Voucher, error)
	DeleteVoucher(ctx context.Context, id uuid.UUID) error
	ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int32) ([]Voucher, error)
	ListAll(ctx context.Context, limit, offset int32) ([]Voucher, error)
}

// Actor identifies who is performing a management operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// RoleAdmin may manage any voucher. Other roles manage only their own.
const RoleAdmin = "admin"

// ErrForbidden is returned when the actor does not own the voucher.
var ErrForbidden = errors.New("voucher not owned by actor")

// Admin implements the voucher management operations.
type Admin struct {
	Store AdminStore
	Now   func() time.Time
}

// Draft carries the mutable fields of a voucher create or update.
type Draft struct {
	Code        string
	Description string
	Scope       Scope
	Type        DiscountType
	Value       int64
	MaxDiscount *int64
	StartDate   time.Time
	EndDate     time.Time
	MaxUsage    *int32
	CategoryID  *uuid.UUID
	CourseIDs   []uuid.UUID
}

func (d Draft) check() error {
	msg := ""
	switch {
	case strings.TrimSpace(d.Code) == "":
		msg = "code is required"
	case d.Scope != ScopeSiteWide && d.Scope != ScopeCategory && d.Scope != ScopeSpecificCourses:
		msg = "invalid scope"
	case d.Type != DiscountPercentage && d.Type != DiscountFixed:
		msg = "invalid discount type"
	case d.Value <= 0:
		msg = "value must be positive"
	case d.Type == DiscountPercentage && d.Value > 100:
		msg = "percentage value must not exceed 100"
	case d.MaxDiscount != nil && *d.MaxDiscount <= 0:
		msg = "max discount must be positive"
	case !d.EndDate.After(d.StartDate):
		msg = "end date must be after start date"
	case d.MaxUsage != nil && *d.MaxUsage <= 0:
		msg = "max usage must be positive"
	case d.Scope == ScopeCategory && d.CategoryID == nil:
		msg = "category id is required for CATEGORY scope"
	case d.Scope == ScopeSpecificCourses && len(d.CourseIDs) == 0:
		msg = "course ids are required for SPECIFIC_COURSES scope"
	}
	if msg != "" {
		return common.NewAppError("VALIDATION_ERROR", msg, http.StatusBadRequest, nil)
	}
	return nil
}

// Create stores a new voucher owned by the actor. Vouchers start active.
func (a *Admin) Create(ctx context.Context, actor Actor, d Draft) (Voucher, error) {
	if a == nil || a.Store == nil {
		return Voucher{}, errors.New("voucher admin not configured")
	}
	if err := d.check(); err != nil {
		return Voucher{}, err
	}
	creatorID := actor.UserID
	v := Voucher{
		Code:        strings.ToUpper(strings.TrimSpace(d.Code)),
		Description: d.Description,
		Scope:       d.Scope,
		Type:        d.Type,
		Value:       d.Value,
		MaxDiscount: d.MaxDiscount,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		MaxUsage:    d.MaxUsage,
		IsActive:    true,
		CreatorID:   &creatorID,
		CreatorRole: actor.Role,
		CategoryID:  d.CategoryID,
		CourseIDs:   d.CourseIDs,
	}
	return a.Store.CreateVoucher(ctx, v)
}

// Update replaces the rule fields of a voucher the actor owns. The code is
// immutable once issued.
func (a *Admin) Update(ctx context.Context, actor Actor, id uuid.UUID, d Draft) (Voucher, error) {
	if a == nil || a.Store == nil {
		return Voucher{}, errors.New("voucher admin not configured")
	}
	existing, err := a.authorize(ctx, actor, id)
	if err != nil {
		return Voucher{}, err
	}
	d.Code = existing.Code
	if err := d.check(); err != nil {
		return Voucher{}, err
	}
	existing.Description = d.Description
	existing.Scope = d.Scope
	existing.Type = d.Type
	existing.Value = d.Value
	existing.MaxDiscount = d.MaxDiscount
	existing.StartDate = d.StartDate
	existing.EndDate = d.EndDate
	existing.MaxUsage = d.MaxUsage
	existing.CategoryID = d.CategoryID
	existing.CourseIDs = d.CourseIDs
	return a.Store.UpdateVoucher(ctx, existing)
}

// ToggleActive flips the active flag of a voucher the actor owns.
func (a *Admin) ToggleActive(ctx context.Context, actor Actor, id uuid.UUID) (Voucher, error) {
	if a == nil || a.Store == nil {
		return Voucher{}, errors.New("voucher admin not configured")
	}
	existing, err := a.authorize(ctx, actor, id)
	if err != nil {
		return Voucher{}, err
	}
	return a.Store.SetActive(ctx, id, !existing.IsActive)
}

// Delete removes a voucher the actor owns.
func (a *Admin) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if a == nil || a.Store == nil {
		return errors.New("voucher admin not configured")
	}
	if _, err := a.authorize(ctx, actor, id); err != nil {
		return err
	}
	return a.Store.DeleteVoucher(ctx, id)
}

// List returns the actor's vouchers, or every voucher for admins.
func (a *Admin) List(ctx context.Context, actor Actor, limit, offset int32) ([]Voucher, error) {
	if a == nil || a.Store == nil {
		return nil, errors.New("voucher admin not configured")
	}
	if actor.Role == RoleAdmin {
		return a.Store.ListAll(ctx, limit, offset)
	}
	return a.Store.ListByCreator(ctx, actor.UserID, limit, offset)
}

func (a *Admin) authorize(ctx context.Context, actor Actor, id uuid.UUID) (Voucher, error) {
	existing, err := a.Store.GetVoucherByID(ctx, id)
	if err != nil {
		return Voucher{}, err
	}
	if actor.Role == RoleAdmin {
		return existing, nil
	}
	if existing.CreatorID == nil || *existing.CreatorID != actor.UserID {
		return Voucher{}, ErrForbidden
	}
	return existing, nil
}
