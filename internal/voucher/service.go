package voucher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietlearn/backend-academy/internal/common"
)

// Querier captures the persistence methods required by the voucher service.
type Querier interface {
	GetVoucherByCode(ctx context.Context, code string) (Voucher, error)
	ListActiveSiteWide(ctx context.Context, now time.Time) ([]Voucher, error)
	GetUsageByOrder(ctx context.Context, voucherID, orderID uuid.UUID) (Usage, error)
	// CommitUsage atomically increments current_usage (guarded by max_usage)
	// and records the usage row. It returns ErrUsageLimitReached when the
	// quota is exhausted and nil when the (voucher, order) pair was already
	// recorded.
	CommitUsage(ctx context.Context, u Usage) error
}

// CourseCatalog is the scope/eligibility lookup collaborator.
type CourseCatalog interface {
	CourseExists(ctx context.Context, courseID uuid.UUID) (bool, error)
	CoursePrice(ctx context.Context, courseID uuid.UUID) (int64, error)
	CourseCategoryIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

// Usage links a voucher, a user, and a completed order.
type Usage struct {
	VoucherID uuid.UUID
	UserID    uuid.UUID
	OrderID   uuid.UUID
	Amount    int64
}

// ErrNoUsage is returned by Querier implementations when no usage row exists.
var ErrNoUsage = errors.New("voucher usage not found")

// Service encapsulates voucher rule evaluation and usage settlement.
type Service struct {
	Q       Querier
	Catalog CourseCatalog
	Now     func() time.Time
}

// Resolve performs a dry-run evaluation of the voucher against the given
// course ids, priced from the live catalog. It has no side effects and is
// safe to retry freely.
func (s *Service) Resolve(ctx context.Context, code string, courseIDs []uuid.UUID, userID uuid.UUID) (Result, error) {
	if s == nil || s.Q == nil || s.Catalog == nil {
		return Result{}, errors.New("voucher service not configured")
	}
	if len(courseIDs) == 0 {
		return Result{}, common.NewAppError("VALIDATION_ERROR", "cart is empty", http.StatusBadRequest, nil)
	}

	v, err := s.resolveVoucher(ctx, code)
	if err != nil {
		return Result{}, err
	}

	lines, err := s.buildLines(ctx, v, courseIDs)
	if err != nil {
		return Result{}, err
	}
	return Apply(v, lines)
}

// ResolveLines evaluates the voucher against caller-priced lines. Checkout
// passes the cart's price snapshots here, so the discount base is the same
// unit price it persists even when the catalog price moved after the item
// was added to the cart.
func (s *Service) ResolveLines(ctx context.Context, code string, lines []Line, userID uuid.UUID) (Result, error) {
	if s == nil || s.Q == nil {
		return Result{}, errors.New("voucher service not configured")
	}
	if len(lines) == 0 {
		return Result{}, common.NewAppError("VALIDATION_ERROR", "cart is empty", http.StatusBadRequest, nil)
	}

	v, err := s.resolveVoucher(ctx, code)
	if err != nil {
		return Result{}, err
	}

	priced := make([]Line, len(lines))
	copy(priced, lines)
	if v.Scope == ScopeCategory {
		if s.Catalog == nil {
			return Result{}, errors.New("voucher service not configured")
		}
		for i := range priced {
			if priced[i].CategoryIDs != nil {
				continue
			}
			cats, err := s.Catalog.CourseCategoryIDs(ctx, priced[i].CourseID)
			if err != nil {
				return Result{}, fmt.Errorf("categories for course %s: %w", priced[i].CourseID, err)
			}
			priced[i].CategoryIDs = cats
		}
	}
	return Apply(v, priced)
}

// resolveVoucher loads the voucher by code and runs the state gates.
func (s *Service) resolveVoucher(ctx context.Context, code string) (Voucher, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Voucher{}, common.NewAppError("VALIDATION_ERROR", "voucher code is required", http.StatusBadRequest, nil)
	}
	v, err := s.Q.GetVoucherByCode(ctx, strings.ToUpper(trimmed))
	if err != nil {
		return Voucher{}, err
	}
	if err := v.Validate(s.now()); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

// Commit records voucher usage for a completed order. It is idempotent per
// (voucher, order) pair: re-committing the same order never double-counts.
func (s *Service) Commit(ctx context.Context, code string, userID, orderID uuid.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("voucher service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || orderID == uuid.Nil {
		return common.NewAppError("VALIDATION_ERROR", "voucher code and order id are required", http.StatusBadRequest, nil)
	}
	v, err := s.Q.GetVoucherByCode(ctx, strings.ToUpper(trimmed))
	if err != nil {
		return err
	}
	if _, err := s.Q.GetUsageByOrder(ctx, v.ID, orderID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNoUsage) {
		return err
	}
	return s.Q.CommitUsage(ctx, Usage{VoucherID: v.ID, UserID: userID, OrderID: orderID})
}

// ActiveSiteVouchers lists the SITE_WIDE vouchers currently inside their
// validity window, for promotional display.
func (s *Service) ActiveSiteVouchers(ctx context.Context) ([]Voucher, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("voucher service not configured")
	}
	return s.Q.ListActiveSiteWide(ctx, s.now())
}

func (s *Service) buildLines(ctx context.Context, v Voucher, courseIDs []uuid.UUID) ([]Line, error) {
	lines := make([]Line, 0, len(courseIDs))
	for _, id := range courseIDs {
		exists, err := s.Catalog.CourseExists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check course %s: %w", id, err)
		}
		if !exists {
			return nil, common.NewAppError("COURSE_NOT_FOUND", fmt.Sprintf("course %s does not exist", id), http.StatusNotFound, nil)
		}
		price, err := s.Catalog.CoursePrice(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("price course %s: %w", id, err)
		}
		if price <= 0 {
			return nil, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("course %s has no purchasable price", id), http.StatusBadRequest, nil)
		}
		line := Line{CourseID: id, UnitPrice: price}
		if v.Scope == ScopeCategory {
			cats, err := s.Catalog.CourseCategoryIDs(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("categories for course %s: %w", id, err)
			}
			line.CategoryIDs = cats
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ReasonCode maps engine errors onto the machine-readable reason codes the
// HTTP boundary returns to clients.
func ReasonCode(err error) (code string, status int, ok bool) {
	switch {
	case errors.Is(err, ErrNotFound):
		return "VOUCHER_NOT_FOUND", http.StatusNotFound, true
	case errors.Is(err, ErrInactive):
		return "VOUCHER_INACTIVE", http.StatusUnprocessableEntity, true
	case errors.Is(err, ErrExpired):
		return "VOUCHER_EXPIRED", http.StatusUnprocessableEntity, true
	case errors.Is(err, ErrUsageLimitReached):
		return "VOUCHER_USAGE_LIMIT_REACHED", http.StatusUnprocessableEntity, true
	case errors.Is(err, ErrNotApplicable):
		return "VOUCHER_NOT_APPLICABLE", http.StatusUnprocessableEntity, true
	}
	return "", 0, false
}
