package voucher

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no voucher matches the provided code.
	ErrNotFound = errors.New("voucher not found")
	// ErrInactive is returned when the voucher has been disabled by its owner.
	ErrInactive = errors.New("voucher not active")
	// ErrExpired is returned when the current time falls outside the validity window.
	ErrExpired = errors.New("voucher expired")
	// ErrUsageLimitReached indicates the voucher has exhausted the global usage quota.
	ErrUsageLimitReached = errors.New("voucher usage limit reached")
	// ErrNotApplicable indicates no cart line matches the voucher scope.
	ErrNotApplicable = errors.New("voucher not applicable to cart")
)

// Scope is the eligibility domain of a voucher.
type Scope string

const (
	ScopeSiteWide        Scope = "SITE_WIDE"
	ScopeCategory        Scope = "CATEGORY"
	ScopeSpecificCourses Scope = "SPECIFIC_COURSES"
)

// DiscountType distinguishes percentage and fixed amount vouchers.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
)

// Voucher captures the runtime rule set of a discount code.
type Voucher struct {
	ID           uuid.UUID
	Code         string
	Description  string
	Scope        Scope
	Type         DiscountType
	Value        int64
	MaxDiscount  *int64
	StartDate    time.Time
	EndDate      time.Time
	MaxUsage     *int32
	CurrentUsage int32
	IsActive     bool
	CreatorID    *uuid.UUID
	CreatorRole  string
	CategoryID   *uuid.UUID
	CourseIDs    []uuid.UUID
}

// Line represents a cart line item eligible for voucher calculation.
type Line struct {
	CourseID    uuid.UUID
	CategoryIDs []uuid.UUID
	UnitPrice   int64
}

// LineResult carries the per-line outcome of a voucher application.
type LineResult struct {
	CourseID       uuid.UUID `json:"courseId"`
	OriginalPrice  int64     `json:"originalPrice"`
	DiscountAmount int64     `json:"discountAmount"`
	FinalPrice     int64     `json:"finalPrice"`
	Eligible       bool      `json:"eligible"`
}

// Result aggregates per-line and total figures for a voucher application.
type Result struct {
	VoucherID     uuid.UUID    `json:"-"`
	Code          string       `json:"code"`
	Description   string       `json:"description,omitempty"`
	Lines         []LineResult `json:"lines"`
	TotalOriginal int64        `json:"totalOriginal"`
	TotalDiscount int64        `json:"totalDiscount"`
	TotalFinal    int64        `json:"totalFinal"`
}

// Validate checks the voucher state gates in their canonical order: active
// flag, validity window, usage quota. Scope matching happens in Apply.
func (v Voucher) Validate(now time.Time) error {
	if !v.IsActive {
		return ErrInactive
	}
	if now.Before(v.StartDate) || now.After(v.EndDate) {
		return ErrExpired
	}
	if v.MaxUsage != nil && v.CurrentUsage >= *v.MaxUsage {
		return ErrUsageLimitReached
	}
	return nil
}

// Matches reports whether a cart line falls inside the voucher scope.
func (v Voucher) Matches(l Line) bool {
	switch v.Scope {
	case ScopeSiteWide:
		return true
	case ScopeCategory:
		if v.CategoryID == nil {
			return false
		}
		for _, id := range l.CategoryIDs {
			if id == *v.CategoryID {
				return true
			}
		}
		return false
	case ScopeSpecificCourses:
		for _, id := range v.CourseIDs {
			if id == l.CourseID {
				return true
			}
		}
		return false
	}
	return false
}

// Apply computes the discount for the provided cart lines. The total discount
// is derived once from the eligible subtotal and then allocated across
// eligible lines proportionally, in stable cart order. No line's share ever
// exceeds its price, so finalPrice = originalPrice - discount holds per line
// and the aggregates stay consistent.
func Apply(v Voucher, lines []Line) (Result, error) {
	result := Result{VoucherID: v.ID, Code: v.Code, Description: v.Description, Lines: make([]LineResult, 0, len(lines))}

	var eligibleSubtotal int64
	eligible := make([]bool, len(lines))
	anyEligible := false
	for i, l := range lines {
		result.TotalOriginal += l.UnitPrice
		if l.UnitPrice > 0 && v.Matches(l) {
			eligible[i] = true
			eligibleSubtotal += l.UnitPrice
			anyEligible = true
		}
	}
	if !anyEligible || eligibleSubtotal <= 0 {
		return Result{}, ErrNotApplicable
	}

	total := discountTotal(v, eligibleSubtotal)
	shares := allocate(total, lines, eligible, eligibleSubtotal)

	for i, l := range lines {
		lr := LineResult{
			CourseID:       l.CourseID,
			OriginalPrice:  l.UnitPrice,
			DiscountAmount: shares[i],
			FinalPrice:     l.UnitPrice - shares[i],
			Eligible:       eligible[i],
		}
		result.TotalDiscount += lr.DiscountAmount
		result.TotalFinal += lr.FinalPrice
		result.Lines = append(result.Lines, lr)
	}
	return result, nil
}

// allocate splits the aggregate discount across eligible lines by proportional
// floor, each share capped at the line's price, then pours the rounding
// remainder into lines with headroom starting from the last one. Because
// total never exceeds the eligible subtotal the pour always drains fully.
func allocate(total int64, lines []Line, eligible []bool, eligibleSubtotal int64) []int64 {
	shares := make([]int64, len(lines))
	var allocated int64
	for i, l := range lines {
		if !eligible[i] {
			continue
		}
		share := total * l.UnitPrice / eligibleSubtotal
		if share > l.UnitPrice {
			share = l.UnitPrice
		}
		shares[i] = share
		allocated += share
	}
	for i := len(lines) - 1; i >= 0 && allocated < total; i-- {
		if !eligible[i] {
			continue
		}
		add := lines[i].UnitPrice - shares[i]
		if add <= 0 {
			continue
		}
		if rest := total - allocated; add > rest {
			add = rest
		}
		shares[i] += add
		allocated += add
	}
	return shares
}

// discountTotal computes the aggregate discount capped by the eligible subtotal.
func discountTotal(v Voucher, eligibleSubtotal int64) int64 {
	var total int64
	switch v.Type {
	case DiscountPercentage:
		total = eligibleSubtotal * v.Value / 100
		if v.MaxDiscount != nil && total > *v.MaxDiscount {
			total = *v.MaxDiscount
		}
	case DiscountFixed:
		total = v.Value
	}
	if total > eligibleSubtotal {
		total = eligibleSubtotal
	}
	if total < 0 {
		total = 0
	}
	return total
}
