package voucher

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func activeVoucher(scope Scope, kind DiscountType, value int64) Voucher {
	return Voucher{
		ID:        uuid.New(),
		Code:      "PROMO",
		Scope:     scope,
		Type:      kind,
		Value:     value,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		IsActive:  true,
	}
}

func TestApplyPercentageSiteWide(t *testing.T) {
	v := activeVoucher(ScopeSiteWide, DiscountPercentage, 10)
	a := uuidMust("11111111-1111-1111-1111-111111111111")
	b := uuidMust("22222222-2222-2222-2222-222222222222")
	result, err := Apply(v, []Line{
		{CourseID: a, UnitPrice: 100_000},
		{CourseID: b, UnitPrice: 50_000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 15_000 {
		t.Fatalf("expected 15000 total discount, got %d", result.TotalDiscount)
	}
	if result.TotalFinal != 135_000 {
		t.Fatalf("expected 135000 total final, got %d", result.TotalFinal)
	}
	if result.Lines[0].DiscountAmount != 10_000 || result.Lines[1].DiscountAmount != 5_000 {
		t.Fatalf("unexpected allocation: %d / %d", result.Lines[0].DiscountAmount, result.Lines[1].DiscountAmount)
	}
}

func TestApplyFixedSpecificCourses(t *testing.T) {
	eligible := uuidMust("11111111-1111-1111-1111-111111111111")
	other := uuidMust("22222222-2222-2222-2222-222222222222")
	v := activeVoucher(ScopeSpecificCourses, DiscountFixed, 20_000)
	v.CourseIDs = []uuid.UUID{eligible}
	result, err := Apply(v, []Line{
		{CourseID: eligible, UnitPrice: 100_000},
		{CourseID: other, UnitPrice: 50_000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 20_000 {
		t.Fatalf("expected 20000 total discount, got %d", result.TotalDiscount)
	}
	if result.TotalFinal != 130_000 {
		t.Fatalf("expected 130000 total final, got %d", result.TotalFinal)
	}
	if result.Lines[1].DiscountAmount != 0 || result.Lines[1].Eligible {
		t.Fatalf("ineligible line must be untouched: %+v", result.Lines[1])
	}
}

func TestApplyCategoryNoMatch(t *testing.T) {
	category := uuidMust("33333333-3333-3333-3333-333333333333")
	otherCategory := uuidMust("44444444-4444-4444-4444-444444444444")
	v := activeVoucher(ScopeCategory, DiscountPercentage, 10)
	v.CategoryID = &category
	_, err := Apply(v, []Line{
		{CourseID: uuid.New(), CategoryIDs: []uuid.UUID{otherCategory}, UnitPrice: 80_000},
	})
	if !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
}

func TestApplyPercentageMaxDiscountCap(t *testing.T) {
	ceiling := int64(5_000)
	v := activeVoucher(ScopeSiteWide, DiscountPercentage, 10)
	v.MaxDiscount = &ceiling
	result, err := Apply(v, []Line{{CourseID: uuid.New(), UnitPrice: 100_000}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 5_000 {
		t.Fatalf("expected cap at 5000, got %d", result.TotalDiscount)
	}
}

func TestApplyFixedClampedToSubtotal(t *testing.T) {
	v := activeVoucher(ScopeSiteWide, DiscountFixed, 200_000)
	result, err := Apply(v, []Line{{CourseID: uuid.New(), UnitPrice: 50_000}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 50_000 || result.TotalFinal != 0 {
		t.Fatalf("expected full clamp, got discount %d final %d", result.TotalDiscount, result.TotalFinal)
	}
}

func TestApplyRemainderAbsorbedByLastEligible(t *testing.T) {
	v := activeVoucher(ScopeSiteWide, DiscountPercentage, 50)
	lines := []Line{
		{CourseID: uuid.New(), UnitPrice: 33},
		{CourseID: uuid.New(), UnitPrice: 33},
		{CourseID: uuid.New(), UnitPrice: 34},
	}
	result, err := Apply(v, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 50 {
		t.Fatalf("expected total discount 50, got %d", result.TotalDiscount)
	}
	var sum int64
	for _, lr := range result.Lines {
		sum += lr.DiscountAmount
	}
	if sum != result.TotalDiscount {
		t.Fatalf("allocations must sum to the total: %d vs %d", sum, result.TotalDiscount)
	}
	if result.Lines[0].DiscountAmount != 16 || result.Lines[1].DiscountAmount != 16 || result.Lines[2].DiscountAmount != 18 {
		t.Fatalf("unexpected allocation: %d / %d / %d",
			result.Lines[0].DiscountAmount, result.Lines[1].DiscountAmount, result.Lines[2].DiscountAmount)
	}
}

func TestApplySkewedLinesKeepPerLineIdentity(t *testing.T) {
	v := activeVoucher(ScopeSiteWide, DiscountFixed, 2_000)
	lines := []Line{
		{CourseID: uuid.New(), UnitPrice: 1_000},
		{CourseID: uuid.New(), UnitPrice: 1_000},
		{CourseID: uuid.New(), UnitPrice: 1},
	}
	result, err := Apply(v, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 2_000 {
		t.Fatalf("expected total discount 2000, got %d", result.TotalDiscount)
	}
	var sumDiscount, sumFinal int64
	for i, lr := range result.Lines {
		if lr.DiscountAmount > lr.OriginalPrice {
			t.Fatalf("line %d: discount %d exceeds price %d", i, lr.DiscountAmount, lr.OriginalPrice)
		}
		if lr.FinalPrice != lr.OriginalPrice-lr.DiscountAmount {
			t.Fatalf("line %d: final %d != original %d - discount %d",
				i, lr.FinalPrice, lr.OriginalPrice, lr.DiscountAmount)
		}
		sumDiscount += lr.DiscountAmount
		sumFinal += lr.FinalPrice
	}
	if sumDiscount != result.TotalDiscount {
		t.Fatalf("allocations must sum to the total: %d vs %d", sumDiscount, result.TotalDiscount)
	}
	if result.TotalFinal != result.TotalOriginal-result.TotalDiscount {
		t.Fatalf("aggregate identity broken: final %d, original %d, discount %d",
			result.TotalFinal, result.TotalOriginal, result.TotalDiscount)
	}
	if sumFinal != result.TotalFinal {
		t.Fatalf("line finals must sum to the total: %d vs %d", sumFinal, result.TotalFinal)
	}
}

func TestValidateGateOrder(t *testing.T) {
	now := time.Now()
	max := int32(1)

	v := activeVoucher(ScopeSiteWide, DiscountFixed, 1_000)
	v.IsActive = false
	v.EndDate = now.Add(-time.Minute)
	if err := v.Validate(now); !errors.Is(err, ErrInactive) {
		t.Fatalf("inactive must win over expired, got %v", err)
	}

	v = activeVoucher(ScopeSiteWide, DiscountFixed, 1_000)
	v.EndDate = now.Add(-time.Minute)
	v.MaxUsage = &max
	v.CurrentUsage = 1
	if err := v.Validate(now); !errors.Is(err, ErrExpired) {
		t.Fatalf("expired must win over usage limit, got %v", err)
	}

	v = activeVoucher(ScopeSiteWide, DiscountFixed, 1_000)
	v.MaxUsage = &max
	v.CurrentUsage = 1
	if err := v.Validate(now); !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}

	v = activeVoucher(ScopeSiteWide, DiscountFixed, 1_000)
	if err := v.Validate(v.StartDate.Add(-time.Minute)); !errors.Is(err, ErrExpired) {
		t.Fatalf("not-yet-started must report expired window, got %v", err)
	}
}

func uuidMust(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		panic(err)
	}
	return id
}
