package voucher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubStore struct {
	voucher     Voucher
	missing     bool
	usage       *Usage
	commitErr   error
	commitCalls int
}

func (s *stubStore) GetVoucherByCode(ctx context.Context, code string) (Voucher, error) {
	if s.missing {
		return Voucher{}, ErrNotFound
	}
	return s.voucher, nil
}

func (s *stubStore) ListActiveSiteWide(ctx context.Context, now time.Time) ([]Voucher, error) {
	return []Voucher{s.voucher}, nil
}

func (s *stubStore) GetUsageByOrder(ctx context.Context, voucherID, orderID uuid.UUID) (Usage, error) {
	if s.usage == nil {
		return Usage{}, ErrNoUsage
	}
	return *s.usage, nil
}

func (s *stubStore) CommitUsage(ctx context.Context, u Usage) error {
	s.commitCalls++
	if s.commitErr != nil {
		return s.commitErr
	}
	s.usage = &u
	return nil
}

type stubCatalog struct {
	prices     map[uuid.UUID]int64
	categories map[uuid.UUID][]uuid.UUID
}

func (s *stubCatalog) CourseExists(ctx context.Context, courseID uuid.UUID) (bool, error) {
	_, ok := s.prices[courseID]
	return ok, nil
}

func (s *stubCatalog) CoursePrice(ctx context.Context, courseID uuid.UUID) (int64, error) {
	return s.prices[courseID], nil
}

func (s *stubCatalog) CourseCategoryIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	return s.categories[courseID], nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func testVoucher() Voucher {
	return Voucher{
		ID:        uuid.New(),
		Code:      "SAVE10",
		Scope:     ScopeSiteWide,
		Type:      DiscountPercentage,
		Value:     10,
		StartDate: fixedNow().Add(-24 * time.Hour),
		EndDate:   fixedNow().Add(24 * time.Hour),
		IsActive:  true,
	}
}

func TestResolveSiteWidePercentage(t *testing.T) {
	courseA := uuidMust("11111111-1111-1111-1111-111111111111")
	courseB := uuidMust("22222222-2222-2222-2222-222222222222")
	store := &stubStore{voucher: testVoucher()}
	catalog := &stubCatalog{prices: map[uuid.UUID]int64{courseA: 100_000, courseB: 50_000}}
	svc := &Service{Q: store, Catalog: catalog, Now: fixedNow}

	result, err := svc.Resolve(context.Background(), "save10", []uuid.UUID{courseA, courseB}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 15_000 || result.TotalFinal != 135_000 {
		t.Fatalf("unexpected totals: discount %d final %d", result.TotalDiscount, result.TotalFinal)
	}
}

func TestResolveUnknownCode(t *testing.T) {
	svc := &Service{Q: &stubStore{missing: true}, Catalog: &stubCatalog{}, Now: fixedNow}
	_, err := svc.Resolve(context.Background(), "NOPE", []uuid.UUID{uuid.New()}, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveCategoryScope(t *testing.T) {
	course := uuidMust("11111111-1111-1111-1111-111111111111")
	category := uuidMust("33333333-3333-3333-3333-333333333333")
	v := testVoucher()
	v.Scope = ScopeCategory
	v.CategoryID = &category
	store := &stubStore{voucher: v}
	catalog := &stubCatalog{
		prices:     map[uuid.UUID]int64{course: 200_000},
		categories: map[uuid.UUID][]uuid.UUID{course: {category}},
	}
	svc := &Service{Q: store, Catalog: catalog, Now: fixedNow}

	result, err := svc.Resolve(context.Background(), "SAVE10", []uuid.UUID{course}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 20_000 {
		t.Fatalf("expected 20000 discount, got %d", result.TotalDiscount)
	}
}

func TestResolveCategoryScopeNoMatch(t *testing.T) {
	course := uuidMust("11111111-1111-1111-1111-111111111111")
	category := uuidMust("33333333-3333-3333-3333-333333333333")
	other := uuidMust("44444444-4444-4444-4444-444444444444")
	v := testVoucher()
	v.Scope = ScopeCategory
	v.CategoryID = &category
	catalog := &stubCatalog{
		prices:     map[uuid.UUID]int64{course: 200_000},
		categories: map[uuid.UUID][]uuid.UUID{course: {other}},
	}
	svc := &Service{Q: &stubStore{voucher: v}, Catalog: catalog, Now: fixedNow}

	_, err := svc.Resolve(context.Background(), "SAVE10", []uuid.UUID{course}, uuid.New())
	if !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
}

func TestResolveLinesUsesProvidedPrices(t *testing.T) {
	course := uuidMust("11111111-1111-1111-1111-111111111111")
	store := &stubStore{voucher: testVoucher()}
	// Catalog carries a newer, higher price. The provided line keeps the
	// price the caller captured earlier.
	catalog := &stubCatalog{prices: map[uuid.UUID]int64{course: 100_000}}
	svc := &Service{Q: store, Catalog: catalog, Now: fixedNow}

	result, err := svc.ResolveLines(context.Background(), "SAVE10",
		[]Line{{CourseID: course, UnitPrice: 80_000}}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalOriginal != 80_000 {
		t.Fatalf("expected original from the given line, got %d", result.TotalOriginal)
	}
	if result.TotalDiscount != 8_000 || result.TotalFinal != 72_000 {
		t.Fatalf("unexpected totals: discount %d final %d", result.TotalDiscount, result.TotalFinal)
	}
}

func TestResolveLinesCategoryScopeFillsCategories(t *testing.T) {
	course := uuidMust("11111111-1111-1111-1111-111111111111")
	category := uuidMust("33333333-3333-3333-3333-333333333333")
	v := testVoucher()
	v.Scope = ScopeCategory
	v.CategoryID = &category
	catalog := &stubCatalog{categories: map[uuid.UUID][]uuid.UUID{course: {category}}}
	svc := &Service{Q: &stubStore{voucher: v}, Catalog: catalog, Now: fixedNow}

	result, err := svc.ResolveLines(context.Background(), "SAVE10",
		[]Line{{CourseID: course, UnitPrice: 200_000}}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDiscount != 20_000 {
		t.Fatalf("expected 20000 discount, got %d", result.TotalDiscount)
	}
}

func TestResolveInactive(t *testing.T) {
	course := uuidMust("11111111-1111-1111-1111-111111111111")
	v := testVoucher()
	v.IsActive = false
	svc := &Service{
		Q:       &stubStore{voucher: v},
		Catalog: &stubCatalog{prices: map[uuid.UUID]int64{course: 100_000}},
		Now:     fixedNow,
	}
	_, err := svc.Resolve(context.Background(), "SAVE10", []uuid.UUID{course}, uuid.New())
	if !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestCommitIdempotent(t *testing.T) {
	store := &stubStore{voucher: testVoucher()}
	svc := &Service{Q: store, Now: fixedNow}
	userID := uuid.New()
	orderID := uuid.New()

	if err := svc.Commit(context.Background(), "SAVE10", userID, orderID); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := svc.Commit(context.Background(), "SAVE10", userID, orderID); err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if store.commitCalls != 1 {
		t.Fatalf("expected exactly one store commit, got %d", store.commitCalls)
	}
}

func TestCommitUsageLimitReached(t *testing.T) {
	store := &stubStore{voucher: testVoucher(), commitErr: ErrUsageLimitReached}
	svc := &Service{Q: store, Now: fixedNow}
	err := svc.Commit(context.Background(), "SAVE10", uuid.New(), uuid.New())
	if !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}
}
