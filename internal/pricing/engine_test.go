package pricing

import "testing"

func TestCompute(t *testing.T) {
	summary := Compute([]Item{{UnitPrice: 100_000}, {UnitPrice: 50_000}}, 15_000)
	if summary.Subtotal != 150_000 {
		t.Fatalf("expected subtotal 150000, got %d", summary.Subtotal)
	}
	if summary.Discount != 15_000 {
		t.Fatalf("expected discount 15000, got %d", summary.Discount)
	}
	if summary.Total != 135_000 {
		t.Fatalf("expected total 135000, got %d", summary.Total)
	}
}

func TestComputeDiscountClamped(t *testing.T) {
	summary := Compute([]Item{{UnitPrice: 40_000}}, 100_000)
	if summary.Discount != 40_000 || summary.Total != 0 {
		t.Fatalf("expected full clamp, got %+v", summary)
	}
}

func TestComputeIgnoresNonPositiveLines(t *testing.T) {
	summary := Compute([]Item{{UnitPrice: 0}, {UnitPrice: -5}, {UnitPrice: 10_000}}, 0)
	if summary.Subtotal != 10_000 {
		t.Fatalf("expected subtotal 10000, got %d", summary.Subtotal)
	}
}
