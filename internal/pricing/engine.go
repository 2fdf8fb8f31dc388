package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a course line used for pricing calculation. Courses are
// digital goods, so there is no quantity: one line is one enrollment.
type Item struct {
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Total    Money `json:"total"`
}

// Compute calculates order totals given the line items and voucher discount.
// The discount never exceeds the subtotal.
func Compute(items []Item, discount Money) Summary {
	var subtotal Money
	for _, it := range items {
		if it.UnitPrice <= 0 {
			continue
		}
		subtotal += it.UnitPrice
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal - discount,
	}
}
