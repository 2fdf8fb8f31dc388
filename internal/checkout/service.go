package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vietlearn/backend-academy/internal/cart"
	"github.com/vietlearn/backend-academy/internal/common"
	"github.com/vietlearn/backend-academy/internal/pricing"
	"github.com/vietlearn/backend-academy/internal/voucher"
)

// StatusPendingPayment is the initial order state. Payment capture happens
// through an external collaborator and moves the order forward elsewhere.
const StatusPendingPayment = "PENDING_PAYMENT"

// ErrOrderNotFound indicates the order does not exist or belongs to another user.
var ErrOrderNotFound = errors.New("order not found")

// Order is the stored order row. Amounts are minor currency units.
type Order struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Status      string    `json:"status"`
	VoucherCode *string   `json:"voucherCode,omitempty"`
	Subtotal    int64     `json:"subtotal"`
	Discount    int64     `json:"discount"`
	Total       int64     `json:"total"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OrderItem is one purchased course line.
type OrderItem struct {
	OrderID        uuid.UUID `json:"-"`
	CourseID       uuid.UUID `json:"courseId"`
	UnitPrice      int64     `json:"unitPrice"`
	DiscountAmount int64     `json:"discountAmount"`
	FinalPrice     int64     `json:"finalPrice"`
}

// Store persists orders. CreateOrder writes the order, its items, and the
// voucher usage (when non-nil) in one transaction.
type Store interface {
	CreateOrder(ctx context.Context, o Order, items []OrderItem, usage *voucher.Usage) (Order, error)
	GetOrder(ctx context.Context, id, userID uuid.UUID) (Order, []OrderItem, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error)
}

// VoucherGateway evaluates the applied voucher against the cart's own price
// snapshots, so the discount base matches the unit prices the order persists.
type VoucherGateway interface {
	ResolveLines(ctx context.Context, code string, lines []voucher.Line, userID uuid.UUID) (voucher.Result, error)
}

// Locker serialises checkouts per cart.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// PurchaseNotifier publishes the purchase for achievement processing.
type PurchaseNotifier interface {
	CoursePurchased(ctx context.Context, userID, orderID uuid.UUID, courseIDs []uuid.UUID, total int64) error
}

// Service turns a cart into a pending order.
type Service struct {
	Carts    cart.Querier
	Vouchers VoucherGateway
	Store    Store
	Locks    Locker
	Notify   PurchaseNotifier
	LockTTL  time.Duration
	Now      func() time.Time
}

// Output is the checkout response payload.
type Output struct {
	Order   Order           `json:"order"`
	Items   []OrderItem     `json:"items"`
	Summary pricing.Summary `json:"summary"`
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return 10 * time.Second
}

// Create places an order from the cart. The whole operation runs under a
// redis lock keyed by cart id so a double submit cannot create two orders
// from the same cart.
func (s *Service) Create(ctx context.Context, userID, cartID uuid.UUID) (Output, error) {
	if s == nil || s.Carts == nil || s.Store == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if userID == uuid.Nil || cartID == uuid.Nil {
		return Output{}, common.NewAppError("VALIDATION_ERROR", "user and cart ids are required", http.StatusBadRequest, nil)
	}

	var out Output
	run := func(ctx context.Context) error {
		var err error
		out, err = s.create(ctx, userID, cartID)
		return err
	}
	if s.Locks == nil {
		return out, run(ctx)
	}
	err := s.Locks.WithLock(ctx, "checkout:cart:"+cartID.String(), s.lockTTL(), run)
	return out, err
}

func (s *Service) create(ctx context.Context, userID, cartID uuid.UUID) (Output, error) {
	c, err := s.Carts.GetCartByID(ctx, cartID)
	if err != nil {
		return Output{}, err
	}
	if c.UserID == nil || *c.UserID != userID {
		return Output{}, common.NewAppError("FORBIDDEN", "cart does not belong to user", http.StatusForbidden, nil)
	}

	items, err := s.Carts.ListItems(ctx, cartID)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, common.NewAppError("EMPTY_CART", "cart is empty", http.StatusBadRequest, nil)
	}

	courseIDs := make([]uuid.UUID, 0, len(items))
	pricingItems := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		courseIDs = append(courseIDs, it.CourseID)
		pricingItems = append(pricingItems, pricing.Item{UnitPrice: it.PriceSnapshot})
	}

	orderID := uuid.New()
	var (
		discount   int64
		usage      *voucher.Usage
		lineSplits map[uuid.UUID]voucher.LineResult
	)
	if c.VoucherCode != nil && *c.VoucherCode != "" {
		voucherLines := make([]voucher.Line, 0, len(items))
		for _, it := range items {
			voucherLines = append(voucherLines, voucher.Line{CourseID: it.CourseID, UnitPrice: it.PriceSnapshot})
		}
		res, err := s.Vouchers.ResolveLines(ctx, *c.VoucherCode, voucherLines, userID)
		if err != nil {
			return Output{}, err
		}
		discount = res.TotalDiscount
		usage = &voucher.Usage{VoucherID: res.VoucherID, UserID: userID, OrderID: orderID, Amount: res.TotalDiscount}
		lineSplits = make(map[uuid.UUID]voucher.LineResult, len(res.Lines))
		for _, line := range res.Lines {
			lineSplits[line.CourseID] = line
		}
	}

	summary := pricing.Compute(pricingItems, discount)
	order := Order{
		ID:          orderID,
		UserID:      userID,
		Status:      StatusPendingPayment,
		VoucherCode: c.VoucherCode,
		Subtotal:    summary.Subtotal,
		Discount:    summary.Discount,
		Total:       summary.Total,
	}
	orderItems := make([]OrderItem, 0, len(items))
	for _, it := range items {
		line := OrderItem{
			OrderID:    orderID,
			CourseID:   it.CourseID,
			UnitPrice:  it.PriceSnapshot,
			FinalPrice: it.PriceSnapshot,
		}
		if split, ok := lineSplits[it.CourseID]; ok {
			line.DiscountAmount = split.DiscountAmount
			line.FinalPrice = split.FinalPrice
		}
		orderItems = append(orderItems, line)
	}

	stored, err := s.Store.CreateOrder(ctx, order, orderItems, usage)
	if err != nil {
		return Output{}, fmt.Errorf("create order: %w", err)
	}

	if s.Notify != nil {
		// Best effort. The order stands even if the event never lands.
		_ = s.Notify.CoursePurchased(ctx, userID, stored.ID, courseIDs, stored.Total)
	}
	_ = s.Carts.ClearCart(ctx, cartID)
	_ = s.Carts.SetVoucherCode(ctx, cartID, nil)

	return Output{Order: stored, Items: orderItems, Summary: summary}, nil
}

// GetOrder loads one order scoped to its owner.
func (s *Service) GetOrder(ctx context.Context, id, userID uuid.UUID) (Order, []OrderItem, error) {
	if s == nil || s.Store == nil {
		return Order{}, nil, errors.New("checkout service not configured")
	}
	return s.Store.GetOrder(ctx, id, userID)
}

// ListOrders lists the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("checkout service not configured")
	}
	return s.Store.ListOrders(ctx, userID, limit, offset)
}
