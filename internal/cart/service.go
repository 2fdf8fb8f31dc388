package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietlearn/backend-academy/internal/pricing"
	"github.com/vietlearn/backend-academy/internal/voucher"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrAlreadyInCart is returned when a course is added twice.
var ErrAlreadyInCart = errors.New("course already in cart")

// Cart is the stored cart row.
type Cart struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	AnonID      *string
	VoucherCode *string
	ExpiresAt   time.Time
}

// Item is one course line. Courses are enrolled once, so there is no quantity.
type Item struct {
	CartID        uuid.UUID
	CourseID      uuid.UUID
	PriceSnapshot int64
	AddedAt       time.Time
}

// Querier captures the persistence methods required by the cart service.
type Querier interface {
	GetActiveCartByUser(ctx context.Context, userID uuid.UUID, now time.Time) (Cart, error)
	GetActiveCartByAnon(ctx context.Context, anonID string, now time.Time) (Cart, error)
	GetCartByID(ctx context.Context, id uuid.UUID) (Cart, error)
	CreateCart(ctx context.Context, c Cart) (Cart, error)
	TouchCart(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	AddItem(ctx context.Context, item Item) error
	RemoveItem(ctx context.Context, cartID, courseID uuid.UUID) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	SetVoucherCode(ctx context.Context, cartID uuid.UUID, code *string) error
}

// CoursePricer resolves current course prices for snapshots.
type CoursePricer interface {
	CourseExists(ctx context.Context, courseID uuid.UUID) (bool, error)
	CoursePrice(ctx context.Context, courseID uuid.UUID) (int64, error)
}

// VoucherResolver previews a voucher against the cart contents.
type VoucherResolver interface {
	Resolve(ctx context.Context, code string, courseIDs []uuid.UUID, userID uuid.UUID) (voucher.Result, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Q        Querier
	Courses  CoursePricer
	Vouchers VoucherResolver
	TTL      time.Duration
	Now      func() time.Time
}

// View is the cart payload returned to clients.
type View struct {
	ID          uuid.UUID       `json:"id"`
	Items       []ItemView      `json:"items"`
	VoucherCode *string         `json:"voucherCode,omitempty"`
	Discount    *voucher.Result `json:"discount,omitempty"`
	Summary     pricing.Summary `json:"summary"`
}

// ItemView is the outward shape of a cart line.
type ItemView struct {
	CourseID uuid.UUID `json:"courseId"`
	Price    int64     `json:"price"`
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads or creates a cart for the provided identifiers.
func (s *Service) EnsureCart(ctx context.Context, userID *uuid.UUID, anonID *string) (Cart, error) {
	if s == nil || s.Q == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	expires := now.Add(s.ttl())

	if userID != nil && *userID != uuid.Nil {
		cart, err := s.Q.GetActiveCartByUser(ctx, *userID, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return s.Q.CreateCart(ctx, Cart{ID: uuid.New(), UserID: userID, ExpiresAt: expires})
			}
			return Cart{}, err
		}
		_ = s.Q.TouchCart(ctx, cart.ID, expires)
		return cart, nil
	}
	if anonID != nil && *anonID != "" {
		cart, err := s.Q.GetActiveCartByAnon(ctx, *anonID, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return s.Q.CreateCart(ctx, Cart{ID: uuid.New(), AnonID: anonID, ExpiresAt: expires})
			}
			return Cart{}, err
		}
		_ = s.Q.TouchCart(ctx, cart.ID, expires)
		return cart, nil
	}
	return Cart{}, ErrInvalidInput
}

// AddCourse inserts a course line with a price snapshot.
func (s *Service) AddCourse(ctx context.Context, cartID, courseID uuid.UUID) error {
	if s == nil || s.Q == nil || s.Courses == nil {
		return errors.New("cart service not configured")
	}
	exists, err := s.Courses.CourseExists(ctx, courseID)
	if err != nil {
		return fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return fmt.Errorf("course %s: %w", courseID, ErrInvalidInput)
	}
	price, err := s.Courses.CoursePrice(ctx, courseID)
	if err != nil {
		return fmt.Errorf("price course: %w", err)
	}
	return s.Q.AddItem(ctx, Item{CartID: cartID, CourseID: courseID, PriceSnapshot: price, AddedAt: s.now()})
}

// RemoveCourse deletes a course line from the cart.
func (s *Service) RemoveCourse(ctx context.Context, cartID, courseID uuid.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	return s.Q.RemoveItem(ctx, cartID, courseID)
}

// ApplyVoucher previews the voucher against the cart and stores the code on
// success. Nothing is committed; settlement happens at checkout.
func (s *Service) ApplyVoucher(ctx context.Context, cartID uuid.UUID, code string, userID uuid.UUID) (View, error) {
	if s == nil || s.Q == nil || s.Vouchers == nil {
		return View{}, errors.New("cart service not configured")
	}
	items, err := s.Q.ListItems(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	courseIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		courseIDs = append(courseIDs, it.CourseID)
	}
	if _, err := s.Vouchers.Resolve(ctx, code, courseIDs, userID); err != nil {
		return View{}, err
	}
	if err := s.Q.SetVoucherCode(ctx, cartID, &code); err != nil {
		return View{}, err
	}
	return s.BuildView(ctx, cartID, userID)
}

// RemoveVoucher clears the applied voucher code.
func (s *Service) RemoveVoucher(ctx context.Context, cartID uuid.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	return s.Q.SetVoucherCode(ctx, cartID, nil)
}

// BuildView assembles the cart payload including the voucher preview when a
// code is applied. A voucher that became invalid since it was applied is
// dropped from the cart rather than failing the whole view.
func (s *Service) BuildView(ctx context.Context, cartID uuid.UUID, userID uuid.UUID) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCartByID(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	items, err := s.Q.ListItems(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	view := View{ID: cart.ID, VoucherCode: cart.VoucherCode, Items: make([]ItemView, 0, len(items))}
	priceItems := make([]pricing.Item, 0, len(items))
	courseIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		view.Items = append(view.Items, ItemView{CourseID: it.CourseID, Price: it.PriceSnapshot})
		priceItems = append(priceItems, pricing.Item{UnitPrice: it.PriceSnapshot})
		courseIDs = append(courseIDs, it.CourseID)
	}

	var discount int64
	if cart.VoucherCode != nil && len(courseIDs) > 0 && s.Vouchers != nil {
		result, err := s.Vouchers.Resolve(ctx, *cart.VoucherCode, courseIDs, userID)
		if err == nil {
			view.Discount = &result
			discount = result.TotalDiscount
		} else {
			_ = s.Q.SetVoucherCode(ctx, cartID, nil)
			view.VoucherCode = nil
		}
	}
	view.Summary = pricing.Compute(priceItems, discount)
	return view, nil
}
