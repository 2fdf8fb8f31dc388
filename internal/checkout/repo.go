package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vietlearn/backend-academy/internal/voucher"
)

// Repo is the pgx-backed order store.
type Repo struct {
	Pool *pgxpool.Pool
}

const orderColumns = `id, user_id, status, voucher_code, subtotal, discount, total, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.VoucherCode, &o.Subtotal, &o.Discount, &o.Total, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

// CreateOrder writes the order, its items, and the voucher usage in one
// transaction. A usage settlement failure rolls everything back, so an order
// can never reference a voucher it did not consume.
func (r *Repo) CreateOrder(ctx context.Context, o Order, items []OrderItem, usage *voucher.Usage) (Order, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored, err := scanOrder(tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, status, voucher_code, subtotal, discount, total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+orderColumns,
		o.ID, o.UserID, o.Status, o.VoucherCode, o.Subtotal, o.Discount, o.Total))
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, course_id, unit_price, discount_amount, final_price)
			 VALUES ($1, $2, $3, $4, $5)`,
			stored.ID, it.CourseID, it.UnitPrice, it.DiscountAmount, it.FinalPrice); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if usage != nil {
		if err := voucher.CommitUsageTx(ctx, tx, *usage); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit create order: %w", err)
	}
	return stored, nil
}

// GetOrder loads one order with its items, scoped to the owner.
func (r *Repo) GetOrder(ctx context.Context, id, userID uuid.UUID) (Order, []OrderItem, error) {
	o, err := scanOrder(r.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return Order{}, nil, err
	}

	rows, err := r.Pool.Query(ctx,
		`SELECT order_id, course_id, unit_price, discount_amount, final_price
		 FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return Order{}, nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.CourseID, &it.UnitPrice, &it.DiscountAmount, &it.FinalPrice); err != nil {
			return Order{}, nil, err
		}
		items = append(items, it)
	}
	return o, items, rows.Err()
}

// ListOrders lists a user's orders, newest first.
func (r *Repo) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
