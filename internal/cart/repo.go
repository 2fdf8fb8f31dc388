package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed cart store.
type Repo struct {
	Pool *pgxpool.Pool
}

const cartColumns = `id, user_id, anon_id, voucher_code, expires_at`

func scanCart(row pgx.Row) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.AnonID, &c.VoucherCode, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, ErrNotFound
	}
	return c, err
}

// GetActiveCartByUser loads the newest unexpired cart for a user.
func (r *Repo) GetActiveCartByUser(ctx context.Context, userID uuid.UUID, now time.Time) (Cart, error) {
	return scanCart(r.Pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts
		 WHERE user_id = $1 AND expires_at > $2
		 ORDER BY created_at DESC LIMIT 1`, userID, now))
}

// GetActiveCartByAnon loads the newest unexpired cart for an anonymous id.
func (r *Repo) GetActiveCartByAnon(ctx context.Context, anonID string, now time.Time) (Cart, error) {
	return scanCart(r.Pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts
		 WHERE anon_id = $1 AND expires_at > $2
		 ORDER BY created_at DESC LIMIT 1`, anonID, now))
}

// GetCartByID loads a cart by primary key.
func (r *Repo) GetCartByID(ctx context.Context, id uuid.UUID) (Cart, error) {
	return scanCart(r.Pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE id = $1`, id))
}

// CreateCart inserts a new cart row.
func (r *Repo) CreateCart(ctx context.Context, c Cart) (Cart, error) {
	return scanCart(r.Pool.QueryRow(ctx,
		`INSERT INTO carts (id, user_id, anon_id, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+cartColumns,
		c.ID, c.UserID, c.AnonID, c.ExpiresAt))
}

// TouchCart extends the cart expiry.
func (r *Repo) TouchCart(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := r.Pool.Exec(ctx,
		`UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1`, id, expiresAt)
	return err
}

// AddItem inserts a course line. Adding the same course twice is rejected.
func (r *Repo) AddItem(ctx context.Context, item Item) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO cart_items (cart_id, course_id, price_snapshot, added_at)
		 VALUES ($1, $2, $3, $4)`,
		item.CartID, item.CourseID, item.PriceSnapshot, item.AddedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyInCart
	}
	return err
}

// RemoveItem deletes a course line from the cart.
func (r *Repo) RemoveItem(ctx context.Context, cartID, courseID uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND course_id = $2`, cartID, courseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListItems returns cart lines in insertion order.
func (r *Repo) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT cart_id, course_id, price_snapshot, added_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY added_at`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.CartID, &it.CourseID, &it.PriceSnapshot, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ClearCart removes every line and the applied voucher code.
func (r *Repo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.Pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	_, err := r.Pool.Exec(ctx,
		`UPDATE carts SET voucher_code = NULL, updated_at = now() WHERE id = $1`, cartID)
	return err
}

// SetVoucherCode stores or clears the applied voucher code.
func (r *Repo) SetVoucherCode(ctx context.Context, cartID uuid.UUID, code *string) error {
	_, err := r.Pool.Exec(ctx,
		`UPDATE carts SET voucher_code = $2, updated_at = now() WHERE id = $1`, cartID, code)
	return err
}
