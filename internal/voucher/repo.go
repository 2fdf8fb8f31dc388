package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateCode is returned when a voucher code collides on insert.
var ErrDuplicateCode = errors.New("voucher code already exists")

// Repo is the pgx-backed persistence layer for vouchers.
type Repo struct {
	Pool *pgxpool.Pool
}

const voucherColumns = `id, code, description, scope, discount_type, value, max_discount,
	start_date, end_date, max_usage, current_usage, is_active,
	creator_id, creator_role, category_id, course_ids`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(
		&v.ID, &v.Code, &v.Description, &v.Scope, &v.Type, &v.Value, &v.MaxDiscount,
		&v.StartDate, &v.EndDate, &v.MaxUsage, &v.CurrentUsage, &v.IsActive,
		&v.CreatorID, &v.CreatorRole, &v.CategoryID, &v.CourseIDs,
	)
	return v, err
}

// GetVoucherByCode loads a voucher by its code, case-insensitively.
func (r *Repo) GetVoucherByCode(ctx context.Context, code string) (Voucher, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE lower(code) = lower($1)`, code)
	v, err := scanVoucher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrNotFound
	}
	return v, err
}

// GetVoucherByID loads a voucher by primary key.
func (r *Repo) GetVoucherByID(ctx context.Context, id uuid.UUID) (Voucher, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
	v, err := scanVoucher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrNotFound
	}
	return v, err
}

// ListActiveSiteWide returns active SITE_WIDE vouchers inside their validity
// window that still have quota left, newest first.
func (r *Repo) ListActiveSiteWide(ctx context.Context, now time.Time) ([]Voucher, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers
		 WHERE scope = $1 AND is_active
		   AND start_date <= $2 AND end_date >= $2
		   AND (max_usage IS NULL OR current_usage < max_usage)
		 ORDER BY created_at DESC`, ScopeSiteWide, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVouchers(rows)
}

// ListByCreator returns vouchers owned by the given creator, newest first.
func (r *Repo) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int32) ([]Voucher, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers
		 WHERE creator_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, creatorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVouchers(rows)
}

// ListAll returns all vouchers paginated, newest first.
func (r *Repo) ListAll(ctx context.Context, limit, offset int32) ([]Voucher, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVouchers(rows)
}

func collectVouchers(rows pgx.Rows) ([]Voucher, error) {
	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetUsageByOrder fetches the usage row recorded for a (voucher, order) pair.
func (r *Repo) GetUsageByOrder(ctx context.Context, voucherID, orderID uuid.UUID) (Usage, error) {
	var u Usage
	err := r.Pool.QueryRow(ctx,
		`SELECT voucher_id, user_id, order_id, amount
		 FROM voucher_usages WHERE voucher_id = $1 AND order_id = $2`,
		voucherID, orderID).
		Scan(&u.VoucherID, &u.UserID, &u.OrderID, &u.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usage{}, ErrNoUsage
	}
	return u, err
}

// CommitUsage records voucher usage inside a single transaction. The usage
// insert and the counter increment either both happen or neither does. A
// replay of the same (voucher, order) pair is a no-op, and the increment is
// guarded so current_usage can never exceed max_usage even under concurrent
// commits.
func (r *Repo) CommitUsage(ctx context.Context, u Usage) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit usage: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := CommitUsageTx(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CommitUsageTx runs the usage insert and counter increment on the caller's
// transaction. Checkout uses this to settle the voucher in the same
// transaction that creates the order.
func CommitUsageTx(ctx context.Context, tx pgx.Tx, u Usage) error {
	tag, err := tx.Exec(ctx,
		`INSERT INTO voucher_usages (voucher_id, user_id, order_id, amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (voucher_id, order_id) DO NOTHING`,
		u.VoucherID, u.UserID, u.OrderID, u.Amount)
	if err != nil {
		return fmt.Errorf("insert voucher usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already recorded by an earlier commit.
		return nil
	}

	tag, err = tx.Exec(ctx,
		`UPDATE vouchers
		 SET current_usage = current_usage + 1, updated_at = now()
		 WHERE id = $1 AND (max_usage IS NULL OR current_usage < max_usage)`,
		u.VoucherID)
	if err != nil {
		return fmt.Errorf("increment voucher usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUsageLimitReached
	}
	return nil
}

// CreateVoucher inserts a voucher and returns the stored row.
func (r *Repo) CreateVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.Pool.QueryRow(ctx,
		`INSERT INTO vouchers (code, description, scope, discount_type, value, max_discount,
		   start_date, end_date, max_usage, is_active,
		   creator_id, creator_role, category_id, course_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+voucherColumns,
		v.Code, v.Description, v.Scope, v.Type, v.Value, v.MaxDiscount,
		v.StartDate, v.EndDate, v.MaxUsage, v.IsActive,
		v.CreatorID, v.CreatorRole, v.CategoryID, v.CourseIDs)
	stored, err := scanVoucher(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Voucher{}, ErrDuplicateCode
		}
		return Voucher{}, err
	}
	return stored, nil
}

// UpdateVoucher replaces the mutable fields of a voucher.
func (r *Repo) UpdateVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.Pool.QueryRow(ctx,
		`UPDATE vouchers
		 SET description = $2, scope = $3, discount_type = $4, value = $5, max_discount = $6,
		     start_date = $7, end_date = $8, max_usage = $9,
		     category_id = $10, course_ids = $11, updated_at = now()
		 WHERE id = $1
		 RETURNING `+voucherColumns,
		v.ID, v.Description, v.Scope, v.Type, v.Value, v.MaxDiscount,
		v.StartDate, v.EndDate, v.MaxUsage, v.CategoryID, v.CourseIDs)
	stored, err := scanVoucher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrNotFound
	}
	return stored, err
}

// SetActive flips the is_active flag and returns the updated row.
func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, active bool) (Voucher, error) {
	row := r.Pool.QueryRow(ctx,
		`UPDATE vouchers SET is_active = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+voucherColumns, id, active)
	stored, err := scanVoucher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrNotFound
	}
	return stored, err
}

// DeleteVoucher removes a voucher. Usage rows are kept for audit.
func (r *Repo) DeleteVoucher(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
