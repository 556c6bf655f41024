package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct{ DB DBTX }

// Create inserts the order and its item snapshot. Run it on the checkout
// transaction so it commits or aborts together with the stock decrements.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total_cents, is_paid, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		o.ID, o.UserID, o.Status, o.TotalCents, o.IsPaid, o.PaymentMethod, o.CreatedAt)
	if err != nil {
		return err
	}
	for _, it := range o.Items {
		_, err = r.DB.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, name, price_cents, qty)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, it.ProductID, it.Name, it.PriceCents, it.Qty)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	o, err := r.scanOrder(r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, is_paid, paid_at, payment_ref, payment_method, created_at, updated_at
		FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns the caller's orders, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, status, total_cents, is_paid, paid_at, payment_ref, payment_method, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListAll returns every order, newest first. Admin listing only.
func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, status, total_cents, is_paid, paid_at, payment_ref, payment_method, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
}

// MarkPaid flips the payment fields, but only while the order is still an
// unpaid pending one. The guard runs at write time, so two concurrent payment
// attempts are decided by the database, not by a racy read.
func (r *Repo) MarkPaid(ctx context.Context, orderID, paymentRef string, paidAt time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET is_paid = TRUE, paid_at = $2, payment_ref = $3, status = $4, updated_at = now()
		WHERE id = $1 AND is_paid = FALSE AND status = $5`,
		orderID, paidAt, paymentRef, StatusPaid, StatusPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// SetStatus overwrites the status unconditionally. Returns false if the order
// does not exist.
func (r *Repo) SetStatus(ctx context.Context, orderID string, s Status) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, orderID, s)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.items(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, price_cents, qty
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.PriceCents, &it.Qty); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var paymentRef *string
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.IsPaid,
		&o.PaidAt, &paymentRef, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if paymentRef != nil {
		o.PaymentRef = *paymentRef
	}
	return &o, nil
}
