package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkshitij1763/e-commerce-api/internal/cart"
	"github.com/mkshitij1763/e-commerce-api/internal/catalog"
	"github.com/mkshitij1763/e-commerce-api/internal/order"
)

// PgStore implements Store on a single Postgres transaction, so the stock
// decrements, the order insert and the cart clear commit or abort together.
type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) Run(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// pgTx adapts the tx-scoped repos onto the checkout Tx surface.
type pgTx struct{ tx pgx.Tx }

func (t *pgTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	r := catalog.Repo{DB: t.tx}
	return r.DecrementStock(ctx, productID, qty)
}

func (t *pgTx) CreateOrder(ctx context.Context, o *order.Order) error {
	r := order.Repo{DB: t.tx}
	return r.Create(ctx, o)
}

func (t *pgTx) ClearCart(ctx context.Context, userID string) error {
	r := cart.Repo{DB: t.tx}
	return r.Clear(ctx, userID)
}
