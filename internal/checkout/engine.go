package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mkshitij1763/e-commerce-api/internal/cart"
	"github.com/mkshitij1763/e-commerce-api/internal/catalog"
	"github.com/mkshitij1763/e-commerce-api/internal/order"
)

// CartSource reads a user's cart. *cart.Repo is the Postgres implementation.
type CartSource interface {
	Items(ctx context.Context, userID string) ([]cart.Item, error)
}

// Catalog resolves product references during validation; Get returns nil for
// products that no longer exist.
type Catalog interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

// Store runs the atomic section of a checkout. Everything done through Tx
// commits together when fn returns nil and is rolled back otherwise.
type Store interface {
	Run(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write surface of one checkout unit of work.
type Tx interface {
	// DecrementStock reduces stock by qty only if qty units are still
	// available, reporting whether the guard held.
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)
	CreateOrder(ctx context.Context, o *order.Order) error
	ClearCart(ctx context.Context, userID string) error
}

// Engine converts a cart into an order: validate against current stock,
// conditionally decrement inventory, write the order snapshot and empty the
// cart, all-or-nothing. Checkout is deliberately not idempotent; resubmitting
// the same cart buys it again.
type Engine struct {
	Carts    CartSource
	Products Catalog
	Store    Store
	Now      func() time.Time
}

func NewEngine(carts CartSource, products Catalog, store Store) *Engine {
	return &Engine{
		Carts:    carts,
		Products: products,
		Store:    store,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Checkout(ctx context.Context, userID string) (*order.Order, error) {
	items, err := e.Carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Read-only validation phase; products resolve in parallel. This is only
	// a pre-check — the conditional decrements below re-validate at write
	// time, which is what actually prevents overselling.
	products := make([]*catalog.Product, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			p, err := e.Products.Get(gctx, it.ProductID)
			if err != nil {
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		Status:        order.StatusPending,
		PaymentMethod: order.PaymentMethodSimulated,
		CreatedAt:     e.Now(),
	}
	o.UpdatedAt = o.CreatedAt
	for i, it := range items {
		p := products[i]
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductMissing, it.ProductID)
		}
		if p.Stock < it.Qty {
			return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, p.Name)
		}
		// Snapshot name and price now; the order must not follow later
		// catalog edits.
		o.Items = append(o.Items, order.Item{
			ProductID:  p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Qty:        it.Qty,
		})
		o.TotalCents += p.PriceCents * int64(it.Qty)
	}

	err = e.Store.Run(ctx, func(tx Tx) error {
		for _, it := range o.Items {
			ok, err := tx.DecrementStock(ctx, it.ProductID, it.Qty)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrStockRaceLost, it.Name)
			}
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		return tx.ClearCart(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}
