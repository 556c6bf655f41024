package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrProductMissing    = errors.New("product no longer exists")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockRaceLost means the pre-check passed but another checkout took
	// the units before our conditional decrement ran. Nothing was committed;
	// the caller may safely retry.
	ErrStockRaceLost = errors.New("stock changed during checkout")
)
