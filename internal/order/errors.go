package order

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrForbidden         = errors.New("not allowed")
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrInvalidTransition = errors.New("only pending orders can be paid")
	ErrInvalidPaymentRef = errors.New("valid paymentRef required (min 4 chars)")
	ErrUnknownStatus     = errors.New("unknown order status")
)
