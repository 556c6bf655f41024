package order

import "time"

// Item is a snapshot of a product at checkout time. Name and price are
// copies; later catalog edits never touch historical orders.
type Item struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Qty        int    `json:"quantity"`
}

// Order is created once by checkout and immutable afterwards except for the
// lifecycle fields (status, isPaid, paidAt, paymentRef).
type Order struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Items         []Item     `json:"items"`
	TotalCents    int64      `json:"totalCents"`
	Status        Status     `json:"status"`
	IsPaid        bool       `json:"isPaid"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	PaymentRef    string     `json:"paymentRef,omitempty"`
	PaymentMethod string     `json:"paymentMethod"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

const PaymentMethodSimulated = "SIMULATED"
