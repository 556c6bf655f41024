package cart

// Item is one (product, quantity) pair in a user's cart. The cart itself is
// just the ordered list of items keyed by user.
type Item struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"quantity"`
}
