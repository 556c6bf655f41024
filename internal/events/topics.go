package events

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderPaid          = "order.paid"
	TopicOrderStatusChanged = "order.status.changed"
)

// Partition key is the order id so events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
