package redisx

import "time"

const (
	// Order read cache: order:{order_id} -> order JSON as served to clients.
	// Refreshed on payment and status changes; Postgres stays authoritative.
	KeyOrder = "order:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}.
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
