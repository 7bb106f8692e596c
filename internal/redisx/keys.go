package redisx

import "time"

const (
	// Idempotency create order: idem:payment:create:{receipt} -> order_id
	KeyIdemOrderCreate = "idem:payment:create:%s"

	// Cache status order: payment_order_status:{order_id} -> {"status": "...", "payment_id": "..."}
	KeyOrderStatus = "payment_order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
