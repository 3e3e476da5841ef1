package redisx

import "time"

const (
	// Hydrated order cache: order:{id} -> order JSON with items
	KeyOrder = "order:%d"

	// Per-user order listing: orders:user:{user_id}
	KeyUserOrders = "orders:user:%d"
)

var (
	TTLOrder      = 5 * time.Minute
	TTLUserOrders = 1 * time.Minute
)
