// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// OrderPlacedEvent is published after an order commits. It carries
// enough for downstream consumers to log, notify or feed analytics
// without querying the primary database.
type OrderPlacedEvent struct {
	OrderID       string `json:"order_id"`
	UserID        uint64 `json:"user_id"`
	TotalPaise    int64  `json:"total_paise"`
	Currency      string `json:"currency"`
	ItemCount     int    `json:"item_count"`
	PaymentMethod string `json:"payment_method"`
	City          string `json:"city,omitempty"`
	PlacedAt      string `json:"placed_at"`
}
