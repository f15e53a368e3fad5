package types

// User is the user collaborator's representation of an account holder.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product is the product collaborator's representation, including the
// current price and stock snapshot. Both are stale the moment they are
// read; only the collaborator's own reserve operation is authoritative.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int64   `json:"stock"`
}

// ReduceStockResult is the product collaborator's success response for a
// stock reservation.
type ReduceStockResult struct {
	Message         string  `json:"message"`
	Product         Product `json:"product"`
	ReducedQuantity int64   `json:"reduced_quantity"`
}

// InsufficientStockResult is the product collaborator's 422 response for a
// reservation that would drive stock negative.
type InsufficientStockResult struct {
	Message           string `json:"message"`
	AvailableStock    int64  `json:"available_stock"`
	RequestedQuantity int64  `json:"requested_quantity,omitempty"`
}

// OrderSnapshot is the subset of an order's fields other services read
// over the wire.
type OrderSnapshot struct {
	OrderID    string  `json:"order_id"`
	UserID     int64   `json:"user_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   int64   `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	Status     string  `json:"status"`
}

// OrderCreatedEvent is published to the notification queue after a
// successful order creation. Delivery is best-effort.
type OrderCreatedEvent struct {
	OrderID    string  `json:"order_id"`
	UserID     int64   `json:"user_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   int64   `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	Status     string  `json:"status"`
}
