package orders

import (
	"time"

	"github.com/ksred/order-api/internal/types"
	"gorm.io/gorm"
)

// Order statuses. Status is only mutated through UpdateStatus or the
// payment collaborator's propagation endpoint.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusPaid       = "paid"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether s is one of the allowed order statuses
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Order is the local order record. TotalPrice is always computed from the
// product price captured at the last successful quantity change, never
// re-derived from the current remote price.
type Order struct {
	gorm.Model `json:"-"`
	OrderID    string    `gorm:"uniqueIndex" json:"order_id"`
	UserID     int64     `json:"user_id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int64     `json:"quantity"`
	TotalPrice float64   `gorm:"type:decimal(10,2)" json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateOrderRequest is the POST /orders body.
type CreateOrderRequest struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// UpdateOrderRequest is the PUT /orders/:order_id body.
type UpdateOrderRequest struct {
	Quantity int64 `json:"quantity"`
}

// UpdateStatusRequest is the PUT /orders/:order_id/status body.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderDetail is an order enriched with best-effort collaborator
// snapshots. The snapshots are informational; their absence never fails
// the request.
type OrderDetail struct {
	Order
	Product *types.Product `json:"product,omitempty"`
	User    *types.User    `json:"user,omitempty"`
}
