package payments

import (
	"time"

	"gorm.io/gorm"
)

// Payment statuses mirror the order status set so a payment outcome maps
// directly onto the order record.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusPaid       = "paid"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Payment is the payment record for an order. At most one payment exists
// per order; creation is rejected if one already exists.
type Payment struct {
	gorm.Model    `json:"-"`
	PaymentID     string    `gorm:"uniqueIndex" json:"payment_id"`
	OrderID       string    `gorm:"uniqueIndex" json:"order_id"`
	Amount        float64   `gorm:"type:decimal(10,2)" json:"amount"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreatePaymentRequest is the POST /payments body.
type CreatePaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// UpdateStatusRequest is the PUT /payments/:payment_id/status body.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
