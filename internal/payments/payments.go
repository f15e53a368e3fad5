package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/order-api/internal/remote"
	"github.com/ksred/order-api/internal/types"
	"github.com/ksred/order-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles the payment lifecycle and the payment-to-order status
// propagation.
type Service struct {
	db     *Database
	remote *remote.Services
}

func NewService(gormDB *gorm.DB, remoteServices *remote.Services) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		remote: remoteServices,
	}
}

// CreatePayment initiates a payment for an order. The amount is taken from
// the order's total price; a second payment for the same order is
// rejected and leaves the original untouched.
func (s *Service) CreatePayment(orderID string) (*Payment, error) {
	logger := log.With().
		Str("order_id", orderID).
		Str("service", "payments").
		Logger()

	order, err := s.remote.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.db.GetPaymentByOrder(orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Info().Str("payment_id", existing.PaymentID).Msg("rejected duplicate payment")
		return nil, types.ErrDuplicatePayment
	}

	payment := &Payment{
		PaymentID:     "PAY_" + uuid.New().String(),
		OrderID:       orderID,
		Amount:        order.TotalPrice,
		Status:        StatusPending,
		TransactionID: newTransactionID(),
	}

	if err := s.db.CreatePayment(payment); err != nil {
		return nil, err
	}

	logger.Info().
		Str("payment_id", payment.PaymentID).
		Float64("amount", payment.Amount).
		Msg("payment created")

	return payment, nil
}

// UpdateStatus persists the payment status, then best-effort propagates it
// to the order service. A downstream failure never reverts the local
// write; status changes sit outside any transactional boundary.
func (s *Service) UpdateStatus(paymentID, status string) (*Payment, error) {
	if !ValidStatus(status) {
		return nil, &types.ValidationError{Message: "status must be one of pending, processing, paid, failed, cancelled"}
	}

	payment, err := s.db.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, types.ErrPaymentNotFound
	}

	payment.Status = status
	if err := s.db.UpdatePayment(payment); err != nil {
		return nil, err
	}

	if err := s.remote.PutOrderStatus(payment.OrderID, status); err != nil {
		log.Warn().
			Err(err).
			Str("payment_id", paymentID).
			Str("order_id", payment.OrderID).
			Msg("failed to propagate payment status to order service")
	}

	return payment, nil
}

func (s *Service) GetPayment(paymentID string) (*Payment, error) {
	payment, err := s.db.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, types.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) GetPaymentByOrder(orderID string) (*Payment, error) {
	payment, err := s.db.GetPaymentByOrder(orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, types.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) ListPayments() ([]Payment, error) {
	return s.db.ListPayments()
}

func (s *Service) DeletePayment(paymentID string) error {
	payment, err := s.db.GetPayment(paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return types.ErrPaymentNotFound
	}
	return s.db.DeletePayment(payment)
}

func newTransactionID() string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("TRX-%d-%s", time.Now().Unix(), suffix)
}

// GinHandlers contains HTTP handlers for payment endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreatePaymentHandler handles POST requests to initiate payments
func (h *GinHandlers) CreatePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		payment, err := h.service.CreatePayment(req.OrderID)
		response.Handle(c, payment, err)
	}
}

// GetPaymentHandler handles GET requests for a single payment
func (h *GinHandlers) GetPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payment, err := h.service.GetPayment(c.Param("payment_id"))
		response.Handle(c, payment, err)
	}
}

// GetPaymentByOrderHandler handles GET requests for an order's payment
func (h *GinHandlers) GetPaymentByOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payment, err := h.service.GetPaymentByOrder(c.Param("order_id"))
		response.Handle(c, payment, err)
	}
}

// ListPaymentsHandler handles GET requests for all payments
func (h *GinHandlers) ListPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payments, err := h.service.ListPayments()
		response.Handle(c, payments, err)
	}
}

// UpdatePaymentStatusHandler handles PUT requests to record a payment
// result and propagate it to the order record
func (h *GinHandlers) UpdatePaymentStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		payment, err := h.service.UpdateStatus(c.Param("payment_id"), req.Status)
		response.Handle(c, payment, err)
	}
}

// DeletePaymentHandler handles DELETE requests for a payment
func (h *GinHandlers) DeletePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID := c.Param("payment_id")

		if err := h.service.DeletePayment(paymentID); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, gin.H{"message": "payment deleted", "payment_id": paymentID})
	}
}
