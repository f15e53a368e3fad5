package orders

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ksred/order-api/internal/idempotency"
	"github.com/ksred/order-api/internal/remote"
	"github.com/ksred/order-api/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service owns the order lifecycle: the creation saga, the quantity-update
// path with its ledger adjustment, status propagation and plain CRUD.
type Service struct {
	db        *Database
	remote    *remote.Services
	idem      *idempotency.Store
	publisher Publisher
}

// Publisher is the outbound notification port. Implementations must never
// block order processing on delivery.
type Publisher interface {
	PublishOrderCreated(event types.OrderCreatedEvent) error
}

func NewService(gormDB *gorm.DB, remoteServices *remote.Services, store *idempotency.Store, publisher Publisher) *Service {
	return &Service{
		db:        NewDatabase(gormDB),
		remote:    remoteServices,
		idem:      store,
		publisher: publisher,
	}
}

// UpdateQuantity changes an order's quantity and applies the stock delta
// to the ledger. The order's current reservation is notionally returned
// first, so the allowance is current stock plus the old quantity. If the
// ledger adjustment fails the local fields are reverted best-effort.
func (s *Service) UpdateQuantity(orderID string, newQuantity int64) (*OrderDetail, error) {
	logger := log.With().
		Str("order_id", orderID).
		Int64("new_quantity", newQuantity).
		Str("service", "orders").
		Logger()

	if newQuantity < 1 {
		return nil, &types.ValidationError{Message: "quantity must be at least 1"}
	}

	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, types.ErrOrderNotFound
	}

	product, err := s.remote.GetProduct(order.ProductID)
	if err != nil {
		return nil, err
	}

	allowance := product.Stock + order.Quantity
	if newQuantity > allowance {
		logger.Info().Int64("allowance", allowance).Msg("quantity update rejected, insufficient stock")
		return nil, &types.InsufficientStockError{AvailableStock: allowance}
	}

	oldQuantity := order.Quantity
	oldTotalPrice := order.TotalPrice

	order.Quantity = newQuantity
	order.TotalPrice = product.Price * float64(newQuantity)
	if err := s.db.UpdateOrder(order); err != nil {
		return nil, err
	}

	// Positive delta releases stock back to the ledger, negative reserves
	// more. A zero delta needs no ledger call.
	delta := oldQuantity - newQuantity
	if delta != 0 {
		if err := s.adjustStock(order.ProductID, delta); err != nil {
			order.Quantity = oldQuantity
			order.TotalPrice = oldTotalPrice
			if revertErr := s.db.UpdateOrder(order); revertErr != nil {
				logger.Error().Err(revertErr).Msg("failed to revert order after ledger adjustment failure")
				return nil, &types.CompensationError{Op: "quantity revert", Err: revertErr}
			}
			logger.Error().Err(err).Msg("ledger adjustment failed, order reverted")
			return nil, err
		}
	}

	logger.Info().
		Int64("old_quantity", oldQuantity).
		Float64("total_price", order.TotalPrice).
		Msg("order quantity updated")

	return s.enrichOrder(order), nil
}

// adjustStock applies an unsigned magnitude plus direction to the ledger.
// Unlike the creation path this is not idempotency-keyed.
func (s *Service) adjustStock(productID, delta int64) error {
	direction := remote.DirectionReduce
	magnitude := -delta
	if delta > 0 {
		direction = remote.DirectionRelease
		magnitude = delta
	}

	resp, err := s.remote.AdjustStock(productID, magnitude, direction)
	if err != nil {
		return &types.StockUpdateError{Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnprocessableEntity:
		var rejection types.InsufficientStockResult
		if err := decodeBody(resp.Body, &rejection); err != nil {
			log.Warn().Err(err).Msg("could not decode insufficient-stock rejection")
		}
		return &types.InsufficientStockError{AvailableStock: rejection.AvailableStock}
	default:
		return &types.StockUpdateError{Err: fmt.Errorf("collaborator returned status %d: %s", resp.StatusCode, string(resp.Body))}
	}
}

// UpdateStatus persists a status change on the local record. This is the
// receiving end of the payment collaborator's propagation; the downstream
// direction lives in the payments service. Status changes are outside the
// creation saga's transactional boundary.
func (s *Service) UpdateStatus(orderID, status string) (*Order, error) {
	if !ValidStatus(status) {
		return nil, &types.ValidationError{Message: "status must be one of pending, processing, paid, failed, cancelled"}
	}

	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, types.ErrOrderNotFound
	}

	order.Status = status
	if err := s.db.UpdateOrder(order); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", orderID).
		Str("status", status).
		Str("service", "orders").
		Msg("order status updated")

	return order, nil
}

// GetOrderDetail returns an order with best-effort product and user
// snapshots attached
func (s *Service) GetOrderDetail(orderID string) (*OrderDetail, error) {
	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, types.ErrOrderNotFound
	}
	return s.enrichOrder(order), nil
}

func (s *Service) ListOrders() ([]Order, error) {
	return s.db.ListOrders()
}

func (s *Service) ListOrdersByUser(userID int64) ([]Order, error) {
	return s.db.ListOrdersByUser(userID)
}

// DeleteOrder removes the local record. It does not release the remote
// reservation; reconciling stock after a deletion is an operator concern.
func (s *Service) DeleteOrder(orderID string) error {
	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return types.ErrOrderNotFound
	}
	return s.db.DeleteOrder(order)
}

func (s *Service) enrichOrder(order *Order) *OrderDetail {
	detail := &OrderDetail{Order: *order}
	if product, err := s.remote.GetProduct(order.ProductID); err == nil {
		detail.Product = product
	}
	if user, err := s.remote.GetUser(order.UserID); err == nil {
		detail.User = user
	}
	return detail
}

func decodeBody(body []byte, v interface{}) error {
	return json.Unmarshal(body, v)
}
