package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/order-api/internal/idempotency"
	"github.com/ksred/order-api/internal/types"
	"github.com/rs/zerolog/log"
)

// CreateOrder runs the order-creation saga:
//
//	validate input
//	verify user (direct lookup, 404 is definitive)
//	verify product and take a price/stock snapshot
//	advisory stock pre-check
//	open local transaction, insert pending order
//	re-verify user and product through the retrying client
//	reserve stock (idempotency-keyed, retried)
//	commit on success, roll back on any failure
//	cache the definitive reservation response for replay
//
// The pre-check can race with concurrent orders; only the collaborator's
// reserve operation is authoritative. No order row is committed unless its
// reservation returned success.
func (s *Service) CreateOrder(req CreateOrderRequest) (*Order, error) {
	logger := log.With().
		Int64("user_id", req.UserID).
		Int64("product_id", req.ProductID).
		Int64("quantity", req.Quantity).
		Str("service", "orders").
		Logger()

	if req.UserID <= 0 {
		return nil, &types.ValidationError{Message: "user_id must be a positive integer"}
	}
	if req.ProductID <= 0 {
		return nil, &types.ValidationError{Message: "product_id must be a positive integer"}
	}
	if req.Quantity < 1 {
		return nil, &types.ValidationError{Message: "quantity must be at least 1"}
	}

	if _, err := s.remote.GetUser(req.UserID); err != nil {
		return nil, err
	}

	product, err := s.remote.GetProduct(req.ProductID)
	if err != nil {
		return nil, err
	}

	if product.Stock < req.Quantity {
		logger.Info().Int64("available_stock", product.Stock).Msg("stock pre-check rejected order")
		return nil, &types.InsufficientStockError{AvailableStock: product.Stock}
	}

	totalPrice := product.Price * float64(req.Quantity)

	tx := s.db.Begin()
	if err := tx.Error; err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	order := &Order{
		OrderID:    "ORD_" + uuid.New().String(),
		UserID:     req.UserID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		TotalPrice: totalPrice,
		Status:     StatusPending,
	}

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// The key is fixed once per creation attempt and reused across every
	// retry of the reservation call, never regenerated per HTTP attempt.
	key := reservationKey(order.OrderID, time.Now())

	if _, err := s.remote.GetUserWithRetry(req.UserID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := s.remote.GetProductWithRetry(req.ProductID); err != nil {
		tx.Rollback()
		return nil, err
	}

	status, body, replayed, err := s.reserveStock(req.ProductID, req.Quantity, key)
	if err != nil {
		tx.Rollback()
		logger.Error().Err(err).Msg("stock reservation failed after retries")
		return nil, &types.StockReservationError{Err: err}
	}

	switch status {
	case http.StatusOK:
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		if !replayed {
			s.cacheReservation(req.ProductID, key, status, body)
		}
	case http.StatusUnprocessableEntity:
		tx.Rollback()
		if !replayed {
			s.cacheReservation(req.ProductID, key, status, body)
		}
		var rejection types.InsufficientStockResult
		if err := decodeBody(body, &rejection); err != nil {
			logger.Warn().Err(err).Msg("could not decode insufficient-stock rejection")
		}
		logger.Info().Int64("available_stock", rejection.AvailableStock).Msg("reservation rejected, order rolled back")
		return nil, &types.InsufficientStockError{AvailableStock: rejection.AvailableStock}
	default:
		tx.Rollback()
		return nil, &types.StockReservationError{
			Err: fmt.Errorf("collaborator returned status %d: %s", status, string(body)),
		}
	}

	logger.Info().
		Str("order_id", order.OrderID).
		Float64("total_price", order.TotalPrice).
		Msg("order created")

	s.publishOrderCreated(order)

	return order, nil
}

// reserveStock issues the reservation through the idempotency store: a
// cached response is returned verbatim without a network call. Fresh
// responses are reported with replayed=false so the caller can cache the
// definitive ones. Transport exhaustion caches nothing.
func (s *Service) reserveStock(productID, quantity int64, key string) (int, []byte, bool, error) {
	resourceID := strconv.FormatInt(productID, 10)

	cached, found, err := s.idem.Get(resourceID, key)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency lookup failed, proceeding with reservation")
	} else if found {
		return cached.Status, cached.Body, true, nil
	}

	resp, err := s.remote.ReduceStock(productID, quantity, key)
	if err != nil {
		return 0, nil, false, err
	}

	return resp.StatusCode, resp.Body, false, nil
}

// cacheReservation stores a definitive reservation response for replay.
// Must run only after the order transaction is resolved: with a single
// sqlite file an open write transaction blocks the insert from any other
// handle until the busy timeout.
func (s *Service) cacheReservation(productID int64, key string, status int, body []byte) {
	resourceID := strconv.FormatInt(productID, 10)
	if err := s.idem.Put(resourceID, key, status, body, idempotency.DefaultTTL); err != nil {
		log.Warn().Err(err).Msg("failed to cache reservation response")
	}
}

// reservationKey derives the idempotency key from the order ID and the
// timestamp of the first attempt
func reservationKey(orderID string, firstAttempt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", orderID, firstAttempt.Unix())))
	return hex.EncodeToString(sum[:])
}

func (s *Service) publishOrderCreated(order *Order) {
	event := types.OrderCreatedEvent{
		OrderID:    order.OrderID,
		UserID:     order.UserID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
	}
	// Best-effort: the order is already committed and returned; a delivery
	// failure must not affect the response.
	if err := s.publisher.PublishOrderCreated(event); err != nil {
		log.Warn().Err(err).Str("order_id", order.OrderID).Msg("failed to publish order created event")
	}
}
