package remote

import (
	"fmt"
	"net/http"

	"github.com/ksred/order-api/internal/types"
)

// Stock adjustment directions for the update path. A reservation during
// order creation always reduces.
const (
	DirectionReduce  = "reduce"
	DirectionRelease = "release"
)

// Services wraps the collaborator HTTP contracts behind typed calls.
// Base URLs include any path prefix (e.g. http://service-auth:8000/api).
type Services struct {
	client         *Client
	userBaseURL    string
	productBaseURL string
	orderBaseURL   string
	internalToken  string
}

func NewServices(client *Client, userBaseURL, productBaseURL, orderBaseURL string) *Services {
	return &Services{
		client:         client,
		userBaseURL:    userBaseURL,
		productBaseURL: productBaseURL,
		orderBaseURL:   orderBaseURL,
	}
}

// SetInternalToken sets the bearer token used for internal
// service-to-service endpoints
func (s *Services) SetInternalToken(token string) {
	s.internalToken = token
}

// GetUser verifies a user with a single, non-retried lookup
func (s *Services) GetUser(userID int64) (*types.User, error) {
	return s.decodeUser(s.client.Do(http.MethodGet, fmt.Sprintf("%s/users/%d", s.userBaseURL, userID), nil))
}

// GetUserWithRetry verifies a user through the retrying client
func (s *Services) GetUserWithRetry(userID int64) (*types.User, error) {
	return s.decodeUser(s.client.DoWithRetry(http.MethodGet, fmt.Sprintf("%s/users/%d", s.userBaseURL, userID), nil))
}

func (s *Services) decodeUser(resp *Response, err error) (*types.User, error) {
	if err != nil {
		return nil, &types.UpstreamError{Op: "user lookup", Err: err}
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var user types.User
		if err := resp.DecodeJSON(&user); err != nil {
			return nil, &types.UpstreamError{Op: "user lookup", Err: err}
		}
		return &user, nil
	case http.StatusNotFound:
		return nil, types.ErrUserNotFound
	default:
		return nil, &types.UpstreamError{Op: "user lookup", Err: statusError(resp)}
	}
}

// GetProduct fetches a product's price and stock snapshot with a single,
// non-retried lookup
func (s *Services) GetProduct(productID int64) (*types.Product, error) {
	return s.decodeProduct(s.client.Do(http.MethodGet, fmt.Sprintf("%s/products/%d", s.productBaseURL, productID), nil))
}

// GetProductWithRetry fetches a product through the retrying client
func (s *Services) GetProductWithRetry(productID int64) (*types.Product, error) {
	return s.decodeProduct(s.client.DoWithRetry(http.MethodGet, fmt.Sprintf("%s/products/%d", s.productBaseURL, productID), nil))
}

func (s *Services) decodeProduct(resp *Response, err error) (*types.Product, error) {
	if err != nil {
		return nil, &types.UpstreamError{Op: "product lookup", Err: err}
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var product types.Product
		if err := resp.DecodeJSON(&product); err != nil {
			return nil, &types.UpstreamError{Op: "product lookup", Err: err}
		}
		return &product, nil
	case http.StatusNotFound:
		return nil, types.ErrProductNotFound
	default:
		return nil, &types.UpstreamError{Op: "product lookup", Err: statusError(resp)}
	}
}

// ReduceStock issues the idempotency-keyed stock reservation through the
// retrying client. The raw response is returned so the caller can cache
// and interpret it; only transport exhaustion is an error.
func (s *Services) ReduceStock(productID, quantity int64, idempotencyKey string) (*Response, error) {
	url := fmt.Sprintf("%s/products/%d/reduce-stock", s.productBaseURL, productID)
	body := map[string]interface{}{
		"quantity":        quantity,
		"idempotency_key": idempotencyKey,
	}
	return s.client.DoWithRetry(http.MethodPut, url, body)
}

// AdjustStock applies an unsigned magnitude plus direction to the ledger.
// Used by the quantity-update path, which is not idempotency-keyed.
func (s *Services) AdjustStock(productID, magnitude int64, direction string) (*Response, error) {
	url := fmt.Sprintf("%s/products/%d/reduce-stock", s.productBaseURL, productID)
	body := map[string]interface{}{
		"quantity":  magnitude,
		"direction": direction,
	}
	return s.client.DoWithRetry(http.MethodPut, url, body)
}

// GetOrder fetches an order snapshot from the order service. The order
// API wraps payloads in a response envelope.
func (s *Services) GetOrder(orderID string) (*types.OrderSnapshot, error) {
	resp, err := s.client.Do(http.MethodGet, fmt.Sprintf("%s/orders/%s", s.orderBaseURL, orderID), nil)
	if err != nil {
		return nil, &types.UpstreamError{Op: "order lookup", Err: err}
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var envelope struct {
			Data types.OrderSnapshot `json:"data"`
		}
		if err := resp.DecodeJSON(&envelope); err != nil {
			return nil, &types.UpstreamError{Op: "order lookup", Err: err}
		}
		return &envelope.Data, nil
	case http.StatusNotFound:
		return nil, types.ErrOrderNotFound
	default:
		return nil, &types.UpstreamError{Op: "order lookup", Err: statusError(resp)}
	}
}

// PutOrderStatus propagates a status change to the order service through
// the retrying client. Requires the internal token.
func (s *Services) PutOrderStatus(orderID, status string) error {
	url := fmt.Sprintf("%s/internal/orders/%s/status", s.orderBaseURL, orderID)
	body := map[string]string{"status": status}

	resp, err := s.client.DoWithRetryAuth(http.MethodPut, url, body, s.internalToken)
	if err != nil {
		return &types.UpstreamError{Op: "order status update", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &types.UpstreamError{Op: "order status update", Err: statusError(resp)}
	}
	return nil
}

func statusError(resp *Response) error {
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(resp.Body))
}
