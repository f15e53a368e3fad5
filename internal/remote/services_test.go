package remote

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ksred/order-api/internal/types"
)

func newTestServices(t *testing.T, handler http.Handler) (*Services, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	services := NewServices(NewClient(), server.URL, server.URL, server.URL)
	return services, server
}

func TestGetUserMapsNotFound(t *testing.T) {
	services, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := services.GetUser(42)
	if !errors.Is(err, types.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetProductDecodesSnapshot(t *testing.T) {
	services, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    7,
			"name":  "Widget",
			"price": 19.99,
			"stock": 12,
		})
	}))

	product, err := services.GetProduct(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Price != 19.99 || product.Stock != 12 {
		t.Errorf("unexpected snapshot: %+v", product)
	}
}

func TestGetProductWrapsServerError(t *testing.T) {
	services, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := services.GetProduct(7)
	var upstreamErr *types.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestReduceStockSendsIdempotencyKey(t *testing.T) {
	var got struct {
		Quantity       int64  `json:"quantity"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	services, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/products/3/reduce-stock" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"stock updated"}`))
	}))

	resp, err := services.ReduceStock(3, 5, "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if got.Quantity != 5 || got.IdempotencyKey != "abc123" {
		t.Errorf("unexpected reservation body: %+v", got)
	}
}

func TestAdjustStockSendsDirection(t *testing.T) {
	var got struct {
		Quantity  int64  `json:"quantity"`
		Direction string `json:"direction"`
	}
	services, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"stock updated"}`))
	}))

	if _, err := services.AdjustStock(3, 2, DirectionRelease); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 2 || got.Direction != DirectionRelease {
		t.Errorf("unexpected adjustment body: %+v", got)
	}
}

func TestGetOrderUnwrapsEnvelope(t *testing.T) {
	services, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"order_id":    "ORD_abc",
				"total_price": 39.98,
				"status":      "pending",
			},
		})
	}))

	order, err := services.GetOrder("ORD_abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.OrderID != "ORD_abc" || order.TotalPrice != 39.98 {
		t.Errorf("unexpected snapshot: %+v", order)
	}
}

func TestPutOrderStatusUsesInternalToken(t *testing.T) {
	var authorization string
	services, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/orders/ORD_abc/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		authorization = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	}))
	services.SetInternalToken("svc-token")

	if err := services.PutOrderStatus("ORD_abc", "paid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if authorization != "Bearer svc-token" {
		t.Errorf("expected internal bearer token, got %q", authorization)
	}
}
