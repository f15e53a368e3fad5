package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/ksred/order-api/internal/remote"
	"github.com/ksred/order-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubOrderService plays the order API: snapshot lookups plus the internal
// status propagation endpoint.
type stubOrderService struct {
	mu           sync.Mutex
	orders       map[string]types.OrderSnapshot
	statusCalls  []string
	statusBroken bool
}

func (s *stubOrderService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/internal/orders/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.statusCalls = append(s.statusCalls, r.URL.Path)
		if s.statusBroken {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		orderID := strings.TrimPrefix(r.URL.Path, "/orders/")
		s.mu.Lock()
		order, ok := s.orders[orderID]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": order})
	})

	return mux
}

func newTestService(t *testing.T, stub *stubOrderService) (*Service, *gorm.DB) {
	t.Helper()

	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Payment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	services := remote.NewServices(remote.NewClient(), server.URL, server.URL, server.URL)
	services.SetInternalToken("test-token")
	return NewService(db, services), db
}

func TestCreatePaymentTakesAmountFromOrder(t *testing.T) {
	stub := &stubOrderService{orders: map[string]types.OrderSnapshot{
		"ORD_x": {OrderID: "ORD_x", UserID: 1, ProductID: 3, Quantity: 2, TotalPrice: 39.98, Status: "pending"},
	}}
	service, _ := newTestService(t, stub)

	payment, err := service.CreatePayment("ORD_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.Amount != 39.98 {
		t.Errorf("expected amount 39.98, got %v", payment.Amount)
	}
	if payment.Status != StatusPending {
		t.Errorf("expected status pending, got %s", payment.Status)
	}
	if !strings.HasPrefix(payment.PaymentID, "PAY_") {
		t.Errorf("unexpected payment ID %s", payment.PaymentID)
	}
	if matched, _ := regexp.MatchString(`^TRX-\d+-[A-Z0-9]{6}$`, payment.TransactionID); !matched {
		t.Errorf("unexpected transaction ID format %s", payment.TransactionID)
	}
}

func TestCreatePaymentRejectsDuplicate(t *testing.T) {
	stub := &stubOrderService{orders: map[string]types.OrderSnapshot{
		"ORD_x": {OrderID: "ORD_x", TotalPrice: 10, Status: "pending"},
	}}
	service, db := newTestService(t, stub)

	first, err := service.CreatePayment("ORD_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = service.CreatePayment("ORD_x")
	if !errors.Is(err, types.ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}

	var count int64
	db.Model(&Payment{}).Count(&count)
	if count != 1 {
		t.Errorf("expected a single payment row, got %d", count)
	}

	original, err := service.GetPayment(first.PaymentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if original.TransactionID != first.TransactionID || original.Status != first.Status {
		t.Error("duplicate attempt must leave the original payment untouched")
	}
}

func TestCreatePaymentOrderNotFound(t *testing.T) {
	stub := &stubOrderService{orders: map[string]types.OrderSnapshot{}}
	service, _ := newTestService(t, stub)

	_, err := service.CreatePayment("ORD_missing")
	if !errors.Is(err, types.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateStatusPropagatesToOrderService(t *testing.T) {
	stub := &stubOrderService{orders: map[string]types.OrderSnapshot{
		"ORD_x": {OrderID: "ORD_x", TotalPrice: 10, Status: "pending"},
	}}
	service, _ := newTestService(t, stub)

	payment, err := service.CreatePayment("ORD_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := service.UpdateStatus(payment.PaymentID, StatusPaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusPaid {
		t.Errorf("expected status paid, got %s", updated.Status)
	}

	stub.mu.Lock()
	calls := len(stub.statusCalls)
	var path string
	if calls > 0 {
		path = stub.statusCalls[0]
	}
	stub.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected one propagation call, got %d", calls)
	}
	if path != "/internal/orders/ORD_x/status" {
		t.Errorf("unexpected propagation path %s", path)
	}
}

func TestUpdateStatusSurvivesDownstreamFailure(t *testing.T) {
	stub := &stubOrderService{
		orders: map[string]types.OrderSnapshot{
			"ORD_x": {OrderID: "ORD_x", TotalPrice: 10, Status: "pending"},
		},
		statusBroken: true,
	}
	service, _ := newTestService(t, stub)

	payment, err := service.CreatePayment("ORD_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := service.UpdateStatus(payment.PaymentID, StatusFailed)
	if err != nil {
		t.Fatalf("local status write must survive downstream failure: %v", err)
	}
	if updated.Status != StatusFailed {
		t.Errorf("expected status failed, got %s", updated.Status)
	}

	persisted, err := service.GetPayment(payment.PaymentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if persisted.Status != StatusFailed {
		t.Errorf("status not persisted, got %s", persisted.Status)
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	stub := &stubOrderService{orders: map[string]types.OrderSnapshot{}}
	service, _ := newTestService(t, stub)

	_, err := service.UpdateStatus("PAY_x", "refunded")
	var validationErr *types.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeletePayment(t *testing.T) {
	stub := &stubOrderService{orders: map[string]types.OrderSnapshot{
		"ORD_x": {OrderID: "ORD_x", TotalPrice: 10, Status: "pending"},
	}}
	service, _ := newTestService(t, stub)

	payment, err := service.CreatePayment("ORD_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.DeletePayment(payment.PaymentID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.GetPayment(payment.PaymentID); !errors.Is(err, types.ErrPaymentNotFound) {
		t.Errorf("expected ErrPaymentNotFound after delete, got %v", err)
	}
}
