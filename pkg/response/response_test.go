package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ksred/order-api/internal/types"
)

func perform(t *testing.T, method string, fn func(c *gin.Context)) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(method, "/", nil)
	fn(c)

	var body Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return recorder, body
}

func TestSuccessUsesCreatedForPost(t *testing.T) {
	recorder, body := perform(t, http.MethodPost, func(c *gin.Context) {
		Handle(c, gin.H{"order_id": "ORD_x"}, nil)
	})
	if recorder.Code != http.StatusCreated {
		t.Errorf("expected 201 for POST, got %d", recorder.Code)
	}
	if !body.Success {
		t.Error("expected success envelope")
	}

	recorder, _ = perform(t, http.MethodGet, func(c *gin.Context) {
		Handle(c, gin.H{}, nil)
	})
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200 for GET, got %d", recorder.Code)
	}
}

func TestHandleInsufficientStock(t *testing.T) {
	recorder, body := perform(t, http.MethodPost, func(c *gin.Context) {
		Handle(c, nil, &types.InsufficientStockError{AvailableStock: 4})
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", recorder.Code)
	}
	if body.Error == nil || body.Error.Code != ErrCodeInsufficientStock {
		t.Fatalf("unexpected error payload: %+v", body.Error)
	}

	details, ok := body.Error.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("expected details object, got %T", body.Error.Details)
	}
	if stock, _ := details["available_stock"].(float64); stock != 4 {
		t.Errorf("expected available_stock 4, got %v", details["available_stock"])
	}
}

func TestHandleNotFoundSentinels(t *testing.T) {
	for _, err := range []error{
		types.ErrUserNotFound,
		types.ErrProductNotFound,
		types.ErrOrderNotFound,
		types.ErrPaymentNotFound,
	} {
		recorder, body := perform(t, http.MethodGet, func(c *gin.Context) {
			Handle(c, nil, err)
		})
		if recorder.Code != http.StatusNotFound {
			t.Errorf("%v: expected 404, got %d", err, recorder.Code)
		}
		if body.Error == nil || body.Error.Code != ErrCodeNotFound {
			t.Errorf("%v: unexpected error payload: %+v", err, body.Error)
		}
	}
}

func TestHandleDuplicatePayment(t *testing.T) {
	recorder, body := perform(t, http.MethodPost, func(c *gin.Context) {
		Handle(c, nil, types.ErrDuplicatePayment)
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", recorder.Code)
	}
	if body.Error == nil || body.Error.Code != ErrCodeDuplicatePayment {
		t.Errorf("unexpected error payload: %+v", body.Error)
	}
}

func TestHandleValidationError(t *testing.T) {
	recorder, body := perform(t, http.MethodPost, func(c *gin.Context) {
		Handle(c, nil, &types.ValidationError{Message: "quantity must be at least 1"})
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", recorder.Code)
	}
	if body.Error == nil || body.Error.Code != ErrCodeValidationFailed {
		t.Errorf("unexpected error payload: %+v", body.Error)
	}
}

func TestHandleInfrastructureErrors(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		err  error
		code string
	}{
		{&types.StockReservationError{Err: boom}, ErrCodeStockReservationFailed},
		{&types.StockUpdateError{Err: boom}, ErrCodeStockUpdateFailed},
		{&types.CompensationError{Op: "quantity revert", Err: boom}, ErrCodeCompensationFailed},
		{&types.UpstreamError{Op: "user lookup", Err: boom}, ErrCodeUpstreamUnavailable},
	}

	for _, tc := range cases {
		recorder, body := perform(t, http.MethodPost, func(c *gin.Context) {
			Handle(c, nil, tc.err)
		})
		if recorder.Code != http.StatusInternalServerError {
			t.Errorf("%v: expected 500, got %d", tc.err, recorder.Code)
		}
		if body.Error == nil || body.Error.Code != tc.code {
			t.Errorf("%v: expected code %s, got %+v", tc.err, tc.code, body.Error)
		}
	}
}
