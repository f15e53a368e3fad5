package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ksred/order-api/internal/types"
	"gorm.io/gorm"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Common error codes
const (
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeBadRequest             = "BAD_REQUEST"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeInternalError          = "INTERNAL_ERROR"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeDuplicateResource      = "DUPLICATE_RESOURCE"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeDuplicatePayment       = "DUPLICATE_PAYMENT"
	ErrCodeUpstreamUnavailable    = "UPSTREAM_UNAVAILABLE"
	ErrCodeStockReservationFailed = "STOCK_RESERVATION_FAILED"
	ErrCodeStockUpdateFailed      = "STOCK_UPDATE_FAILED"
	ErrCodeCompensationFailed     = "COMPENSATION_FAILED"
)

// Handle processes the error and returns appropriate response
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		Conflict(c, "Resource already exists")
	default:
		handleError(c, err)
	}
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == "POST" {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeNotFound,
			Message: message,
		},
	})
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeBadRequest,
			Message: message,
		},
	})
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeUnauthorized,
			Message: message,
		},
	})
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeForbidden,
			Message: message,
		},
	})
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeInternalError,
			Message: message,
		},
	})
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeDuplicateResource,
			Message: message,
		},
	})
}

// UnprocessableEntity sends a 422 response with an optional details payload
func UnprocessableEntity(c *gin.Context, code, message string, details interface{}) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func internalError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

// handleError maps domain errors onto their response shapes
func handleError(c *gin.Context, err error) {
	var (
		validationErr   *types.ValidationError
		stockErr        *types.InsufficientStockError
		upstreamErr     *types.UpstreamError
		reservationErr  *types.StockReservationError
		stockUpdateErr  *types.StockUpdateError
		compensationErr *types.CompensationError
	)

	switch {
	case errors.As(err, &validationErr):
		UnprocessableEntity(c, ErrCodeValidationFailed, validationErr.Error(), nil)
	case errors.As(err, &stockErr):
		UnprocessableEntity(c, ErrCodeInsufficientStock, stockErr.Error(), gin.H{
			"available_stock": stockErr.AvailableStock,
		})
	case errors.Is(err, types.ErrDuplicatePayment):
		UnprocessableEntity(c, ErrCodeDuplicatePayment, err.Error(), nil)
	case errors.Is(err, types.ErrUserNotFound),
		errors.Is(err, types.ErrProductNotFound),
		errors.Is(err, types.ErrOrderNotFound),
		errors.Is(err, types.ErrPaymentNotFound):
		NotFound(c, err.Error())
	case errors.As(err, &compensationErr):
		internalError(c, ErrCodeCompensationFailed, compensationErr.Error())
	case errors.As(err, &stockUpdateErr):
		internalError(c, ErrCodeStockUpdateFailed, stockUpdateErr.Error())
	case errors.As(err, &reservationErr):
		internalError(c, ErrCodeStockReservationFailed, reservationErr.Error())
	case errors.As(err, &upstreamErr):
		internalError(c, ErrCodeUpstreamUnavailable, upstreamErr.Error())
	default:
		InternalError(c, "An unexpected error occurred")
	}
}
