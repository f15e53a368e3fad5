package orders

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/order-api/pkg/response"
)

// GinHandlers contains HTTP handlers for order endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateOrderHandler handles POST requests to create orders through the
// creation saga
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.CreateOrder(req)
		response.Handle(c, order, err)
	}
}

// GetOrderHandler handles GET requests for a single order with its
// collaborator snapshots
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")

		detail, err := h.service.GetOrderDetail(orderID)
		response.Handle(c, detail, err)
	}
}

// ListOrdersHandler handles GET requests for all orders
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.service.ListOrders()
		response.Handle(c, orders, err)
	}
}

// ListUserOrdersHandler handles GET requests for a user's orders
func (h *GinHandlers) ListUserOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "user ID must be an integer")
			return
		}

		orders, err := h.service.ListOrdersByUser(userID)
		response.Handle(c, orders, err)
	}
}

// UpdateOrderHandler handles PUT requests to change an order's quantity
func (h *GinHandlers) UpdateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")

		var req UpdateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		detail, err := h.service.UpdateQuantity(orderID, req.Quantity)
		response.Handle(c, detail, err)
	}
}

// UpdateOrderStatusHandler handles PUT requests from collaborators to
// propagate a status change onto the local record
func (h *GinHandlers) UpdateOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")

		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.UpdateStatus(orderID, req.Status)
		response.Handle(c, order, err)
	}
}

// DeleteOrderHandler handles DELETE requests. Deletion does not release
// the remote stock reservation.
func (h *GinHandlers) DeleteOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")

		if err := h.service.DeleteOrder(orderID); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, gin.H{"message": "order deleted", "order_id": orderID})
	}
}
