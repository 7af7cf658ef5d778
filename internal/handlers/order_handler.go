package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/catalog"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

const publishTimeout = 10 * time.Second

// Orders are recorded without payment capture.
var offlinePayment = models.Payment{Method: "offline", Status: "pending"}

type OrderHandler struct {
	orders    OrderStore
	carts     CartStore
	products  ProductStore
	publisher events.Publisher
	logger    *slog.Logger
}

func NewOrderHandler(orders OrderStore, carts CartStore, products ProductStore, publisher events.Publisher, log *slog.Logger) *OrderHandler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &OrderHandler{
		orders:    orders,
		carts:     carts,
		products:  products,
		publisher: publisher,
		logger:    logger.Resolve(log),
	}
}

// POST /api/v1/orders places an order for everything in the caller's cart.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := middleware.UserID(c)

	buyer, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token subject"})
		return
	}

	cart, err := h.carts.Get(ctx, userID)
	if err != nil {
		respondError(c, h.logger, err, "cart")
		return
	}
	if len(cart.Items) == 0 {
		badRequest(c, "cart is empty")
		return
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := h.products.FindByIDs(ctx, ids)
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "product no longer available: " + item.ProductID.Hex()})
			return
		}
		if item.Quantity > product.Quantity {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "insufficient stock for " + product.Name})
			return
		}
		items = append(items, models.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Quantity:   item.Quantity,
		})
	}

	order := &models.Order{
		Buyer:      buyer,
		Items:      items,
		TotalCents: catalog.OrderTotal(items),
		Payment:    offlinePayment,
	}
	if err := h.orders.Create(ctx, order); err != nil {
		respondError(c, h.logger, err, "order")
		return
	}

	if err := h.carts.Clear(ctx, userID); err != nil {
		h.logger.Warn("failed to clear cart after order", "user_id", userID, "order_id", order.ID.Hex(), "error", err)
	}

	h.logger.Info("order placed", "order_id", order.ID.Hex(), "user_id", userID, "total_cents", order.TotalCents)
	h.publishAsync("order.created", order, h.publisher.PublishOrderCreated)

	c.JSON(http.StatusCreated, order)
}

// GET /api/v1/orders
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	orders, err := h.orders.ListByBuyer(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GET /api/v1/orders/all
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	orders, err := h.orders.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// PUT /api/v1/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var input models.OrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	status := models.OrderStatus(input.Status)
	if !status.Valid() {
		badRequest(c, "invalid order status")
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, h.logger, err, "order")
		return
	}

	h.publishAsync("order.status_changed", order, h.publisher.PublishOrderStatusChanged)
	c.JSON(http.StatusOK, order)
}

// publishAsync sends the event off the request path; failures are logged
// only.
func (h *OrderHandler) publishAsync(event string, order *models.Order, publish func(context.Context, *models.Order) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := publish(ctx, order); err != nil {
			h.logger.Warn("failed to publish event", "event", event, "order_id", order.ID.Hex(), "error", err)
		}
	}()
}
