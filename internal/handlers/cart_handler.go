package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/catalog"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repository"
)

type CartHandler struct {
	carts    CartStore
	products ProductStore
	logger   *slog.Logger
}

func NewCartHandler(carts CartStore, products ProductStore, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		logger:   logger.Resolve(log),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	h.respondCart(c, userID)
}

// PUT /api/v1/cart/items/:productId. Quantity 0 removes the line.
func (h *CartHandler) SetItem(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := middleware.UserID(c)

	productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}

	var input models.CartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	quantity := *input.Quantity

	if quantity == 0 {
		if err := h.carts.RemoveItem(ctx, userID, productID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			respondError(c, h.logger, err, "cart")
			return
		}
		h.respondCart(c, userID)
		return
	}

	product, err := h.products.FindByID(ctx, productID.Hex())
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	if quantity > product.Quantity {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "insufficient stock for " + product.Name})
		return
	}

	if err := h.carts.SetItem(ctx, userID, productID, quantity); err != nil {
		respondError(c, h.logger, err, "cart")
		return
	}
	h.respondCart(c, userID)
}

// DELETE /api/v1/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}

	if err := h.carts.RemoveItem(c.Request.Context(), userID, productID); err != nil {
		respondError(c, h.logger, err, "cart item")
		return
	}
	h.respondCart(c, userID)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if err := h.carts.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, h.logger, err, "cart")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) respondCart(c *gin.Context, userID string) {
	view, err := cartView(c.Request.Context(), h.carts, h.products, userID)
	if err != nil {
		respondError(c, h.logger, err, "cart")
		return
	}
	c.JSON(http.StatusOK, view)
}

// cartView joins the stored cart with current product data. Lines whose
// product has been deleted are left out.
func cartView(ctx context.Context, carts CartStore, products ProductStore, userID string) (*models.CartView, error) {
	cart, err := carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	byID, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{
			ProductID:     product.ID,
			Name:          product.Name,
			PriceCents:    product.PriceCents,
			Quantity:      item.Quantity,
			SubtotalCents: product.PriceCents * int64(item.Quantity),
		})
	}

	return &models.CartView{Items: lines, TotalCents: catalog.CartTotal(lines)}, nil
}
