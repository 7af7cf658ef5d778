package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/cache"
	"storefront/internal/catalog"
	"storefront/internal/logger"
	"storefront/internal/models"
)

const (
	categoriesKey = "categories:all"
	categoriesTTL = 10 * time.Minute
)

type CategoryHandler struct {
	categories CategoryStore
	products   ProductStore
	cache      cache.Cache
	logger     *slog.Logger
}

func NewCategoryHandler(categories CategoryStore, products ProductStore, c cache.Cache, log *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		products:   products,
		cache:      c,
		logger:     logger.Resolve(log),
	}
}

// POST /api/v1/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	name, slug, ok := bindCategory(c)
	if !ok {
		return
	}

	category := &models.Category{Name: name, Slug: slug}
	if err := h.categories.Create(c.Request.Context(), category); err != nil {
		respondError(c, h.logger, err, "category")
		return
	}

	h.invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, category)
}

// PUT /api/v1/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	name, slug, ok := bindCategory(c)
	if !ok {
		return
	}

	category, err := h.categories.Rename(c.Request.Context(), c.Param("id"), name, slug)
	if err != nil {
		respondError(c, h.logger, err, "category")
		return
	}

	h.invalidate(c.Request.Context())
	c.JSON(http.StatusOK, category)
}

// GET /api/v1/categories
func (h *CategoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var categories []*models.Category
	if found, err := cache.GetJSON(ctx, h.cache, categoriesKey, &categories); err != nil {
		h.logger.Warn("cache read failed", "key", categoriesKey, "error", err)
	} else if found {
		c.JSON(http.StatusOK, gin.H{"categories": categories})
		return
	}

	categories, err := h.categories.List(ctx)
	if err != nil {
		respondError(c, h.logger, err, "category")
		return
	}

	if err := cache.SetJSON(ctx, h.cache, categoriesKey, categories, categoriesTTL); err != nil {
		h.logger.Warn("cache write failed", "key", categoriesKey, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GET /api/v1/categories/slug/:slug
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.categories.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err, "category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// DELETE /api/v1/categories/:id. Categories still referenced by products
// cannot be deleted.
func (h *CategoryHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	category, err := h.categories.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "category")
		return
	}

	inUse, err := h.products.CountByCategory(ctx, category.ID)
	if err != nil {
		respondError(c, h.logger, err, "category")
		return
	}
	if inUse > 0 {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "category still has products"})
		return
	}

	if err := h.categories.Delete(ctx, category.ID.Hex()); err != nil {
		respondError(c, h.logger, err, "category")
		return
	}

	h.invalidate(ctx)
	c.JSON(http.StatusOK, SuccessResponse{Message: "category deleted"})
}

func (h *CategoryHandler) invalidate(ctx context.Context) {
	if err := h.cache.Delete(ctx, categoriesKey); err != nil {
		h.logger.Warn("cache invalidation failed", "key", categoriesKey, "error", err)
	}
}

func bindCategory(c *gin.Context) (name, slug string, ok bool) {
	var input models.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return "", "", false
	}

	name = strings.TrimSpace(input.Name)
	slug = catalog.Slugify(name)
	if slug == "" {
		badRequest(c, "name must contain letters or digits")
		return "", "", false
	}
	return name, slug, true
}
