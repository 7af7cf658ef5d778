package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/catalog"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const (
	maxPhotoSize   = 1 << 20
	maxKeywordSize = 100

	productsPrefix  = "products:"
	productCountKey = "products:count"
	productTTL      = 5 * time.Minute
	listTTL         = 2 * time.Minute
	loadTimeout     = 10 * time.Second
)

var errPhotoTooLarge = errors.New("photo should be less than 1mb")

type ProductHandler struct {
	products   ProductStore
	categories CategoryStore
	cache      cache.Cache
	logger     *slog.Logger

	// loads collapses concurrent cache misses on the same key.
	loads singleflight.Group
}

type ProductListResponse struct {
	Page     int               `json:"page"`
	PerPage  int               `json:"per_page"`
	Products []*models.Product `json:"products"`
}

func NewProductHandler(products ProductStore, categories CategoryStore, c cache.Cache, log *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products:   products,
		categories: categories,
		cache:      c,
		logger:     logger.Resolve(log),
	}
}

// POST /api/v1/products (multipart form)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	product, ok := h.bindProduct(c)
	if !ok {
		return
	}

	if err := h.products.Create(c.Request.Context(), product); err != nil {
		respondError(c, h.logger, err, "product")
		return
	}

	h.invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, product)
}

// PUT /api/v1/products/:id (multipart form). The photo is optional and
// kept when omitted.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	product, ok := h.bindProduct(c)
	if !ok {
		return
	}

	updated, err := h.products.Update(c.Request.Context(), c.Param("id"), product)
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}

	h.invalidate(c.Request.Context())
	c.JSON(http.StatusOK, updated)
}

// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if _, err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "product")
		return
	}

	h.invalidate(c.Request.Context())
	c.JSON(http.StatusOK, SuccessResponse{Message: "product deleted"})
}

// GET /api/v1/products?page=N
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(catalog.DefaultPerPage)))
	page := catalog.Paginate(number, perPage)

	cacheKey := fmt.Sprintf("products:list:p%d_s%d", page.Number, page.PerPage)

	var response ProductListResponse
	if h.cached(ctx, cacheKey, &response) {
		c.JSON(http.StatusOK, response)
		return
	}

	v, err := h.load(ctx, cacheKey, func(ctx context.Context) (interface{}, error) {
		products, err := h.products.List(ctx, page)
		if err != nil {
			return nil, err
		}
		fresh := ProductListResponse{Page: page.Number, PerPage: page.PerPage, Products: products}
		h.store(ctx, cacheKey, fresh, listTTL)
		return fresh, nil
	})
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /api/v1/products/count
func (h *ProductHandler) CountProducts(c *gin.Context) {
	ctx := c.Request.Context()

	var total int64
	if h.cached(ctx, productCountKey, &total) {
		c.JSON(http.StatusOK, gin.H{"total": total})
		return
	}

	v, err := h.load(ctx, productCountKey, func(ctx context.Context) (interface{}, error) {
		total, err := h.products.Count(ctx)
		if err != nil {
			return nil, err
		}
		h.store(ctx, productCountKey, total, listTTL)
		return total, nil
	})
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": v})
}

// GET /api/v1/products/slug/:slug
func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")
	cacheKey := "products:slug:" + slug

	var product *models.Product
	if h.cached(ctx, cacheKey, &product) {
		c.JSON(http.StatusOK, product)
		return
	}

	v, err := h.load(ctx, cacheKey, func(ctx context.Context) (interface{}, error) {
		product, err := h.products.FindBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		h.store(ctx, cacheKey, product, productTTL)
		return product, nil
	})
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /api/v1/products/:id/photo
func (h *ProductHandler) GetPhoto(c *gin.Context) {
	photo, err := h.products.Photo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "photo")
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, photo.ContentType, photo.Data)
}

// POST /api/v1/products/filters
func (h *ProductHandler) FilterProducts(c *gin.Context) {
	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	categories, err := catalog.ParseObjectIDs(req.Checked)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	price, err := catalog.ParsePriceRange(req.Radio)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	products, err := h.products.Filter(c.Request.Context(), catalog.BuildFilter(categories, price))
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GET /api/v1/products/search/:keyword
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	keyword := strings.TrimSpace(c.Param("keyword"))
	if keyword == "" || utf8.RuneCountInString(keyword) > maxKeywordSize {
		badRequest(c, fmt.Sprintf("keyword must be 1 to %d characters", maxKeywordSize))
		return
	}

	products, err := h.products.Search(c.Request.Context(), keyword)
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GET /api/v1/products/:id/related
func (h *ProductHandler) RelatedProducts(c *gin.Context) {
	ctx := c.Request.Context()

	product, err := h.products.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}

	related, err := h.products.Related(ctx, product.ID, product.Category, catalog.RelatedLimit)
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": related})
}

// GET /api/v1/products/category/:slug
func (h *ProductHandler) ProductsByCategory(c *gin.Context) {
	ctx := c.Request.Context()

	category, err := h.categories.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err, "category")
		return
	}

	products, err := h.products.ByCategory(ctx, category.ID)
	if err != nil {
		respondError(c, h.logger, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "products": products})
}

// bindProduct reads and validates the product form, writing the error
// response itself when it returns false.
func (h *ProductHandler) bindProduct(c *gin.Context) (*models.Product, bool) {
	var input models.ProductInput
	if err := c.ShouldBindWith(&input, binding.Form); err != nil {
		badRequest(c, err.Error())
		return nil, false
	}

	name := strings.TrimSpace(input.Name)
	slug := catalog.Slugify(name)
	if slug == "" {
		badRequest(c, "name must contain letters or digits")
		return nil, false
	}

	category, err := h.categories.FindByID(c.Request.Context(), input.Category)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
		badRequest(c, "category does not exist")
		return nil, false
	}
	if err != nil {
		respondError(c, h.logger, err, "category")
		return nil, false
	}

	photo, err := readPhoto(c)
	if err != nil {
		badRequest(c, err.Error())
		return nil, false
	}

	return &models.Product{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		PriceCents:  *input.PriceCents,
		Category:    category.ID,
		Quantity:    *input.Quantity,
		Shipping:    input.Shipping,
		Photo:       photo,
	}, true
}

// readPhoto returns nil when the form carries no photo.
func readPhoto(c *gin.Context) (*models.Photo, error) {
	header, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid photo: %w", err)
	}
	if header.Size > maxPhotoSize {
		return nil, errPhotoTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("invalid photo: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("invalid photo: %w", err)
	}
	if len(data) > maxPhotoSize {
		return nil, errPhotoTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &models.Photo{Data: data, ContentType: contentType}, nil
}

// load runs fetch once for concurrent misses on key. The shared call is
// detached from the cancellation of the request that started it.
func (h *ProductHandler) load(ctx context.Context, key string, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	v, err, _ := h.loads.Do(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return fetch(ctx)
	})
	return v, err
}

func (h *ProductHandler) cached(ctx context.Context, key string, target interface{}) bool {
	found, err := cache.GetJSON(ctx, h.cache, key, target)
	if err != nil {
		h.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (h *ProductHandler) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := cache.SetJSON(ctx, h.cache, key, value, ttl); err != nil {
		h.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// invalidate drops every cached product view; any write can change a
// slug, a page or the count.
func (h *ProductHandler) invalidate(ctx context.Context) {
	if err := h.cache.DeleteByPrefix(ctx, productsPrefix); err != nil {
		h.logger.Warn("cache invalidation failed", "prefix", productsPrefix, "error", err)
	}
}
