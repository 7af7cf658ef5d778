package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/repository"
)

func newCategoryRouter(t *testing.T, categories *MockCategoryStore, products *MockProductStore) (*gin.Engine, *cache.Memory) {
	mem := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	h := NewCategoryHandler(categories, products, mem, discard)
	r := gin.New()
	r.POST("/categories", h.Create)
	r.PUT("/categories/:id", h.Update)
	r.GET("/categories", h.List)
	r.GET("/categories/slug/:slug", h.GetBySlug)
	r.DELETE("/categories/:id", h.Delete)
	return r, mem
}

func TestCreateCategory(t *testing.T) {
	t.Run("derives slug from name", func(t *testing.T) {
		categories := new(MockCategoryStore)
		categories.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Category) bool {
			return c.Name == "Running Shoes" && c.Slug == "running-shoes"
		})).Return(nil)
		r, _ := newCategoryRouter(t, categories, new(MockProductStore))

		rec := perform(r, http.MethodPost, "/categories", jsonBody(t, gin.H{"name": "  Running Shoes "}), nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"slug":"running-shoes"`)
		categories.AssertExpectations(t)
	})

	t.Run("name without letters", func(t *testing.T) {
		categories := new(MockCategoryStore)
		r, _ := newCategoryRouter(t, categories, new(MockProductStore))

		rec := perform(r, http.MethodPost, "/categories", jsonBody(t, gin.H{"name": "!!!"}), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		categories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate", func(t *testing.T) {
		categories := new(MockCategoryStore)
		categories.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)
		r, _ := newCategoryRouter(t, categories, new(MockProductStore))

		rec := perform(r, http.MethodPost, "/categories", jsonBody(t, gin.H{"name": "Shoes"}), nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"category already exists"}`, rec.Body.String())
	})
}

func TestUpdateCategory(t *testing.T) {
	id := primitive.NewObjectID()
	categories := new(MockCategoryStore)
	categories.On("Rename", mock.Anything, id.Hex(), "Trail Shoes", "trail-shoes").
		Return(&models.Category{ID: id, Name: "Trail Shoes", Slug: "trail-shoes"}, nil)
	categories.On("Rename", mock.Anything, "bogus", mock.Anything, mock.Anything).Return(nil, repository.ErrInvalidID)
	r, _ := newCategoryRouter(t, categories, new(MockProductStore))

	rec := perform(r, http.MethodPut, "/categories/"+id.Hex(), jsonBody(t, gin.H{"name": "Trail Shoes"}), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(r, http.MethodPut, "/categories/bogus", jsonBody(t, gin.H{"name": "Trail Shoes"}), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCategoriesIsCached(t *testing.T) {
	categories := new(MockCategoryStore)
	categories.On("List", mock.Anything).Return([]*models.Category{
		{ID: primitive.NewObjectID(), Name: "Bags", Slug: "bags"},
	}, nil)
	categories.On("Create", mock.Anything, mock.Anything).Return(nil)
	r, mem := newCategoryRouter(t, categories, new(MockProductStore))

	for i := 0; i < 3; i++ {
		rec := perform(r, http.MethodGet, "/categories", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"slug":"bags"`)
	}
	categories.AssertNumberOfCalls(t, "List", 1)

	_, err := mem.Get(context.Background(), categoriesKey)
	require.NoError(t, err)

	rec := perform(r, http.MethodPost, "/categories", jsonBody(t, gin.H{"name": "Hats"}), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, err = mem.Get(context.Background(), categoriesKey)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	perform(r, http.MethodGet, "/categories", nil, nil)
	categories.AssertNumberOfCalls(t, "List", 2)
}

func TestGetCategoryBySlug(t *testing.T) {
	categories := new(MockCategoryStore)
	categories.On("FindBySlug", mock.Anything, "bags").Return(&models.Category{Name: "Bags", Slug: "bags"}, nil)
	categories.On("FindBySlug", mock.Anything, "hats").Return(nil, repository.ErrNotFound)
	r, _ := newCategoryRouter(t, categories, new(MockProductStore))

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/categories/slug/bags", nil, nil).Code)

	rec := perform(r, http.MethodGet, "/categories/slug/hats", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"category not found"}`, rec.Body.String())
}

func TestDeleteCategory(t *testing.T) {
	id := primitive.NewObjectID()
	category := &models.Category{ID: id, Name: "Bags", Slug: "bags"}

	tests := []struct {
		name     string
		setup    func(*MockCategoryStore, *MockProductStore)
		wantCode int
	}{
		{
			name: "deletes unused category",
			setup: func(c *MockCategoryStore, p *MockProductStore) {
				c.On("FindByID", mock.Anything, id.Hex()).Return(category, nil)
				p.On("CountByCategory", mock.Anything, id).Return(int64(0), nil)
				c.On("Delete", mock.Anything, id.Hex()).Return(nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name: "refuses category with products",
			setup: func(c *MockCategoryStore, p *MockProductStore) {
				c.On("FindByID", mock.Anything, id.Hex()).Return(category, nil)
				p.On("CountByCategory", mock.Anything, id).Return(int64(2), nil)
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "missing category",
			setup: func(c *MockCategoryStore, p *MockProductStore) {
				c.On("FindByID", mock.Anything, id.Hex()).Return(nil, repository.ErrNotFound)
			},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categories := new(MockCategoryStore)
			products := new(MockProductStore)
			tt.setup(categories, products)
			r, _ := newCategoryRouter(t, categories, products)

			rec := perform(r, http.MethodDelete, "/categories/"+id.Hex(), nil, nil)

			assert.Equal(t, tt.wantCode, rec.Code)
			categories.AssertExpectations(t)
			products.AssertExpectations(t)
		})
	}
}
