package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "handlers-test-secret"

func newTokens() *auth.TokenManager {
	return auth.NewTokenManager(testSecret, time.Hour)
}

func bearer(t *testing.T, tokens *auth.TokenManager, user *models.User) string {
	t.Helper()
	token, err := tokens.Issue(user)
	require.NoError(t, err)
	return "Bearer " + token
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func perform(r http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
}

// MockUserStore

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, id string, fields bson.M) (*models.User, error) {
	args := m.Called(ctx, id, fields)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

// MockCategoryStore

type MockCategoryStore struct {
	mock.Mock
}

func (m *MockCategoryStore) Create(ctx context.Context, category *models.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockCategoryStore) Rename(ctx context.Context, id, name, slug string) (*models.Category, error) {
	args := m.Called(ctx, id, name, slug)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (m *MockCategoryStore) List(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]*models.Category)
	return categories, args.Error(1)
}

func (m *MockCategoryStore) FindByID(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(ctx, id)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (m *MockCategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(ctx, slug)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (m *MockCategoryStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockProductStore

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) Create(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *MockProductStore) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	args := m.Called(ctx, slug)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *MockProductStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	args := m.Called(ctx, ids)
	products, _ := args.Get(0).(map[primitive.ObjectID]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductStore) Photo(ctx context.Context, id string) (*models.Photo, error) {
	args := m.Called(ctx, id)
	photo, _ := args.Get(0).(*models.Photo)
	return photo, args.Error(1)
}

func (m *MockProductStore) List(ctx context.Context, page catalog.Page) ([]*models.Product, error) {
	args := m.Called(ctx, page)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductStore) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductStore) Filter(ctx context.Context, filter bson.M) ([]*models.Product, error) {
	args := m.Called(ctx, filter)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductStore) Search(ctx context.Context, keyword string) ([]*models.Product, error) {
	args := m.Called(ctx, keyword)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductStore) Related(ctx context.Context, productID, categoryID primitive.ObjectID, limit int64) ([]*models.Product, error) {
	args := m.Called(ctx, productID, categoryID, limit)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductStore) ByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]*models.Product, error) {
	args := m.Called(ctx, categoryID)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductStore) Update(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	args := m.Called(ctx, id, product)
	updated, _ := args.Get(0).(*models.Product)
	return updated, args.Error(1)
}

func (m *MockProductStore) Delete(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

// MockCartStore

type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) Get(ctx context.Context, userID string) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *MockCartStore) SetItem(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *MockCartStore) RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *MockCartStore) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// MockOrderStore

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) Create(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderStore) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	args := m.Called(ctx, buyerID)
	orders, _ := args.Get(0).([]*models.Order)
	return orders, args.Error(1)
}

func (m *MockOrderStore) ListAll(ctx context.Context) ([]*models.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]*models.Order)
	return orders, args.Error(1)
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

// MockPublisher

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockPublisher) Close() {
	m.Called()
}
