package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/catalog"
	"storefront/internal/models"
)

// The handlers depend on these interfaces; the Mongo repositories
// implement them.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, fields bson.M) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type CategoryStore interface {
	Create(ctx context.Context, category *models.Category) error
	Rename(ctx context.Context, id, name, slug string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	FindByID(ctx context.Context, id string) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Delete(ctx context.Context, id string) error
}

type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error)
	Photo(ctx context.Context, id string) (*models.Photo, error)
	List(ctx context.Context, page catalog.Page) ([]*models.Product, error)
	Count(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
	Filter(ctx context.Context, filter bson.M) ([]*models.Product, error)
	Search(ctx context.Context, keyword string) ([]*models.Product, error)
	Related(ctx context.Context, productID, categoryID primitive.ObjectID, limit int64) ([]*models.Product, error)
	ByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]*models.Product, error)
	Update(ctx context.Context, id string, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id string) (*models.Product, error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	SetItem(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) error
	RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID) error
	Clear(ctx context.Context, userID string) error
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}
