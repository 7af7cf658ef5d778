package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/database"
	"storefront/internal/models"
)

type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository returns a repository over the orders collection.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{
		collection: db.Collection(database.OrdersCollection),
	}
}

// Create stores a new order in the initial status.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	order.ID = primitive.NewObjectID()
	order.Status = models.StatusNotProcessed
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, order)
	return translate("insert order", err)
}

// ListByBuyer returns the orders of one user, newest first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	oid, err := objectID(buyerID)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, bson.M{"buyer": oid})
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]*models.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("find orders", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, translate("decode orders", err)
	}
	return orders, nil
}

// UpdateStatus sets the status of an order and returns the updated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&order); err != nil {
		return nil, translate("update order status", err)
	}
	return &order, nil
}
