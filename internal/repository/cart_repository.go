package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/database"
	"storefront/internal/models"
)

type CartRepository struct {
	collection *mongo.Collection
}

// NewCartRepository returns a repository over the carts collection.
func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{
		collection: db.Collection(database.CartsCollection),
	}
}

// Get returns the cart of a user. A user without a cart gets an empty one.
func (r *CartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	uid, err := objectID(userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var cart models.Cart
	err = r.collection.FindOne(ctx, bson.M{"user_id": uid}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.Cart{UserID: uid, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, translate("get cart", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// SetItem sets the quantity of a product in the cart, adding the line and
// creating the cart as needed.
func (r *CartRepository) SetItem(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) error {
	uid, err := objectID(userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	// A concurrent insert of the same cart surfaces as a duplicate key on
	// the upsert; the second pass then finds the line or the cart.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		updated, err := r.updateExisting(ctx, uid, productID, quantity)
		if err != nil || updated {
			return err
		}

		now := time.Now().UTC()
		filter := bson.M{
			"user_id":          uid,
			"items.product_id": bson.M{"$ne": productID},
		}
		update := bson.M{
			"$push":        bson.M{"items": models.CartItem{ProductID: productID, Quantity: quantity, AddedAt: now}},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}
		_, err = r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return translate("add cart item", err)
		}
		lastErr = err
	}
	return translate("add cart item", lastErr)
}

func (r *CartRepository) updateExisting(ctx context.Context, uid, productID primitive.ObjectID, quantity int) (bool, error) {
	filter := bson.M{"user_id": uid, "items.product_id": productID}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now().UTC(),
		},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.product_id": productID}},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, translate("update cart item", err)
	}
	return result.MatchedCount > 0, nil
}

// RemoveItem drops one product line. It returns ErrNotFound when the cart
// has no such line.
func (r *CartRepository) RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID) error {
	uid, err := objectID(userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	filter := bson.M{"user_id": uid, "items.product_id": productID}
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate("remove cart item", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear drops the cart of a user. Clearing a missing cart is not an error.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	uid, err := objectID(userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err = r.collection.DeleteOne(ctx, bson.M{"user_id": uid})
	return translate("clear cart", err)
}
