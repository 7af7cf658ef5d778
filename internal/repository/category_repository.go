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

type CategoryRepository struct {
	collection *mongo.Collection
}

// NewCategoryRepository returns a repository over the categories collection.
func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{
		collection: db.Collection(database.CategoriesCollection),
	}
}

// Create inserts a category and sets its id and timestamps. A taken name
// or slug yields ErrDuplicate.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	category.ID = primitive.NewObjectID()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, category)
	return translate("insert category", err)
}

// Rename changes the name and slug of a category and returns the result.
func (r *CategoryRepository) Rename(ctx context.Context, id, name, slug string) (*models.Category, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":       name,
		"slug":       slug,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var category models.Category
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&category); err != nil {
		return nil, translate("update category", err)
	}
	return &category, nil
}

// List returns every category sorted by name.
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate("find categories", err)
	}
	defer cursor.Close(ctx)

	categories := make([]*models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, translate("decode categories", err)
	}
	return categories, nil
}

// FindByID looks a category up by its hex id.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindBySlug looks a category up by its slug.
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *CategoryRepository) findOne(ctx context.Context, filter bson.M) (*models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var category models.Category
	if err := r.collection.FindOne(ctx, filter).Decode(&category); err != nil {
		return nil, translate("find category", err)
	}
	return &category, nil
}

// Delete removes a category. It does not check for products that still
// reference it.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translate("delete category", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
