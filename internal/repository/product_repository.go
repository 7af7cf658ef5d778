package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/catalog"
	"storefront/internal/database"
	"storefront/internal/models"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 3 * time.Second
	queryTimeout = 10 * time.Second
)

// listProjection keeps the photo bytes out of every listing.
var listProjection = bson.M{"photo": 0}

type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository returns a repository over the products collection.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{
		collection: db.Collection(database.ProductsCollection),
	}
}

// Create inserts a product and sets its id and timestamps.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, product)
	return translate("insert product", err)
}

// FindByID looks a product up by its hex id, without the photo.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindBySlug looks a product up by its slug, without the photo.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var product models.Product
	opts := options.FindOne().SetProjection(listProjection)
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&product); err != nil {
		return nil, translate("find product", err)
	}
	return &product, nil
}

// FindByIDs returns the products that still exist among ids, keyed by id.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	out := make(map[primitive.ObjectID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	products, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Photo returns only the stored photo of a product.
func (r *ProductRepository) Photo(ctx context.Context, id string) (*models.Photo, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var doc struct {
		Photo *models.Photo `bson:"photo"`
	}
	opts := options.FindOne().SetProjection(bson.M{"photo": 1})
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		return nil, translate("find product photo", err)
	}
	if doc.Photo == nil || len(doc.Photo.Data) == 0 {
		return nil, ErrNotFound
	}
	return doc.Photo, nil
}

// List returns one page of products, newest first.
func (r *ProductRepository) List(ctx context.Context, page catalog.Page) ([]*models.Product, error) {
	opts := options.Find().
		SetSkip(page.Skip()).
		SetLimit(page.Limit())
	return r.find(ctx, bson.M{}, opts)
}

// Count returns the collection size from its metadata.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	total, err := r.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, translate("count products", err)
	}
	return total, nil
}

// CountByCategory returns how many products reference a category.
func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	total, err := r.collection.CountDocuments(ctx, bson.M{"category": categoryID})
	if err != nil {
		return 0, translate("count products", err)
	}
	return total, nil
}

// Filter runs a query built by catalog.BuildFilter.
func (r *ProductRepository) Filter(ctx context.Context, filter bson.M) ([]*models.Product, error) {
	return r.find(ctx, filter, options.Find())
}

// Search matches keyword case-insensitively against name and description.
func (r *ProductRepository) Search(ctx context.Context, keyword string) ([]*models.Product, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
	filter := bson.M{
		"$or": []bson.M{
			{"name": pattern},
			{"description": pattern},
		},
	}
	return r.find(ctx, filter, options.Find())
}

// Related returns up to limit other products in the same category.
func (r *ProductRepository) Related(ctx context.Context, productID, categoryID primitive.ObjectID, limit int64) ([]*models.Product, error) {
	filter := bson.M{
		"category": categoryID,
		"_id":      bson.M{"$ne": productID},
	}
	return r.find(ctx, filter, options.Find().SetLimit(limit))
}

// ByCategory returns every product in a category, newest first.
func (r *ProductRepository) ByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]*models.Product, error) {
	return r.find(ctx, bson.M{"category": categoryID}, options.Find())
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts.SetProjection(listProjection)
	if opts.Sort == nil {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("find products", err)
	}
	defer cursor.Close(ctx)

	products := make([]*models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, translate("decode products", err)
	}
	return products, nil
}

// Update replaces the editable fields of a product. A nil photo keeps the
// stored one.
func (r *ProductRepository) Update(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	set := bson.M{
		"name":        product.Name,
		"slug":        product.Slug,
		"description": product.Description,
		"price_cents": product.PriceCents,
		"category":    product.Category,
		"quantity":    product.Quantity,
		"shipping":    product.Shipping,
		"updated_at":  time.Now().UTC(),
	}
	if product.Photo != nil {
		set["photo"] = product.Photo
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(listProjection)

	var updated models.Product
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return nil, translate("update product", err)
	}
	return &updated, nil
}

// Delete removes a product and returns the removed document.
func (r *ProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var deleted models.Product
	opts := options.FindOneAndDelete().SetProjection(listProjection)
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}, opts).Decode(&deleted); err != nil {
		return nil, translate("delete product", err)
	}
	return &deleted, nil
}
