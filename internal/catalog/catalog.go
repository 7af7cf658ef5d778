// Package catalog holds the query building and arithmetic shared by the
// product, cart and order handlers.
package catalog

import (
	"errors"
	"math"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 6
	MaxPerPage     = 100
	RelatedLimit   = 3

	// MaxPage keeps the skip offset within 32 bits at any page size.
	MaxPage = math.MaxInt32 / MaxPerPage
)

var (
	ErrInvalidPriceRange = errors.New("price range must be [min, max] with 0 <= min <= max")
	ErrInvalidCategoryID = errors.New("invalid category id")
)

// Slugify derives the URL slug for a product or category name.
func Slugify(name string) string {
	return slug.Make(name)
}

// PriceRange is an inclusive range in cents.
type PriceRange struct {
	Min int64
	Max int64
}

// ParsePriceRange accepts an empty slice (no constraint) or exactly two
// bounds.
func ParsePriceRange(bounds []int64) (*PriceRange, error) {
	if len(bounds) == 0 {
		return nil, nil
	}
	if len(bounds) != 2 || bounds[0] < 0 || bounds[1] < bounds[0] {
		return nil, ErrInvalidPriceRange
	}
	return &PriceRange{Min: bounds[0], Max: bounds[1]}, nil
}

func ParseObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, ErrInvalidCategoryID
		}
		out = append(out, oid)
	}
	return out, nil
}

// BuildFilter turns the storefront filter sidebar selection into a product
// query.
func BuildFilter(categories []primitive.ObjectID, price *PriceRange) bson.M {
	filter := bson.M{}
	if len(categories) > 0 {
		filter["category"] = bson.M{"$in": categories}
	}
	if price != nil {
		filter["price_cents"] = bson.M{"$gte": price.Min, "$lte": price.Max}
	}
	return filter
}

type Page struct {
	Number  int
	PerPage int
}

// Paginate clamps page parameters to sane values.
func Paginate(number, perPage int) Page {
	switch {
	case number < 1:
		number = DefaultPage
	case number > MaxPage:
		number = MaxPage
	}
	switch {
	case perPage < 1:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

func (p Page) Skip() int64 {
	if p.Number < 1 {
		return 0
	}
	return int64(p.Number-1) * int64(p.PerPage)
}

func (p Page) Limit() int64 {
	return int64(p.PerPage)
}

func OrderTotal(items []models.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.PriceCents * int64(item.Quantity)
	}
	return total
}

func CartTotal(lines []models.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.SubtotalCents
	}
	return total
}
