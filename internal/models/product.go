package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog entry. The photo is stored inline and never
// serialized; it is served by its own endpoint.
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Slug        string             `json:"slug" bson:"slug"`
	Description string             `json:"description" bson:"description"`
	PriceCents  int64              `json:"price_cents" bson:"price_cents"`
	Category    primitive.ObjectID `json:"category" bson:"category"`
	Quantity    int                `json:"quantity" bson:"quantity"`
	Shipping    bool               `json:"shipping" bson:"shipping"`
	Photo       *Photo             `json:"-" bson:"photo,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

type Photo struct {
	Data        []byte `bson:"data"`
	ContentType string `bson:"content_type"`
}

// ProductInput holds the form fields accepted on create and update.
type ProductInput struct {
	Name        string `form:"name" binding:"required"`
	Description string `form:"description" binding:"required"`
	PriceCents  *int64 `form:"price_cents" binding:"required,gte=0"`
	Category    string `form:"category" binding:"required"`
	Quantity    *int   `form:"quantity" binding:"required,gte=0"`
	Shipping    bool   `form:"shipping"`
}

// FilterRequest selects products by category ids and an inclusive
// [min, max] price range in cents. Empty fields do not constrain.
type FilterRequest struct {
	Checked []string `json:"checked"`
	Radio   []int64  `json:"radio"`
}
