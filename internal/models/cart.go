package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartItem struct {
	ProductID primitive.ObjectID `json:"product_id" bson:"product_id"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	AddedAt   time.Time          `json:"added_at" bson:"added_at"`
}

// Cart is the server side cart of one user.
type Cart struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Items     []CartItem         `json:"items" bson:"items"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type CartItemInput struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// CartLine is a cart item joined with the current product data.
type CartLine struct {
	ProductID     primitive.ObjectID `json:"product_id"`
	Name          string             `json:"name"`
	PriceCents    int64              `json:"price_cents"`
	Quantity      int                `json:"quantity"`
	SubtotalCents int64              `json:"subtotal_cents"`
}

type CartView struct {
	Items      []CartLine `json:"items"`
	TotalCents int64      `json:"total_cents"`
}
