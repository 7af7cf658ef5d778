package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusNotProcessed OrderStatus = "Not Processed"
	StatusProcessing   OrderStatus = "Processing"
	StatusShipped      OrderStatus = "Shipped"
	StatusDelivered    OrderStatus = "Delivered"
	StatusCancelled    OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNotProcessed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// OrderItem snapshots the product name and price at the time of purchase.
type OrderItem struct {
	ProductID  primitive.ObjectID `json:"product_id" bson:"product_id"`
	Name       string             `json:"name" bson:"name"`
	PriceCents int64              `json:"price_cents" bson:"price_cents"`
	Quantity   int                `json:"quantity" bson:"quantity"`
}

type Payment struct {
	Method string `json:"method" bson:"method"`
	Status string `json:"status" bson:"status"`
}

type Order struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Buyer      primitive.ObjectID `json:"buyer" bson:"buyer"`
	Items      []OrderItem        `json:"items" bson:"items"`
	TotalCents int64              `json:"total_cents" bson:"total_cents"`
	Payment    Payment            `json:"payment" bson:"payment"`
	Status     OrderStatus        `json:"status" bson:"status"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

type OrderStatusInput struct {
	Status string `json:"status" binding:"required"`
}
