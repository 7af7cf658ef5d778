package events

import (
	"context"
	"time"

	"storefront/internal/models"
)

const (
	SubjectOrderCreated       = "order.created"
	SubjectOrderStatusChanged = "order.status_changed"
)

// Publisher announces order lifecycle events to other systems.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order) error
	Close()
}

type OrderCreatedEvent struct {
	OrderID    string `json:"order_id"`
	BuyerID    string `json:"buyer_id"`
	TotalCents int64  `json:"total_cents"`
	ItemCount  int    `json:"item_count"`
	CreatedAt  string `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   string `json:"order_id"`
	BuyerID   string `json:"buyer_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

func newOrderCreatedEvent(order *models.Order) OrderCreatedEvent {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return OrderCreatedEvent{
		OrderID:    order.ID.Hex(),
		BuyerID:    order.Buyer.Hex(),
		TotalCents: order.TotalCents,
		ItemCount:  count,
		CreatedAt:  order.CreatedAt.Format(time.RFC3339),
	}
}

func newOrderStatusChangedEvent(order *models.Order) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:   order.ID.Hex(),
		BuyerID:   order.Buyer.Hex(),
		Status:    string(order.Status),
		UpdatedAt: order.UpdatedAt.Format(time.RFC3339),
	}
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishOrderCreated(context.Context, *models.Order) error       { return nil }
func (Noop) PublishOrderStatusChanged(context.Context, *models.Order) error { return nil }
func (Noop) Close()                                                         {}
