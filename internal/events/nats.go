package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"storefront/internal/models"
)

const publishAttempts = 3

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

type NatsPublisher struct {
	nc         Conn
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewNatsPublisher connects to url, retrying the initial dial a few times.
func NewNatsPublisher(ctx context.Context, url string, logger *slog.Logger) (*NatsPublisher, error) {
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		var nc *nats.Conn
		nc, err = nats.Connect(url,
			nats.Name("storefront"),
			nats.MaxReconnects(5),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "error", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("nats reconnected", "url", nc.ConnectedUrl())
			}),
		)
		if err == nil {
			logger.Info("connected to nats", "url", url)
			return NewPublisherWithConn(nc, logger), nil
		}

		logger.Warn("failed to connect to nats", "attempt", attempt, "error", err)
		if attempt == publishAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to NATS: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to NATS after retries: %w", err)
}

func NewPublisherWithConn(nc Conn, logger *slog.Logger) *NatsPublisher {
	return &NatsPublisher{nc: nc, logger: logger, retryDelay: time.Second}
}

func (p *NatsPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, SubjectOrderCreated, order.ID.Hex(), newOrderCreatedEvent(order))
}

func (p *NatsPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, SubjectOrderStatusChanged, order.ID.Hex(), newOrderStatusChangedEvent(order))
}

func (p *NatsPublisher) publish(ctx context.Context, subject, orderID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = p.nc.Publish(subject, data); err == nil {
			err = p.nc.FlushTimeout(2 * time.Second)
		}
		if err == nil {
			p.logger.Debug("published event", "subject", subject, "order_id", orderID)
			return nil
		}

		p.logger.Warn("failed to publish event", "subject", subject, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retryDelay):
		}
	}
	return fmt.Errorf("failed to publish %s after retries: %w", subject, err)
}

// Close closes the connection in any state, including while reconnecting.
func (p *NatsPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("nats connection closed")
	}
}
