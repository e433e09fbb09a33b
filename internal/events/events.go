package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSettled is emitted once, when an order leaves pending_payment.
type OrderSettled struct {
	EventID       string          `json:"event_id"`
	OrderID       int64           `json:"order_id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	GatewayRC     string          `json:"gateway_rc,omitempty"`
	GatewayIntRef string          `json:"gateway_int_ref,omitempty"`
	IsPickup      bool            `json:"is_pickup"`
	SettledAt     time.Time       `json:"settled_at"`
}

type Publisher interface {
	PublishOrderSettled(ctx context.Context, e OrderSettled) error
	Close() error
}

// Noop drops events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishOrderSettled(context.Context, OrderSettled) error { return nil }
func (Noop) Close() error { return nil }
