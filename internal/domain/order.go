package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderPaymentFailed  OrderStatus = "payment_failed"
)

// Settled reports whether the status is terminal.
func (s OrderStatus) Settled() bool {
	return s == OrderPaid || s == OrderPaymentFailed
}

type Order struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	CorrelationToken string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"-"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;default:'pending_payment';index" json:"status"`
	GatewayOrder     string          `gorm:"type:varchar(6);index" json:"gateway_order"`
	GatewayNonce     string          `gorm:"type:varchar(32)" json:"-"`
	Currency         string          `gorm:"type:varchar(3);not null" json:"currency"`
	ItemsSubtotal    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"items_subtotal"`
	DeliveryCost     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"delivery_cost"`
	Total            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	DeliveryZone     string          `gorm:"type:varchar(16)" json:"delivery_zone"`
	IsPickup         bool            `gorm:"not null;default:false" json:"is_pickup"`
	CustomerName     string          `gorm:"type:varchar(128)" json:"customer_name"`
	CustomerPhone    string          `gorm:"type:varchar(32)" json:"customer_phone"`
	DeliveryAddress  string          `gorm:"type:text" json:"delivery_address,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	Items            string          `gorm:"type:text" json:"items"`
	Notes            string          `gorm:"type:text" json:"notes,omitempty"`
	GatewayRC        string          `gorm:"type:varchar(8)" json:"gateway_rc,omitempty"`
	GatewayIntRef    string          `gorm:"type:varchar(64)" json:"gateway_int_ref,omitempty"`
	FailureReason    string          `gorm:"type:text" json:"failure_reason,omitempty"`
	SettledAt        *time.Time      `json:"settled_at,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// Settlement is the terminal transition applied to a pending order.
type Settlement struct {
	Status        OrderStatus
	GatewayRC     string
	GatewayIntRef string
	FailureReason string
	SettledAt     time.Time
}
