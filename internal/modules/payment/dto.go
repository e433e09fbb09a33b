package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"foodorder/internal/domain"
	"foodorder/internal/modules/pricing"
	"foodorder/internal/pkg/borica"
)

type InitiateRequest struct {
	Items       []pricing.LineItem    `json:"items" binding:"required,min=1,max=100"`
	IsPickup    bool                  `json:"is_pickup"`
	Location    *pricing.Point        `json:"location"`
	Address     string                `json:"address" binding:"max=255"`
	Notes       string                `json:"notes" binding:"max=500"`
	Phone       string                `json:"phone" binding:"required,max=32"`
	Cardholder  borica.CardholderInfo `json:"cardholder"`
	ClientTotal decimal.Decimal       `json:"total"`
	Lang        string                `json:"lang" binding:"omitempty,oneof=BG EN bg en"`
}

// InitiateResult carries the auto-submit form for the browser.
type InitiateResult struct {
	OrderID   int64
	Form      []byte
	Breakdown *pricing.Breakdown
}

// CallbackResult always carries a redirect target, even when err != nil.
type CallbackResult struct {
	OrderID     int64
	Outcome     borica.Outcome
	Applied     bool
	RedirectURL string
}

type PendingOrderResponse struct {
	ID           int64           `json:"id"`
	GatewayOrder string          `json:"gateway_order"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	CreatedAt    time.Time       `json:"created_at"`
	Age          string          `json:"age"`
}

type TransactionResponse struct {
	ID             int64     `json:"id"`
	Action         string    `json:"action"`
	RC             string    `json:"rc"`
	Outcome        string    `json:"outcome"`
	SignatureValid bool      `json:"signature_valid"`
	Applied        bool      `json:"applied"`
	Amount         string    `json:"amount"`
	IntRef         string    `json:"int_ref,omitempty"`
	Approval       string    `json:"approval,omitempty"`
	CardMasked     string    `json:"card_masked,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toPendingOrderResponse(o domain.Order, now time.Time) PendingOrderResponse {
	return PendingOrderResponse{
		ID:           o.ID,
		GatewayOrder: o.GatewayOrder,
		Total:        o.Total,
		Currency:     o.Currency,
		CustomerName: o.CustomerName,
		Phone:        o.CustomerPhone,
		CreatedAt:    o.CreatedAt,
		Age:          now.Sub(o.CreatedAt).Truncate(time.Second).String(),
	}
}

func toTransactionResponse(t domain.PaymentTransaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID,
		Action:         t.Action,
		RC:             t.RC,
		Outcome:        t.Outcome,
		SignatureValid: t.SignatureValid,
		Applied:        t.Applied,
		Amount:         t.Amount,
		IntRef:         t.IntRef,
		Approval:       t.Approval,
		CardMasked:     t.CardMasked,
		Note:           t.Note,
		CreatedAt:      t.CreatedAt,
	}
}

type ErrorResponse struct {
	Success bool `json:"success" example:"false"`
	Error   struct {
		Code    string `json:"code" example:"PRICE_MISMATCH"`
		Message string `json:"message" example:"cart total is out of date"`
	} `json:"error"`
}
