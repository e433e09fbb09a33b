package domain

import "time"

// Column widths of payment_transactions; callback values are clamped to them
// before insert.
const (
	TxWidthCorrelationToken = 64
	TxWidthTerminal         = 16
	TxWidthTrType           = 4
	TxWidthAction           = 4
	TxWidthRC               = 8
	TxWidthApproval         = 16
	TxWidthRRN              = 32
	TxWidthIntRef           = 64
	TxWidthAmount           = 32
	TxWidthCurrency         = 3
	TxWidthGatewayOrder     = 6
	TxWidthNonce            = 64
	TxWidthCardMasked       = 32
)

// PaymentTransaction is an append-only audit row, one per gateway callback.
type PaymentTransaction struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	OrderID          *int64    `gorm:"index" json:"order_id,omitempty"`
	CorrelationToken string    `gorm:"type:varchar(64);index" json:"-"`
	Terminal         string    `gorm:"type:varchar(16)" json:"terminal"`
	TrType           string    `gorm:"type:varchar(4)" json:"trtype"`
	Action           string    `gorm:"type:varchar(4)" json:"action"`
	RC               string    `gorm:"type:varchar(8)" json:"rc"`
	Approval         string    `gorm:"type:varchar(16)" json:"approval,omitempty"`
	RRN              string    `gorm:"type:varchar(32)" json:"rrn,omitempty"`
	IntRef           string    `gorm:"type:varchar(64)" json:"int_ref,omitempty"`
	Amount           string    `gorm:"type:varchar(32)" json:"amount"`
	Currency         string    `gorm:"type:varchar(3)" json:"currency"`
	GatewayOrder     string    `gorm:"type:varchar(6)" json:"gateway_order"`
	Nonce            string    `gorm:"type:varchar(64)" json:"nonce"`
	CardMasked       string    `gorm:"type:varchar(32)" json:"card_masked,omitempty"`
	StatusMsg        string    `gorm:"type:text" json:"status_msg,omitempty"`
	SignatureValid   bool      `gorm:"not null" json:"signature_valid"`
	Outcome          string    `gorm:"type:varchar(16)" json:"outcome"`
	Applied          bool      `gorm:"not null" json:"applied"`
	Note             string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
