package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
	SizeJumbo  Size = "jumbo"
)

// SizeTiers is the canonical order used when a requested size has no price.
var SizeTiers = []Size{SizeSmall, SizeMedium, SizeLarge, SizeJumbo}

// CategoryPizza products charge every selected add-on.
const CategoryPizza = "pizza"

type Product struct {
	ID          int64               `gorm:"primaryKey" json:"id"`
	Name        string              `gorm:"type:varchar(128);not null" json:"name"`
	Category    string              `gorm:"type:varchar(32);not null;index" json:"category"`
	PriceSmall  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"price_small"`
	PriceMedium decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"price_medium"`
	PriceLarge  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"price_large"`
	PriceJumbo  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"price_jumbo"`
	Disabled    bool                `gorm:"not null;default:false" json:"disabled"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// PriceFor returns the price of a size tier, if the product has one.
func (p *Product) PriceFor(size Size) (decimal.Decimal, bool) {
	var v decimal.NullDecimal
	switch size {
	case SizeSmall:
		v = p.PriceSmall
	case SizeMedium:
		v = p.PriceMedium
	case SizeLarge:
		v = p.PriceLarge
	case SizeJumbo:
		v = p.PriceJumbo
	}
	if !v.Valid || v.Decimal.IsNegative() {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

type Addon struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(128);not null" json:"name"`
	Type      string          `gorm:"type:varchar(32);not null;index" json:"type"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Disabled  bool            `gorm:"not null;default:false" json:"disabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Addon) TableName() string { return "addons" }
