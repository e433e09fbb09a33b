package catalog

import (
	"github.com/shopspring/decimal"

	"foodorder/internal/domain"
	"foodorder/internal/modules/pricing"
)

type MenuProduct struct {
	ID     int64                           `json:"id"`
	Name   string                          `json:"name"`
	Prices map[domain.Size]decimal.Decimal `json:"prices"`
}

type MenuCategory struct {
	Name     string        `json:"name"`
	Products []MenuProduct `json:"products"`
}

type MenuResponse struct {
	Categories []MenuCategory `json:"categories"`
	Addons     []domain.Addon `json:"addons"`
}

type QuoteRequest struct {
	Items    []pricing.LineItem `json:"items" binding:"required,min=1,max=100"`
	IsPickup bool               `json:"is_pickup"`
	Location *pricing.Point     `json:"location"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

func toMenuProduct(p domain.Product) MenuProduct {
	prices := make(map[domain.Size]decimal.Decimal, len(domain.SizeTiers))
	for _, size := range domain.SizeTiers {
		if v, ok := p.PriceFor(size); ok {
			prices[size] = v
		}
	}
	return MenuProduct{ID: p.ID, Name: p.Name, Prices: prices}
}
