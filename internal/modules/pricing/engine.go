package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"foodorder/internal/domain"
)

// DefaultFreeAddonsPerType is how many add-ons of one type are free on non-pizza items.
const DefaultFreeAddonsPerType = 3

// MaxQuantity caps a single line.
const MaxQuantity = 50

type ProductReader interface {
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
}

type AddonReader interface {
	GetAddonsByIDs(ctx context.Context, ids []int64) ([]domain.Addon, error)
}

// LineItem is a cart line as submitted by the client.
// ProductID is nil for combination items priced as one unit.
type LineItem struct {
	ProductID   *int64          `json:"product_id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Size        domain.Size     `json:"size"`
	Quantity    int             `json:"quantity"`
	AddonIDs    []int64         `json:"addon_ids"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ClientTotal decimal.Decimal `json:"price"`
}

type AddonCharge struct {
	AddonID int64           `json:"addon_id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Price   decimal.Decimal `json:"price"`
	Free    bool            `json:"free"`
}

type Line struct {
	Index         int             `json:"index"`
	ProductID     *int64          `json:"product_id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	RequestedSize domain.Size     `json:"requested_size,omitempty"`
	Size          domain.Size     `json:"size,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Addons        []AddonCharge   `json:"addons"`
	AddonsTotal   decimal.Decimal `json:"addons_total"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// Breakdown is the server-side price of an order.
type Breakdown struct {
	Lines         []Line          `json:"lines"`
	ItemsSubtotal decimal.Decimal `json:"items_subtotal"`
	Zone          Zone            `json:"zone"`
	DeliveryCost  decimal.Decimal `json:"delivery_cost"`
	Total         decimal.Decimal `json:"total"`
	Warnings      []string        `json:"warnings"`
}

type Engine struct {
	products          ProductReader
	addons            AddonReader
	zones             DeliveryZones
	freeAddonsPerType int
}

type Option func(*Engine)

func WithZones(z DeliveryZones) Option {
	return func(e *Engine) { e.zones = z }
}

func WithFreeAddonsPerType(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.freeAddonsPerType = n
		}
	}
}

func NewEngine(products ProductReader, addons AddonReader, opts ...Option) *Engine {
	e := &Engine{
		products:          products,
		addons:            addons,
		zones:             DefaultDeliveryZones(),
		freeAddonsPerType: DefaultFreeAddonsPerType,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recompute prices items from the catalog only. Client prices on the items are ignored.
func (e *Engine) Recompute(ctx context.Context, items []LineItem, isPickup bool, coords *Point) (*Breakdown, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	zone, fee, err := e.delivery(isPickup, coords)
	if err != nil {
		return nil, err
	}

	addonIndex, err := e.loadAddons(ctx, items)
	if err != nil {
		return nil, err
	}

	out := &Breakdown{
		Lines:         make([]Line, 0, len(items)),
		ItemsSubtotal: decimal.Zero,
		Zone:          zone,
		DeliveryCost:  fee,
		Warnings:      []string{},
	}

	for i, item := range items {
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: item %d quantity %d", ErrInvalidItem, i, item.Quantity)
		}

		var line Line
		var ok bool
		if item.ProductID == nil {
			line, ok = e.combinationLine(i, item, out)
		} else {
			line, ok, err = e.productLine(ctx, i, item, out)
			if err != nil {
				return nil, err
			}
		}
		if !ok {
			continue
		}

		chargeAll := item.ProductID == nil || line.Category == domain.CategoryPizza
		line.Addons, line.AddonsTotal = e.chargeAddons(i, item.AddonIDs, chargeAll, addonIndex, out)
		qty := decimal.NewFromInt(int64(item.Quantity))
		line.LineTotal = line.UnitPrice.Add(line.AddonsTotal).Mul(qty).Round(2)
		out.ItemsSubtotal = out.ItemsSubtotal.Add(line.LineTotal)
		out.Lines = append(out.Lines, line)
	}

	if len(out.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	out.ItemsSubtotal = out.ItemsSubtotal.Round(2)
	out.Total = out.ItemsSubtotal.Add(out.DeliveryCost).Round(2)
	return out, nil
}

func (e *Engine) delivery(isPickup bool, coords *Point) (Zone, decimal.Decimal, error) {
	if isPickup {
		return ZonePickup, decimal.Zero, nil
	}
	if coords == nil {
		return "", decimal.Zero, ErrMissingCoordinates
	}
	zone := e.zones.Classify(*coords)
	fee, ok := e.zones.Fee(zone)
	if !ok {
		return zone, decimal.Zero, ErrOutsideDeliveryArea
	}
	return zone, fee.Round(2), nil
}

func (e *Engine) loadAddons(ctx context.Context, items []LineItem) (map[int64]domain.Addon, error) {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, item := range items {
		for _, id := range item.AddonIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	index := make(map[int64]domain.Addon, len(ids))
	if len(ids) == 0 {
		return index, nil
	}
	addons, err := e.addons.GetAddonsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load add-ons: %w", err)
	}
	for _, a := range addons {
		index[a.ID] = a
	}
	return index, nil
}

func (e *Engine) productLine(ctx context.Context, i int, item LineItem, out *Breakdown) (Line, bool, error) {
	product, err := e.products.GetProductByID(ctx, *item.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		out.warn("item %d: product %d not found, skipped", i, *item.ProductID)
		return Line{}, false, nil
	}
	if err != nil {
		return Line{}, false, fmt.Errorf("load product %d: %w", *item.ProductID, err)
	}
	if product.Disabled {
		out.warn("item %d: product %d is disabled, skipped", i, product.ID)
		return Line{}, false, nil
	}

	size, price, ok := resolveSize(product, item.Size)
	if !ok {
		out.warn("item %d: product %d has no price, skipped", i, product.ID)
		return Line{}, false, nil
	}
	if item.Size != "" && size != item.Size {
		out.warn("item %d: size %s unavailable for product %d, priced as %s", i, item.Size, product.ID, size)
	}

	id := product.ID
	return Line{
		Index:         i,
		ProductID:     &id,
		Name:          product.Name,
		Category:      product.Category,
		RequestedSize: item.Size,
		Size:          size,
		Quantity:      item.Quantity,
		UnitPrice:     price.Round(2),
	}, true, nil
}

// combinationLine trusts the caller's unit price; only its add-ons are priced from the catalog.
func (e *Engine) combinationLine(i int, item LineItem, out *Breakdown) (Line, bool) {
	if item.UnitPrice.IsNegative() || item.UnitPrice.IsZero() {
		out.warn("item %d: combination without a unit price, skipped", i)
		return Line{}, false
	}
	return Line{
		Index:         i,
		Name:          item.Name,
		Category:      item.Category,
		RequestedSize: item.Size,
		Size:          item.Size,
		Quantity:      item.Quantity,
		UnitPrice:     item.UnitPrice.Round(2),
	}, true
}

// chargeAddons applies the add-on policy in selection order.
// Combination lines carry no catalog category and always set chargeAll.
func (e *Engine) chargeAddons(i int, ids []int64, chargeAll bool, index map[int64]domain.Addon, out *Breakdown) ([]AddonCharge, decimal.Decimal) {
	charges := make([]AddonCharge, 0, len(ids))
	total := decimal.Zero
	perType := map[string]int{}

	for _, id := range ids {
		a, ok := index[id]
		if !ok || a.Disabled {
			out.warn("item %d: add-on %d unavailable, skipped", i, id)
			continue
		}
		c := AddonCharge{AddonID: a.ID, Name: a.Name, Type: a.Type, Price: a.Price.Round(2)}
		if !chargeAll {
			perType[a.Type]++
			if perType[a.Type] <= e.freeAddonsPerType {
				c.Free = true
			}
		}
		if !c.Free {
			total = total.Add(c.Price)
		}
		charges = append(charges, c)
	}
	return charges, total.Round(2)
}

// resolveSize tries the requested tier first, then the canonical tier order.
func resolveSize(p *domain.Product, requested domain.Size) (domain.Size, decimal.Decimal, bool) {
	if requested != "" {
		if price, ok := p.PriceFor(requested); ok {
			return requested, price, true
		}
	}
	for _, size := range domain.SizeTiers {
		if price, ok := p.PriceFor(size); ok {
			return size, price, true
		}
	}
	return "", decimal.Zero, false
}

func (b *Breakdown) warn(format string, args ...any) {
	b.Warnings = append(b.Warnings, fmt.Sprintf(format, args...))
}
