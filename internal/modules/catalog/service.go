package catalog

import (
	"context"
	"errors"
	"fmt"

	"foodorder/internal/domain"
	"foodorder/internal/modules/pricing"
)

var ErrInvalidRequest = errors.New("invalid request")

type catalogStore interface {
	ListProducts(ctx context.Context, includeDisabled bool) ([]domain.Product, error)
	ListAddons(ctx context.Context) ([]domain.Addon, error)
	SetProductDisabled(ctx context.Context, id int64, disabled bool) error
}

type quoter interface {
	Recompute(ctx context.Context, items []pricing.LineItem, isPickup bool, coords *pricing.Point) (*pricing.Breakdown, error)
}

type Service struct {
	store  catalogStore
	engine quoter
}

func NewService(store catalogStore, engine quoter) *Service {
	return &Service{store: store, engine: engine}
}

// Menu returns orderable products grouped by category, plus the add-on list.
func (s *Service) Menu(ctx context.Context) (*MenuResponse, error) {
	products, err := s.store.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}
	addons, err := s.store.ListAddons(ctx)
	if err != nil {
		return nil, err
	}

	out := &MenuResponse{Categories: []MenuCategory{}, Addons: addons}
	index := map[string]int{}
	for _, p := range products {
		i, ok := index[p.Category]
		if !ok {
			i = len(out.Categories)
			index[p.Category] = i
			out.Categories = append(out.Categories, MenuCategory{Name: p.Category})
		}
		out.Categories[i].Products = append(out.Categories[i].Products, toMenuProduct(p))
	}
	if out.Addons == nil {
		out.Addons = []domain.Addon{}
	}
	return out, nil
}

// Quote prices a cart exactly as checkout will, without creating anything.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*pricing.Breakdown, error) {
	b, err := s.engine.Recompute(ctx, req.Items, req.IsPickup, req.Location)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidItem) ||
			errors.Is(err, pricing.ErrEmptyOrder) ||
			errors.Is(err, pricing.ErrMissingCoordinates) ||
			errors.Is(err, pricing.ErrOutsideDeliveryArea) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) SetProductAvailability(ctx context.Context, id int64, available bool) error {
	if id <= 0 {
		return ErrInvalidRequest
	}
	return s.store.SetProductDisabled(ctx, id, !available)
}
