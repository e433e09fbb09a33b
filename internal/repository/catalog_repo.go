package repository

import (
	"context"

	"gorm.io/gorm"

	"foodorder/internal/domain"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

// GetAddonsByIDs returns the add-ons that exist; unknown ids are silently absent.
func (r *CatalogRepository) GetAddonsByIDs(ctx context.Context, ids []int64) ([]domain.Addon, error) {
	if len(ids) == 0 {
		return []domain.Addon{}, nil
	}
	var out []domain.Addon
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *CatalogRepository) ListProducts(ctx context.Context, includeDisabled bool) ([]domain.Product, error) {
	var out []domain.Product
	q := r.db.WithContext(ctx).Order("category ASC, id ASC")
	if !includeDisabled {
		q = q.Where("disabled = ?", false)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *CatalogRepository) ListAddons(ctx context.Context) ([]domain.Addon, error) {
	var out []domain.Addon
	err := r.db.WithContext(ctx).Where("disabled = ?", false).Order("type ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *CatalogRepository) CreateAddon(ctx context.Context, a *domain.Addon) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *CatalogRepository) SetProductDisabled(ctx context.Context, id int64, disabled bool) error {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Update("disabled", disabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
