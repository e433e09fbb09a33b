package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"foodorder/internal/domain"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a pending order. A reused correlation token yields ErrDuplicate.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if o.Status == "" {
		o.Status = domain.OrderPendingPayment
	}
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: order correlation token", ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) GetByCorrelationToken(ctx context.Context, token string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Where("correlation_token = ?", token).First(&o).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

// Settle moves a pending order to its terminal status and appends the audit
// record in the same transaction. applied is false when the order was already
// settled; the record is stored either way.
func (r *OrderRepository) Settle(ctx context.Context, orderID int64, s domain.Settlement, record *domain.PaymentTransaction) (bool, error) {
	if !s.Status.Settled() {
		return false, fmt.Errorf("settle: %q is not a terminal status", s.Status)
	}

	var applied bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", orderID, domain.OrderPendingPayment).
			Updates(map[string]interface{}{
				"status":          s.Status,
				"gateway_rc":      s.GatewayRC,
				"gateway_int_ref": s.GatewayIntRef,
				"failure_reason":  s.FailureReason,
				"settled_at":      s.SettledAt,
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1

		if record != nil {
			record.OrderID = &orderID
			record.Applied = applied
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *OrderRepository) AppendTransaction(ctx context.Context, record *domain.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *OrderRepository) ListTransactions(ctx context.Context, orderID int64) ([]domain.PaymentTransaction, error) {
	var out []domain.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ListPendingOlderThan returns orders still awaiting a callback, oldest first.
func (r *OrderRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.OrderPendingPayment, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
