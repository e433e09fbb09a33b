package payment

import (
	"context"
	"time"

	"foodorder/internal/domain"
	"foodorder/internal/modules/pricing"
	"foodorder/internal/pkg/borica"
)

type priceEngine interface {
	Recompute(ctx context.Context, items []pricing.LineItem, isPickup bool, coords *pricing.Point) (*pricing.Breakdown, error)
}

type orderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByCorrelationToken(ctx context.Context, token string) (*domain.Order, error)
	Settle(ctx context.Context, orderID int64, s domain.Settlement, record *domain.PaymentTransaction) (bool, error)
	AppendTransaction(ctx context.Context, record *domain.PaymentTransaction) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
	ListTransactions(ctx context.Context, orderID int64) ([]domain.PaymentTransaction, error)
}

type requestSigner interface {
	SignRequest(req *borica.PaymentRequest) error
}

type responseVerifier interface {
	Verify(resp *borica.PaymentResponse) (bool, error)
}
