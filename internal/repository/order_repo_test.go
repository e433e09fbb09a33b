package repository

import (
	"context"
	"testing"
	"time"

	"foodorder/internal/database"
	"foodorder/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newOrder(token string) *domain.Order {
	return &domain.Order{
		CorrelationToken: token,
		GatewayOrder:     token[:6],
		Currency:         "BGN",
		ItemsSubtotal:    decimal.RequireFromString("22.40"),
		DeliveryCost:     decimal.RequireFromString("3.00"),
		Total:            decimal.RequireFromString("25.40"),
		DeliveryZone:     "inner",
		CustomerName:     "Ivan Petrov",
		CustomerPhone:    "+359888123456",
		Items:            "[]",
	}
}

func TestOrderRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(setupDB(t))

	o := newOrder("0042110123456789ABCDEF")
	require.NoError(t, repo.Create(ctx, o))
	require.NotZero(t, o.ID)
	assert.Equal(t, domain.OrderPendingPayment, o.Status)

	byToken, err := repo.GetByCorrelationToken(ctx, "0042110123456789ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byToken.ID)
	assert.True(t, byToken.Total.Equal(decimal.RequireFromString("25.40")))

	_, err = repo.GetByCorrelationToken(ctx, "0042110123456789ABCDE")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(ctx, o.ID+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_CreateRejectsDuplicateToken(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(setupDB(t))

	require.NoError(t, repo.Create(ctx, newOrder("0042110123456789ABCDEF")))
	err := repo.Create(ctx, newOrder("0042110123456789ABCDEF"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestOrderRepository_SettleIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(setupDB(t))

	o := newOrder("0042110123456789ABCDEF")
	require.NoError(t, repo.Create(ctx, o))

	first := &domain.PaymentTransaction{Action: "0", RC: "00", SignatureValid: true, Outcome: "success"}
	applied, err := repo.Settle(ctx, o.ID, domain.Settlement{
		Status:        domain.OrderPaid,
		GatewayRC:     "00",
		GatewayIntRef: "ABC123",
		SettledAt:     time.Now().UTC(),
	}, first)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, first.Applied)

	second := &domain.PaymentTransaction{Action: "2", RC: "05", SignatureValid: true, Outcome: "declined"}
	applied, err = repo.Settle(ctx, o.ID, domain.Settlement{
		Status:        domain.OrderPaymentFailed,
		GatewayRC:     "05",
		FailureReason: "declined",
		SettledAt:     time.Now().UTC(),
	}, second)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
	assert.Equal(t, "ABC123", got.GatewayIntRef)
	assert.NotNil(t, got.SettledAt)

	txs, err := repo.ListTransactions(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Applied)
	assert.False(t, txs[1].Applied)
}

func TestOrderRepository_SettleRejectsPendingStatus(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))
	_, err := repo.Settle(context.Background(), 1, domain.Settlement{Status: domain.OrderPendingPayment}, nil)
	assert.Error(t, err)
}

func TestOrderRepository_ListPendingOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(setupDB(t))
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	stale := newOrder("0000010000000000000001")
	stale.CreatedAt = now.Add(-2 * time.Hour)
	fresh := newOrder("0000020000000000000002")
	fresh.CreatedAt = now.Add(-5 * time.Minute)
	paid := newOrder("0000030000000000000003")
	paid.CreatedAt = now.Add(-3 * time.Hour)
	paid.Status = domain.OrderPaid

	for _, o := range []*domain.Order{stale, fresh, paid} {
		require.NoError(t, repo.Create(ctx, o))
	}

	out, err := repo.ListPendingOlderThan(ctx, now.Add(-30*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, stale.ID, out[0].ID)
}

func TestOrderRepository_AppendTransactionWithoutOrder(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewOrderRepository(db)

	require.NoError(t, repo.AppendTransaction(ctx, &domain.PaymentTransaction{
		CorrelationToken: "unknown",
		SignatureValid:   false,
		Outcome:          "unverified",
	}))

	var count int64
	require.NoError(t, db.Model(&domain.PaymentTransaction{}).Where("order_id IS NULL").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
