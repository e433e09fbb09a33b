package payment

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodorder/internal/database"
	"foodorder/internal/domain"
	"foodorder/internal/events"
	"foodorder/internal/modules/pricing"
	"foodorder/internal/pkg/borica"
	"foodorder/internal/repository"
)

const (
	testTerminal   = "V1800001"
	testGatewayURL = "https://3dsgate-dev.borica.bg/cgi-bin/cgi_link"
	testSuccessURL = "https://pizza.example/payment/success"
	testFailureURL = "https://pizza.example/payment/failure"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderSettled(ctx context.Context, e events.OrderSettled) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockPublisher) Close() error { return nil }

type failingSigner struct{}

func (failingSigner) SignRequest(*borica.PaymentRequest) error {
	return borica.ErrSigning
}

// collidingStore fails the first collisions creates with a duplicate token.
type collidingStore struct {
	*repository.OrderRepository
	collisions int
	creates    int
}

func (s *collidingStore) Create(ctx context.Context, o *domain.Order) error {
	s.creates++
	if s.creates <= s.collisions {
		return repository.ErrDuplicate
	}
	return s.OrderRepository.Create(ctx, o)
}

type fixture struct {
	svc        *Service
	db         *gorm.DB
	orders     *repository.OrderRepository
	publisher  *MockPublisher
	gatewayKey *rsa.PrivateKey
	pizzaID    int64
	cheeseID   int64
}

func writeMerchantKey(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "merchant.key")
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func testMerchant() borica.Merchant {
	return borica.Merchant{
		Terminal: testTerminal,
		ID:       "1600000001",
		Name:     "Pizza Place",
		URL:      "https://pizza.example",
		BackRef:  "https://pizza.example/api/v1/payments/borica/callback",
		Country:  "BG",
		GMT:      "+03",
		Currency: "BGN",
		Lang:     "BG",
	}
}

func newFixture(t *testing.T, signer requestSigner) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	catalog := repository.NewCatalogRepository(db)
	pizza := &domain.Product{
		Name:        "Margherita",
		Category:    domain.CategoryPizza,
		PriceMedium: decimal.NewNullDecimal(decimal.RequireFromString("12.90")),
	}
	require.NoError(t, catalog.CreateProduct(ctx, pizza))
	cheese := &domain.Addon{Name: "Extra cheese", Type: "cheese", Price: decimal.RequireFromString("2.00")}
	require.NoError(t, catalog.CreateAddon(ctx, cheese))

	if signer == nil {
		s, err := borica.NewSigner(borica.SignerConfig{
			Terminal:       testTerminal,
			Merchant:       "1600000001",
			PrivateKeyPath: writeMerchantKey(t),
		})
		require.NoError(t, err)
		signer = s
	}

	gatewayKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	orders := repository.NewOrderRepository(db)
	publisher := &MockPublisher{}
	svc := NewService(
		pricing.NewEngine(catalog, catalog),
		orders,
		signer,
		borica.NewVerifierWithKey(&gatewayKey.PublicKey),
		publisher,
		Config{
			Merchant:    testMerchant(),
			GatewayURL:  testGatewayURL,
			SuccessURL:  testSuccessURL,
			FailureURL:  testFailureURL,
			Description: "Pizza order",
		},
		nil,
	)
	return &fixture{
		svc:        svc,
		db:         db,
		orders:     orders,
		publisher:  publisher,
		gatewayKey: gatewayKey,
		pizzaID:    pizza.ID,
		cheeseID:   cheese.ID,
	}
}

func (f *fixture) pickupRequest(total string) InitiateRequest {
	id := f.pizzaID
	return InitiateRequest{
		Items: []pricing.LineItem{{
			ProductID: &id,
			Size:      domain.SizeMedium,
			Quantity:  1,
			AddonIDs:  []int64{f.cheeseID},
		}},
		IsPickup: true,
		Phone:    "+359888123456",
		Cardholder: borica.CardholderInfo{
			Name:  "Ivan Petrov",
			Email: "ivan@example.com",
		},
		ClientTotal: decimal.RequireFromString(total),
	}
}

// gatewayResult builds a signed callback for order o as the gateway would.
func (f *fixture) gatewayResult(t *testing.T, o *domain.Order, action, rc string) url.Values {
	t.Helper()
	resp := &borica.PaymentResponse{
		Action:    action,
		RC:        rc,
		Approval:  "S78952",
		Terminal:  testTerminal,
		TrType:    borica.TrTypeSale,
		Amount:    o.Total.StringFixed(2),
		Currency:  o.Currency,
		Order:     o.GatewayOrder,
		Nonce:     o.GatewayNonce,
		RRN:       "628900012345",
		IntRef:    "7B9F1C2D3E4F5A6B",
		Timestamp: "20261016120130",
		Card:      "5100XXXXXXXX0022",
	}
	return f.sign(t, resp)
}

func (f *fixture) sign(t *testing.T, resp *borica.PaymentResponse) url.Values {
	t.Helper()
	sig, err := borica.SignResponse(resp, f.gatewayKey)
	require.NoError(t, err)
	resp.PSign = sig
	return resp.Values()
}

// orphanAudit returns audit rows not linked to any order.
func (f *fixture) orphanAudit(t *testing.T) []domain.PaymentTransaction {
	t.Helper()
	var rows []domain.PaymentTransaction
	require.NoError(t, f.db.Where("order_id IS NULL").Order("id").Find(&rows).Error)
	return rows
}

func (f *fixture) initiate(t *testing.T) *domain.Order {
	t.Helper()
	res, err := f.svc.Initiate(context.Background(), f.pickupRequest("14.90"))
	require.NoError(t, err)
	o, err := f.orders.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	return o
}

func TestService_Initiate_CreatesPendingOrderAndSignedForm(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Initiate(context.Background(), f.pickupRequest("14.90"))
	require.NoError(t, err)
	require.NotZero(t, res.OrderID)
	assert.True(t, res.Breakdown.Total.Equal(decimal.RequireFromString("14.90")))

	o, err := f.orders.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPayment, o.Status)
	assert.Len(t, o.GatewayOrder, 6)
	assert.Len(t, o.GatewayNonce, 32)
	assert.Equal(t, o.GatewayOrder+o.GatewayNonce[:16], o.CorrelationToken)
	assert.Equal(t, "BGN", o.Currency)
	assert.Equal(t, string(pricing.ZonePickup), o.DeliveryZone)

	page := string(res.Form)
	assert.Contains(t, page, `action="`+testGatewayURL+`"`)
	assert.Contains(t, page, `name="AMOUNT" value="14.90"`)
	assert.Contains(t, page, `name="ORDER" value="`+o.GatewayOrder+`"`)
	assert.Contains(t, page, `name="NONCE" value="`+o.GatewayNonce+`"`)
	assert.Contains(t, page, `name="AD.CUST_BOR_ORDER_ID" value="`+o.CorrelationToken+`"`)
	assert.Contains(t, page, `name="P_SIGN"`)
}

func TestService_Initiate_AcceptsDifferenceWithinTolerance(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Initiate(context.Background(), f.pickupRequest("15.00"))
	assert.NoError(t, err)
}

func TestService_Initiate_PriceMismatchCreatesNoOrder(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Initiate(context.Background(), f.pickupRequest("12.90"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPriceMismatch)
	assert.ErrorIs(t, err, ErrValidation)

	var mismatch *PriceMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.True(t, mismatch.ServerTotal.Equal(decimal.RequireFromString("14.90")))
	assert.True(t, mismatch.Difference.Equal(decimal.RequireFromString("2.00")))

	_, err = f.orders.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Initiate_Validation(t *testing.T) {
	f := newFixture(t, nil)

	req := f.pickupRequest("0")
	_, err := f.svc.Initiate(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)

	req = f.pickupRequest("14.90")
	req.Cardholder.Email = ""
	_, err = f.svc.Initiate(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)

	req = f.pickupRequest("14.90")
	req.IsPickup = false
	_, err = f.svc.Initiate(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, pricing.ErrMissingCoordinates)
}

func TestService_Initiate_SigningFailureLeavesOrderPending(t *testing.T) {
	f := newFixture(t, failingSigner{})

	_, err := f.svc.Initiate(context.Background(), f.pickupRequest("14.90"))
	require.ErrorIs(t, err, borica.ErrSigning)

	o, err := f.orders.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPayment, o.Status)
}

func TestService_Callback_SuccessSettlesOnce(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)
	f.publisher.On("PublishOrderSettled", mock.Anything, mock.MatchedBy(func(e events.OrderSettled) bool {
		return e.OrderID == o.ID && e.Status == string(domain.OrderPaid)
	})).Return(nil).Once()

	res, err := f.svc.Callback(context.Background(), f.gatewayResult(t, o, "0", "00"))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, borica.OutcomeSuccess, res.Outcome)
	assert.True(t, strings.HasPrefix(res.RedirectURL, testSuccessURL+"?"))
	assert.Contains(t, res.RedirectURL, "int_ref=7B9F1C2D3E4F5A6B")

	got, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
	assert.Equal(t, "00", got.GatewayRC)
	assert.NotNil(t, got.SettledAt)

	// a late decline for the same order is audited but changes nothing
	res, err = f.svc.Callback(context.Background(), f.gatewayResult(t, o, "2", "05"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.True(t, strings.HasPrefix(res.RedirectURL, testSuccessURL))

	got, err = f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)

	txs, err := f.svc.Transactions(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Applied)
	assert.False(t, txs[1].Applied)
	f.publisher.AssertExpectations(t)
}

func TestService_Callback_Declined(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)
	f.publisher.On("PublishOrderSettled", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Callback(context.Background(), f.gatewayResult(t, o, "2", "05"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayDecline)

	var decline *DeclineError
	require.True(t, errors.As(err, &decline))
	assert.Equal(t, "05", decline.RC)
	assert.Equal(t, borica.OutcomeDeclined, res.Outcome)
	assert.True(t, strings.HasPrefix(res.RedirectURL, testFailureURL+"?"))
	assert.Contains(t, res.RedirectURL, "rc=05")

	got, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentFailed, got.Status)
	assert.NotEmpty(t, got.FailureReason)
}

func TestService_Callback_AmbiguousIsFailure(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)
	f.publisher.On("PublishOrderSettled", mock.Anything, mock.Anything).Return(nil)

	// approval code without ACTION=0 is not a success
	res, err := f.svc.Callback(context.Background(), f.gatewayResult(t, o, "1", "00"))
	assert.ErrorIs(t, err, ErrGatewayDecline)
	assert.Equal(t, borica.OutcomeAmbiguous, res.Outcome)

	got, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentFailed, got.Status)
}

func TestService_Callback_InvalidSignatureChangesNothing(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)

	form := f.gatewayResult(t, o, "0", "00")
	form.Set("AMOUNT", "0.01")

	res, err := f.svc.Callback(context.Background(), form)
	assert.ErrorIs(t, err, ErrVerification)
	assert.True(t, strings.HasPrefix(res.RedirectURL, testFailureURL))
	assert.Zero(t, res.OrderID)

	got, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPayment, got.Status)
	f.publisher.AssertNotCalled(t, "PublishOrderSettled", mock.Anything, mock.Anything)

	audit := f.orphanAudit(t)
	require.Len(t, audit, 1)
	assert.Equal(t, "unverified", audit[0].Outcome)
	assert.False(t, audit[0].SignatureValid)
	assert.False(t, audit[0].Applied)
	assert.Nil(t, audit[0].OrderID)
	assert.Equal(t, "0.01", audit[0].Amount)
	assert.Equal(t, o.GatewayOrder, audit[0].GatewayOrder)
}

func TestService_Callback_UnknownOrder(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)

	ghost := *o
	ghost.GatewayNonce = strings.Repeat("F", 32)
	res, err := f.svc.Callback(context.Background(), f.gatewayResult(t, &ghost, "0", "00"))
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, strings.HasPrefix(res.RedirectURL, testFailureURL))

	got, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPayment, got.Status)

	audit := f.orphanAudit(t)
	require.Len(t, audit, 1)
	assert.Equal(t, "unknown_order", audit[0].Outcome)
	assert.True(t, audit[0].SignatureValid)
	assert.False(t, audit[0].Applied)
	assert.Nil(t, audit[0].OrderID)
	assert.Equal(t, CorrelationToken(ghost.GatewayOrder, ghost.GatewayNonce), audit[0].CorrelationToken)
}

func TestService_Callback_OversizedFieldsStillAudited(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)

	form := f.gatewayResult(t, o, "0", "00")
	form.Set("ACTION", "XXXXXXXXXX")
	form.Set("RC", strings.Repeat("9", 40))
	form.Set("TERMINAL", strings.Repeat("T", 100))
	form.Set("CURRENCY", "BGNX")
	form.Set("ORDER", o.GatewayOrder+"0000000")
	form.Set("INT_REF", strings.Repeat("ж", 80))
	form.Set("APPROVAL", "\xff\xfeABC")

	_, err := f.svc.Callback(context.Background(), form)
	assert.ErrorIs(t, err, ErrVerification)

	audit := f.orphanAudit(t)
	require.Len(t, audit, 1)
	rec := audit[0]
	assert.Equal(t, "XXXX", rec.Action)
	assert.Len(t, rec.RC, domain.TxWidthRC)
	assert.Len(t, rec.Terminal, domain.TxWidthTerminal)
	assert.Equal(t, "BGN", rec.Currency)
	assert.Equal(t, o.GatewayOrder, rec.GatewayOrder)
	assert.LessOrEqual(t, len(rec.CorrelationToken), domain.TxWidthCorrelationToken)
	assert.LessOrEqual(t, len(rec.IntRef), domain.TxWidthIntRef)
	assert.True(t, utf8.ValidString(rec.IntRef))
	assert.Equal(t, "ABC", rec.Approval)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, "abc", clamp("abc", 8))
	assert.Equal(t, "abcd", clamp("abcdefgh", 4))
	// "жж" is four bytes; three would split the second rune
	assert.Equal(t, "ж", clamp("жж", 3))
	assert.Equal(t, "ok", clamp("o\xffk", 8))
	assert.Equal(t, "", clamp("", 4))
}

func TestService_Initiate_RetriesCorrelationCollision(t *testing.T) {
	f := newFixture(t, nil)
	store := &collidingStore{OrderRepository: f.orders, collisions: 2}
	f.svc.orders = store

	res, err := f.svc.Initiate(context.Background(), f.pickupRequest("14.90"))
	require.NoError(t, err)
	assert.Equal(t, createAttempts, store.creates)

	o, err := f.orders.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPayment, o.Status)
}

func TestService_Initiate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, nil)
	store := &collidingStore{OrderRepository: f.orders, collisions: createAttempts}
	f.svc.orders = store

	_, err := f.svc.Initiate(context.Background(), f.pickupRequest("14.90"))
	require.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Equal(t, createAttempts, store.creates)

	_, err = f.orders.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Callback_AmountEchoMismatchFailsClosed(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)
	f.publisher.On("PublishOrderSettled", mock.Anything, mock.Anything).Return(nil)

	tampered := *o
	tampered.Total = decimal.RequireFromString("1.00")
	res, err := f.svc.Callback(context.Background(), f.gatewayResult(t, &tampered, "0", "00"))
	assert.ErrorIs(t, err, ErrEchoMismatch)
	assert.True(t, strings.HasPrefix(res.RedirectURL, testFailureURL))

	got, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentFailed, got.Status)
	assert.Contains(t, got.FailureReason, "amount")
}

func TestService_Callback_PublishErrorDoesNotFailSettlement(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)
	f.publisher.On("PublishOrderSettled", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	res, err := f.svc.Callback(context.Background(), f.gatewayResult(t, o, "0", "00"))
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestService_PendingOrders(t *testing.T) {
	f := newFixture(t, nil)
	o := f.initiate(t)

	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	items, err := f.svc.PendingOrders(context.Background(), 30*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, o.ID, items[0].ID)

	items, err = f.svc.PendingOrders(context.Background(), 2*time.Hour, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCorrelationToken(t *testing.T) {
	assert.Equal(t, "0042110123456789ABCDEF", CorrelationToken("004211", "0123456789abcdef0123456789ABCDEF"))
	assert.Equal(t, "004211ABC", CorrelationToken("004211", "ABC"))
}
