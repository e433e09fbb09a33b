package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"foodorder/internal/domain"
	"foodorder/internal/events"
	"foodorder/internal/logging"
	"foodorder/internal/metrics"
	"foodorder/internal/modules/pricing"
	"foodorder/internal/pkg/borica"
	"foodorder/internal/pkg/utils"
	"foodorder/internal/repository"
)

const (
	// correlation token = ORDER + first 16 chars of NONCE; fits AD.CUST_BOR_ORDER_ID
	correlationNonceChars = 16
	createAttempts        = 3
	descriptionMaxLen     = 50
)

type Config struct {
	Merchant    borica.Merchant
	GatewayURL  string
	SuccessURL  string
	FailureURL  string
	Description string
}

type Service struct {
	engine    priceEngine
	orders    orderStore
	signer    requestSigner
	verifier  responseVerifier
	publisher events.Publisher
	logger    *slog.Logger

	cfg Config
	ids *borica.IDGenerator
	now func() time.Time
}

func NewService(engine priceEngine, orders orderStore, signer requestSigner, verifier responseVerifier, publisher events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		engine:    engine,
		orders:    orders,
		signer:    signer,
		verifier:  verifier,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		ids:       borica.NewIDGenerator(time.Now),
		now:       time.Now,
	}
}

// CorrelationToken is the lookup key stored on the order and sent as
// AD.CUST_BOR_ORDER_ID. The callback rebuilds it from the echoed ORDER and NONCE.
func CorrelationToken(order, nonce string) string {
	if len(nonce) > correlationNonceChars {
		nonce = nonce[:correlationNonceChars]
	}
	return order + strings.ToUpper(nonce)
}

// Initiate prices the cart, creates a pending order and returns the signed
// auto-submit form. No order is created when the price check fails.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	start := s.now()
	defer func() { metrics.InitiateDuration.UpdateDuration(start) }()

	if !req.ClientTotal.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive", ErrValidation)
	}
	if err := req.Cardholder.Validate(); err != nil {
		return nil, fmt.Errorf("%w: cardholder: %v", ErrValidation, err)
	}

	breakdown, err := s.engine.Recompute(ctx, req.Items, req.IsPickup, req.Location)
	if err != nil {
		if isPricingInputError(err) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		metrics.InitiateFailedTotal.Inc()
		return nil, fmt.Errorf("recompute price: %w", err)
	}

	check := pricing.ValidatePriceMatch(req.ClientTotal, breakdown.Total)
	if !check.IsValid {
		metrics.PriceMismatchTotal.Inc()
		s.logger.WarnContext(ctx, "client total rejected",
			"security", true,
			"client_total", req.ClientTotal.StringFixed(2),
			"server_total", breakdown.Total.StringFixed(2),
			"difference", check.Difference.StringFixed(2),
		)
		return nil, &PriceMismatchError{
			ClientTotal: req.ClientTotal,
			ServerTotal: breakdown.Total,
			Difference:  check.Difference,
		}
	}

	order, nonce, err := s.createPendingOrder(ctx, req, breakdown)
	if err != nil {
		metrics.InitiateFailedTotal.Inc()
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.Int64("order_id", order.ID))

	merchant := s.cfg.Merchant
	if req.Lang != "" {
		merchant.Lang = strings.ToUpper(req.Lang)
	}
	payReq, err := merchant.NewSaleRequest(borica.Sale{
		Amount:        breakdown.Total,
		Order:         order.GatewayOrder,
		Description:   s.description(order.ID),
		CorrelationID: order.CorrelationToken,
		Cardholder:    req.Cardholder,
		Timestamp:     s.ids.TimestampUTC(),
		Nonce:         nonce,
	})
	if err != nil {
		metrics.InitiateFailedTotal.Inc()
		s.logger.ErrorContext(ctx, "build sale request failed, order left pending", "error", err)
		return nil, fmt.Errorf("build sale request: %w", err)
	}

	if err := s.signer.SignRequest(payReq); err != nil {
		metrics.InitiateFailedTotal.Inc()
		s.logger.ErrorContext(ctx, "signing failed, order left pending", "error", err)
		return nil, err
	}

	page, err := borica.NewRedirectForm(s.cfg.GatewayURL, payReq).Render()
	if err != nil {
		metrics.InitiateFailedTotal.Inc()
		return nil, fmt.Errorf("render redirect form: %w", err)
	}

	metrics.InitiatedTotal.Inc()
	s.logger.InfoContext(ctx, "payment initiated",
		"gateway_order", order.GatewayOrder,
		"amount", payReq.Amount,
		"currency", payReq.Currency,
		"zone", breakdown.Zone,
		"warnings", len(breakdown.Warnings),
	)
	return &InitiateResult{OrderID: order.ID, Form: page, Breakdown: breakdown}, nil
}

func (s *Service) createPendingOrder(ctx context.Context, req InitiateRequest, b *pricing.Breakdown) (*domain.Order, string, error) {
	for attempt := 1; ; attempt++ {
		orderNo := s.ids.OrderNumber()
		nonce, err := s.ids.Nonce()
		if err != nil {
			return nil, "", fmt.Errorf("generate nonce: %w", err)
		}

		o := &domain.Order{
			CorrelationToken: CorrelationToken(orderNo, nonce),
			Status:           domain.OrderPendingPayment,
			GatewayOrder:     orderNo,
			GatewayNonce:     nonce,
			Currency:         s.cfg.Merchant.Currency,
			ItemsSubtotal:    b.ItemsSubtotal,
			DeliveryCost:     b.DeliveryCost,
			Total:            b.Total,
			DeliveryZone:     string(b.Zone),
			IsPickup:         req.IsPickup,
			CustomerName:     req.Cardholder.Name,
			CustomerPhone:    req.Phone,
			DeliveryAddress:  req.Address,
			Items:            utils.SliceToJSONText(b.Lines),
			Notes:            req.Notes,
		}
		if req.Location != nil && !req.IsPickup {
			lat, lng := req.Location.Lat, req.Location.Lng
			o.Latitude, o.Longitude = &lat, &lng
		}

		err = s.orders.Create(ctx, o)
		if err == nil {
			return o, nonce, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= createAttempts {
			return nil, "", fmt.Errorf("create order: %w", err)
		}
		s.logger.WarnContext(ctx, "correlation token collision, regenerating", "attempt", attempt)
	}
}

func (s *Service) description(orderID int64) string {
	d := fmt.Sprintf("%s #%d", s.cfg.Description, orderID)
	if r := []rune(d); len(r) > descriptionMaxLen {
		d = string(r[:descriptionMaxLen])
	}
	return d
}

func isPricingInputError(err error) bool {
	return errors.Is(err, pricing.ErrInvalidItem) ||
		errors.Is(err, pricing.ErrEmptyOrder) ||
		errors.Is(err, pricing.ErrMissingCoordinates) ||
		errors.Is(err, pricing.ErrOutsideDeliveryArea)
}

// Callback authenticates a gateway result and settles the order at most once.
// The returned result always holds a redirect target; err explains a
// non-success path and is meant for logging.
func (s *Service) Callback(ctx context.Context, form url.Values) (*CallbackResult, error) {
	resp := borica.ParseResponse(form)
	record := newTransactionRecord(resp)
	failure := &CallbackResult{Outcome: borica.OutcomeAmbiguous, RedirectURL: s.cfg.FailureURL}

	ok, err := s.verifier.Verify(resp)
	if err != nil {
		record.Outcome = "unverified"
		record.Note = "verifier unavailable"
		s.appendAudit(ctx, record)
		s.logger.ErrorContext(ctx, "callback verifier unavailable", "error", err)
		return failure, err
	}
	if !ok {
		metrics.CallbackUnverifiedTotal.Inc()
		record.Outcome = "unverified"
		s.appendAudit(ctx, record)
		s.logger.WarnContext(ctx, "callback signature rejected",
			"security", true,
			"gateway_order", resp.Order,
			"trtype", resp.TrType,
		)
		return failure, ErrVerification
	}
	record.SignatureValid = true

	order, err := s.orders.GetByCorrelationToken(ctx, CorrelationToken(resp.Order, resp.Nonce))
	if err != nil {
		record.Outcome = "unknown_order"
		s.appendAudit(ctx, record)
		if errors.Is(err, domain.ErrNotFound) {
			metrics.CallbackUnknownTotal.Inc()
			s.logger.WarnContext(ctx, "verified callback for unknown order",
				"security", true,
				"gateway_order", resp.Order,
			)
			return failure, ErrOrderNotFound
		}
		return failure, fmt.Errorf("lookup order: %w", err)
	}
	ctx = logging.AppendCtx(ctx, slog.Int64("order_id", order.ID))
	failure.OrderID = order.ID

	outcome := borica.Classify(resp)
	settlement := domain.Settlement{
		Status:        domain.OrderPaymentFailed,
		GatewayRC:     record.RC,
		GatewayIntRef: record.IntRef,
		SettledAt:     s.now().UTC(),
	}

	var resultErr error
	lang := s.lang(resp)
	if mismatch := s.echoMismatch(resp, order); mismatch != "" {
		outcome = borica.OutcomeAmbiguous
		record.Note = "echo mismatch: " + mismatch
		settlement.FailureReason = "gateway echo mismatch: " + mismatch
		resultErr = fmt.Errorf("%w: %s", ErrEchoMismatch, mismatch)
		s.logger.WarnContext(ctx, "callback fields do not match order",
			"security", true,
			"mismatch", mismatch,
		)
	} else {
		if outcome.Succeeded() {
			settlement.Status = domain.OrderPaid
		} else {
			// ambiguous results settle as failed too
			settlement.FailureReason = borica.Message(resp.RC, lang)
			resultErr = &DeclineError{Action: resp.Action, RC: resp.RC, Message: settlement.FailureReason}
		}
	}
	record.Outcome = string(outcome)

	applied, err := s.orders.Settle(ctx, order.ID, settlement, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "settle order failed", "error", err)
		return failure, fmt.Errorf("settle order: %w", err)
	}

	if !applied {
		metrics.CallbackReplayTotal.Inc()
		s.logger.InfoContext(ctx, "callback for settled order recorded, status unchanged",
			"status", order.Status,
			"outcome", outcome,
		)
		current, err := s.orders.GetByID(ctx, order.ID)
		if err != nil {
			return failure, fmt.Errorf("reload order: %w", err)
		}
		return s.redirectFor(current, outcome, false, lang), nil
	}

	countOutcome(outcome)
	order.Status = settlement.Status
	order.GatewayRC = settlement.GatewayRC
	order.GatewayIntRef = settlement.GatewayIntRef
	order.FailureReason = settlement.FailureReason
	order.SettledAt = &settlement.SettledAt
	s.publishSettled(ctx, order)

	s.logger.InfoContext(ctx, "order settled",
		"status", order.Status,
		"action", resp.Action,
		"rc", resp.RC,
		"outcome", outcome,
	)
	return s.redirectFor(order, outcome, true, lang), resultErr
}

// echoMismatch compares the verified echo with what was sent for the order.
func (s *Service) echoMismatch(resp *borica.PaymentResponse, o *domain.Order) string {
	var bad []string
	if resp.Terminal != s.cfg.Merchant.Terminal {
		bad = append(bad, "terminal")
	}
	amount, err := decimal.NewFromString(resp.Amount)
	if err != nil || !amount.Equal(o.Total) {
		bad = append(bad, "amount")
	}
	if !strings.EqualFold(resp.Currency, o.Currency) {
		bad = append(bad, "currency")
	}
	if resp.Order != o.GatewayOrder {
		bad = append(bad, "order")
	}
	return strings.Join(bad, ",")
}

func (s *Service) lang(resp *borica.PaymentResponse) string {
	if resp.Lang != "" {
		return resp.Lang
	}
	return s.cfg.Merchant.Lang
}

func (s *Service) redirectFor(o *domain.Order, outcome borica.Outcome, applied bool, lang string) *CallbackResult {
	res := &CallbackResult{OrderID: o.ID, Outcome: outcome, Applied: applied}
	q := url.Values{}
	q.Set("order_id", strconv.FormatInt(o.ID, 10))
	if o.Status == domain.OrderPaid {
		if o.GatewayIntRef != "" {
			q.Set("int_ref", o.GatewayIntRef)
		}
		res.RedirectURL = withQuery(s.cfg.SuccessURL, q)
		return res
	}
	if o.GatewayRC != "" {
		q.Set("rc", o.GatewayRC)
	}
	reason := o.FailureReason
	if reason == "" {
		reason = borica.Message(o.GatewayRC, lang)
	}
	q.Set("reason", reason)
	res.RedirectURL = withQuery(s.cfg.FailureURL, q)
	return res
}

func withQuery(base string, q url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func (s *Service) appendAudit(ctx context.Context, record *domain.PaymentTransaction) {
	if err := s.orders.AppendTransaction(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "append callback audit failed", "error", err)
	}
}

func (s *Service) publishSettled(ctx context.Context, o *domain.Order) {
	err := s.publisher.PublishOrderSettled(ctx, events.OrderSettled{
		EventID:       uuid.NewString(),
		OrderID:       o.ID,
		Status:        string(o.Status),
		Total:         o.Total,
		Currency:      o.Currency,
		GatewayRC:     o.GatewayRC,
		GatewayIntRef: o.GatewayIntRef,
		IsPickup:      o.IsPickup,
		SettledAt:     *o.SettledAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "publish order settled failed", "error", err)
	}
}

func countOutcome(o borica.Outcome) {
	switch o {
	case borica.OutcomeSuccess:
		metrics.CallbackSuccessTotal.Inc()
	case borica.OutcomeDeclined:
		metrics.CallbackDeclinedTotal.Inc()
	default:
		metrics.CallbackAmbiguousTotal.Inc()
	}
}

// newTransactionRecord copies the callback into an audit row. Values are
// unverified at this point, so each one is cut to its column width and
// stripped of invalid UTF-8 to keep the insert from failing.
func newTransactionRecord(resp *borica.PaymentResponse) *domain.PaymentTransaction {
	return &domain.PaymentTransaction{
		CorrelationToken: clamp(CorrelationToken(resp.Order, resp.Nonce), domain.TxWidthCorrelationToken),
		Terminal:         clamp(resp.Terminal, domain.TxWidthTerminal),
		TrType:           clamp(string(resp.TrType), domain.TxWidthTrType),
		Action:           clamp(resp.Action, domain.TxWidthAction),
		RC:               clamp(resp.RC, domain.TxWidthRC),
		Approval:         clamp(resp.Approval, domain.TxWidthApproval),
		RRN:              clamp(resp.RRN, domain.TxWidthRRN),
		IntRef:           clamp(resp.IntRef, domain.TxWidthIntRef),
		Amount:           clamp(resp.Amount, domain.TxWidthAmount),
		Currency:         clamp(resp.Currency, domain.TxWidthCurrency),
		GatewayOrder:     clamp(resp.Order, domain.TxWidthGatewayOrder),
		Nonce:            clamp(resp.Nonce, domain.TxWidthNonce),
		CardMasked:       clamp(resp.Card, domain.TxWidthCardMasked),
		StatusMsg:        strings.ToValidUTF8(resp.StatusMsg, ""),
	}
}

// clamp returns valid UTF-8 of at most n bytes, cut on a rune boundary.
func clamp(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// PendingOrders lists orders still waiting for a callback after olderThan.
func (s *Service) PendingOrders(ctx context.Context, olderThan time.Duration, limit int) ([]PendingOrderResponse, error) {
	now := s.now().UTC()
	orders, err := s.orders.ListPendingOlderThan(ctx, now.Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	out := make([]PendingOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toPendingOrderResponse(o, now))
	}
	return out, nil
}

// Transactions returns the callback audit trail of an order.
func (s *Service) Transactions(ctx context.Context, orderID int64) ([]TransactionResponse, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	txs, err := s.orders.ListTransactions(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	return out, nil
}
