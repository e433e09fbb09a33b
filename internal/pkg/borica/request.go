package borica

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Merchant holds the static per-terminal request fields.
type Merchant struct {
	Terminal string
	ID       string
	Name     string
	URL      string
	BackRef  string
	Country  string
	// GMT is a fixed MERCH_GMT. When empty it is derived per request from
	// Location, which follows daylight saving time.
	GMT      string
	Location *time.Location
	Currency string
	Lang     string
}

// Sale describes the per-order part of a TRTYPE=1 request.
type Sale struct {
	Amount        decimal.Decimal
	Order         string
	Description   string
	CorrelationID string
	Cardholder    CardholderInfo
	Timestamp     string
	Nonce         string
}

// FormatAmount renders a money value the way AMOUNT expects it: two decimals, dot separator.
func FormatAmount(v decimal.Decimal) string {
	return v.StringFixed(2)
}

// GMTOffset renders the UTC offset of loc at t as MERCH_GMT, e.g. "+02" or "+03".
func GMTOffset(t time.Time, loc *time.Location) string {
	_, off := t.In(loc).Zone()
	sign := "+"
	if off < 0 {
		sign, off = "-", -off
	}
	return fmt.Sprintf("%s%02d", sign, off/3600)
}

func (m Merchant) gmtAt(timestamp string) (string, error) {
	if m.GMT != "" || m.Location == nil {
		return m.GMT, nil
	}
	t, err := ParseTimestamp(timestamp)
	if err != nil {
		return "", fmt.Errorf("merchant gmt: %w", err)
	}
	return GMTOffset(t, m.Location), nil
}

// NewSaleRequest assembles an unsigned sale request.
func (m Merchant) NewSaleRequest(s Sale) (*PaymentRequest, error) {
	mInfo, err := s.Cardholder.EncodeMInfo()
	if err != nil {
		return nil, err
	}
	gmt, err := m.gmtAt(s.Timestamp)
	if err != nil {
		return nil, err
	}
	return &PaymentRequest{
		Terminal:    m.Terminal,
		TrType:      TrTypeSale,
		Amount:      FormatAmount(s.Amount),
		Currency:    m.Currency,
		Order:       s.Order,
		Desc:        s.Description,
		Merchant:    m.ID,
		MerchName:   m.Name,
		MerchURL:    m.URL,
		BackRef:     m.BackRef,
		Country:     m.Country,
		MerchGMT:    gmt,
		Lang:        m.Lang,
		Addendum:    AddendumDefault,
		CustOrderID: s.CorrelationID,
		Timestamp:   s.Timestamp,
		MInfo:       mInfo,
		Nonce:       s.Nonce,
	}, nil
}
