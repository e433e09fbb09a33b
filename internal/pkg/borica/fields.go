package borica

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldName is the wire name of a gateway form field.
type FieldName string

const (
	FieldTerminal    FieldName = "TERMINAL"
	FieldTrType      FieldName = "TRTYPE"
	FieldAmount      FieldName = "AMOUNT"
	FieldCurrency    FieldName = "CURRENCY"
	FieldOrder       FieldName = "ORDER"
	FieldDesc        FieldName = "DESC"
	FieldMerchant    FieldName = "MERCHANT"
	FieldMerchName   FieldName = "MERCH_NAME"
	FieldMerchURL    FieldName = "MERCH_URL"
	FieldBackRef     FieldName = "BACKREF"
	FieldCountry     FieldName = "COUNTRY"
	FieldMerchGMT    FieldName = "MERCH_GMT"
	FieldLang        FieldName = "LANG"
	FieldAddendum    FieldName = "ADDENDUM"
	FieldCustOrderID FieldName = "AD.CUST_BOR_ORDER_ID"
	FieldTimestamp   FieldName = "TIMESTAMP"
	FieldMInfo       FieldName = "M_INFO"
	FieldNonce       FieldName = "NONCE"
	FieldPSign       FieldName = "P_SIGN"
	FieldAction      FieldName = "ACTION"
	FieldRC          FieldName = "RC"
	FieldStatusMsg   FieldName = "STATUSMSG"
	FieldApproval    FieldName = "APPROVAL"
	FieldRRN         FieldName = "RRN"
	FieldIntRef      FieldName = "INT_REF"
	FieldParesStatus FieldName = "PARES_STATUS"
	FieldECI         FieldName = "ECI"
	FieldCard        FieldName = "CARD"
	FieldCardBrand   FieldName = "CARD_BRAND"

	// FieldRFU is the reserved slot at the end of every MAC_GENERAL field list.
	FieldRFU FieldName = "RFU"
)

// TransactionType is the TRTYPE code.
type TransactionType string

const (
	TrTypeSale        TransactionType = "1"
	TrTypePreAuth     TransactionType = "12"
	TrTypeCompletion  TransactionType = "21"
	TrTypeReversal    TransactionType = "22"
	TrTypePreAuthVoid TransactionType = "24"
	TrTypeStatus      TransactionType = "90"
)

// AddendumDefault marks the presence of the AD.CUST_BOR_ORDER_ID addendum.
const AddendumDefault = "AD,TD"

var saleLikeRequestFields = []FieldName{
	FieldTerminal, FieldTrType, FieldAmount, FieldCurrency, FieldOrder, FieldTimestamp, FieldNonce, FieldRFU,
}

var requestFieldLists = map[TransactionType][]FieldName{
	TrTypeSale:        saleLikeRequestFields,
	TrTypePreAuth:     saleLikeRequestFields,
	TrTypeCompletion:  saleLikeRequestFields,
	TrTypeReversal:    saleLikeRequestFields,
	TrTypePreAuthVoid: saleLikeRequestFields,
	TrTypeStatus:      {FieldTerminal, FieldTrType, FieldOrder, FieldNonce},
}

var responseFields = []FieldName{
	FieldAction, FieldRC, FieldApproval, FieldTerminal, FieldTrType, FieldAmount, FieldCurrency, FieldOrder,
	FieldRRN, FieldIntRef, FieldParesStatus, FieldECI, FieldTimestamp, FieldNonce, FieldRFU,
}

var responseFieldLists = map[TransactionType][]FieldName{
	TrTypeSale:        responseFields,
	TrTypePreAuth:     responseFields,
	TrTypeCompletion:  responseFields,
	TrTypeReversal:    responseFields,
	TrTypePreAuthVoid: responseFields,
	TrTypeStatus:      responseFields,
}

// RequestFields returns the ordered signing list for an outbound message.
func RequestFields(t TransactionType) ([]FieldName, error) {
	fields, ok := requestFieldLists[t]
	if !ok {
		return nil, fmt.Errorf("unsupported request transaction type %q", t)
	}
	return fields, nil
}

// ResponseFields returns the ordered signing list for an inbound message.
func ResponseFields(t TransactionType) ([]FieldName, error) {
	fields, ok := responseFieldLists[t]
	if !ok {
		return nil, fmt.Errorf("unsupported response transaction type %q", t)
	}
	return fields, nil
}

// FieldSource resolves a field to its value. Empty or unknown fields report false.
type FieldSource interface {
	Lookup(name FieldName) (string, bool)
}

// FieldMap is an unordered FieldSource, mostly useful for tooling and tests.
type FieldMap map[FieldName]string

func (m FieldMap) Lookup(name FieldName) (string, bool) {
	v, ok := m[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// PaymentRequest is the outbound form posted by the browser to the gateway.
type PaymentRequest struct {
	Terminal    string
	TrType      TransactionType
	Amount      string
	Currency    string
	Order       string
	Desc        string
	Merchant    string
	MerchName   string
	MerchURL    string
	BackRef     string
	Country     string
	MerchGMT    string
	Lang        string
	Addendum    string
	CustOrderID string
	Timestamp   string
	MInfo       string
	Nonce       string
	PSign       string
}

func (r *PaymentRequest) Lookup(name FieldName) (string, bool) {
	var v string
	switch name {
	case FieldTerminal:
		v = r.Terminal
	case FieldTrType:
		v = string(r.TrType)
	case FieldAmount:
		v = r.Amount
	case FieldCurrency:
		v = r.Currency
	case FieldOrder:
		v = r.Order
	case FieldDesc:
		v = r.Desc
	case FieldMerchant:
		v = r.Merchant
	case FieldMerchName:
		v = r.MerchName
	case FieldMerchURL:
		v = r.MerchURL
	case FieldBackRef:
		v = r.BackRef
	case FieldCountry:
		v = r.Country
	case FieldMerchGMT:
		v = r.MerchGMT
	case FieldLang:
		v = r.Lang
	case FieldAddendum:
		v = r.Addendum
	case FieldCustOrderID:
		v = r.CustOrderID
	case FieldTimestamp:
		v = r.Timestamp
	case FieldMInfo:
		v = r.MInfo
	case FieldNonce:
		v = r.Nonce
	case FieldPSign:
		v = r.PSign
	}
	return v, v != ""
}

// formOrder is the order hidden inputs are rendered in.
var formOrder = []FieldName{
	FieldTerminal, FieldTrType, FieldAmount, FieldCurrency, FieldOrder, FieldDesc, FieldMerchant,
	FieldMerchName, FieldMerchURL, FieldBackRef, FieldCountry, FieldMerchGMT, FieldLang, FieldAddendum,
	FieldCustOrderID, FieldTimestamp, FieldMInfo, FieldNonce, FieldPSign,
}

// FormField is a single hidden input of the redirect form.
type FormField struct {
	Name  string
	Value string
}

// FormFields lists every non-empty request field in a stable order.
func (r *PaymentRequest) FormFields() []FormField {
	out := make([]FormField, 0, len(formOrder))
	for _, name := range formOrder {
		if v, ok := r.Lookup(name); ok {
			out = append(out, FormField{Name: string(name), Value: v})
		}
	}
	return out
}

// PaymentResponse is the result the gateway posts to BACKREF.
type PaymentResponse struct {
	Action      string
	RC          string
	StatusMsg   string
	Terminal    string
	TrType      TransactionType
	Amount      string
	Currency    string
	Order       string
	Nonce       string
	IntRef      string
	RRN         string
	Approval    string
	ParesStatus string
	ECI         string
	Card        string
	CardBrand   string
	Timestamp   string
	Lang        string
	PSign       string
}

func (r *PaymentResponse) Lookup(name FieldName) (string, bool) {
	var v string
	switch name {
	case FieldAction:
		v = r.Action
	case FieldRC:
		v = r.RC
	case FieldStatusMsg:
		v = r.StatusMsg
	case FieldTerminal:
		v = r.Terminal
	case FieldTrType:
		v = string(r.TrType)
	case FieldAmount:
		v = r.Amount
	case FieldCurrency:
		v = r.Currency
	case FieldOrder:
		v = r.Order
	case FieldNonce:
		v = r.Nonce
	case FieldIntRef:
		v = r.IntRef
	case FieldRRN:
		v = r.RRN
	case FieldApproval:
		v = r.Approval
	case FieldParesStatus:
		v = r.ParesStatus
	case FieldECI:
		v = r.ECI
	case FieldCard:
		v = r.Card
	case FieldCardBrand:
		v = r.CardBrand
	case FieldTimestamp:
		v = r.Timestamp
	case FieldLang:
		v = r.Lang
	case FieldPSign:
		v = r.PSign
	}
	return v, v != ""
}

// ParseResponse reads a callback form. Missing keys stay empty. Signed fields
// are kept byte for byte; only the unsigned display fields are trimmed.
func ParseResponse(form url.Values) *PaymentResponse {
	raw := func(name FieldName) string {
		return form.Get(string(name))
	}
	display := func(name FieldName) string {
		return strings.TrimSpace(form.Get(string(name)))
	}
	return &PaymentResponse{
		Action:      raw(FieldAction),
		RC:          raw(FieldRC),
		StatusMsg:   display(FieldStatusMsg),
		Terminal:    raw(FieldTerminal),
		TrType:      TransactionType(raw(FieldTrType)),
		Amount:      raw(FieldAmount),
		Currency:    raw(FieldCurrency),
		Order:       raw(FieldOrder),
		Nonce:       raw(FieldNonce),
		IntRef:      raw(FieldIntRef),
		RRN:         raw(FieldRRN),
		Approval:    raw(FieldApproval),
		ParesStatus: raw(FieldParesStatus),
		ECI:         raw(FieldECI),
		Card:        display(FieldCard),
		CardBrand:   display(FieldCardBrand),
		Timestamp:   raw(FieldTimestamp),
		Lang:        display(FieldLang),
		PSign:       display(FieldPSign),
	}
}

// Values renders the response back into form values, e.g. for tests and replays.
func (r *PaymentResponse) Values() url.Values {
	v := url.Values{}
	for _, name := range []FieldName{
		FieldAction, FieldRC, FieldStatusMsg, FieldTerminal, FieldTrType, FieldAmount, FieldCurrency,
		FieldOrder, FieldNonce, FieldIntRef, FieldRRN, FieldApproval, FieldParesStatus, FieldECI,
		FieldCard, FieldCardBrand, FieldTimestamp, FieldLang, FieldPSign,
	} {
		if val, ok := r.Lookup(name); ok {
			v.Set(string(name), val)
		}
	}
	return v
}
