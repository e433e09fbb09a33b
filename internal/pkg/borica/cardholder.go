package borica

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CardholderInfo is sent to the gateway only inside the M_INFO blob.
type CardholderInfo struct {
	Name            string `json:"name" validate:"required,max=45"`
	Email           string `json:"email" validate:"required_without=PhoneSubscriber,omitempty,email,max=255"`
	PhoneCC         string `json:"phone_cc" validate:"required_with=PhoneSubscriber,omitempty,numeric,max=3"`
	PhoneSubscriber string `json:"phone_subscriber" validate:"required_without=Email,omitempty,numeric,max=15"`
}

type mInfoPhone struct {
	CC         string `json:"cc"`
	Subscriber string `json:"subscriber"`
}

type mInfo struct {
	CardholderName string      `json:"cardholderName"`
	Email          string      `json:"email,omitempty"`
	MobilePhone    *mInfoPhone `json:"mobilePhone,omitempty"`
}

// Validate checks the name/email/phone rules.
func (c CardholderInfo) Validate() error {
	return validate.Struct(c)
}

// EncodeMInfo validates c and renders it as the base64 M_INFO value.
func (c CardholderInfo) EncodeMInfo() (string, error) {
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("invalid cardholder info: %w", err)
	}
	payload := mInfo{
		CardholderName: strings.TrimSpace(c.Name),
		Email:          strings.TrimSpace(c.Email),
	}
	if c.PhoneSubscriber != "" {
		payload.MobilePhone = &mInfoPhone{CC: c.PhoneCC, Subscriber: c.PhoneSubscriber}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeMInfo is the inverse of EncodeMInfo.
func DecodeMInfo(v string) (CardholderInfo, error) {
	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return CardholderInfo{}, fmt.Errorf("decode M_INFO: %w", err)
	}
	var payload mInfo
	if err := json.Unmarshal(raw, &payload); err != nil {
		return CardholderInfo{}, fmt.Errorf("unmarshal M_INFO: %w", err)
	}
	out := CardholderInfo{Name: payload.CardholderName, Email: payload.Email}
	if payload.MobilePhone != nil {
		out.PhoneCC = payload.MobilePhone.CC
		out.PhoneSubscriber = payload.MobilePhone.Subscriber
	}
	return out, nil
}
