package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const CodeStripe = "stripe"

// zeroDecimalCurrencies are sent by Stripe in whole units instead of cents.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// fromMinorUnits converts a Stripe integer amount into a major-unit decimal.
func fromMinorUnits(amount int64, currency string) decimal.Decimal {
	if _, ok := zeroDecimalCurrencies[currency]; ok {
		return decimal.New(amount, 0)
	}
	return decimal.New(amount, -2)
}

type StripeConfig struct {
	WebhookSecret             string
	SignatureToleranceSeconds int64
}

type StripeProvider struct {
	cfg StripeConfig
	now func() time.Time
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	if cfg.SignatureToleranceSeconds <= 0 {
		cfg.SignatureToleranceSeconds = 300
	}
	return &StripeProvider{cfg: cfg, now: time.Now}
}

func (p *StripeProvider) Code() string {
	return CodeStripe
}

var stripeEventKinds = map[string]EventKind{
	"identity.verification_session.verified":       EventKindIdentityVerified,
	"identity.verification_session.requires_input": EventKindIdentityRequiresInput,
	"identity.verification_session.canceled":       EventKindIdentityCanceled,
	"identity.verification_session.processing":     EventKindIdentityProcessing,
	"account.updated":                              EventKindConnectAccountUpdated,
	"payout.paid":                                  EventKindPayoutPaid,
	"payout.failed":                                EventKindPayoutFailed,
}

type stripeEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Account string `json:"account"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (p *StripeProvider) VerifyAndParse(_ context.Context, payload []byte, signature string) (*Event, error) {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}
	if !verifyStripeSignature(payload, signature, p.cfg.WebhookSecret, p.cfg.SignatureToleranceSeconds, p.now()) {
		return nil, ErrInvalidSignature
	}
	return p.Parse(payload)
}

func (p *StripeProvider) Parse(payload []byte) (*Event, error) {
	var envelope stripeEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	envelope.ID = strings.TrimSpace(envelope.ID)
	if envelope.ID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrMalformedPayload)
	}

	event := &Event{
		ExternalID: envelope.ID,
		Type:       envelope.Type,
		Kind:       EventKindIgnored,
	}

	kind, ok := stripeEventKinds[envelope.Type]
	if !ok {
		return event, nil
	}
	event.Kind = kind

	var err error
	switch kind {
	case EventKindIdentityVerified, EventKindIdentityRequiresInput, EventKindIdentityCanceled, EventKindIdentityProcessing:
		err = assignVerificationSession(event, envelope.Data.Object)
	case EventKindConnectAccountUpdated:
		err = assignAccount(event, envelope.Data.Object)
	case EventKindPayoutPaid, EventKindPayoutFailed:
		err = assignPayout(event, envelope.Account, envelope.Data.Object)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return event, nil
}

func assignVerificationSession(event *Event, raw json.RawMessage) error {
	var session struct {
		ID        string            `json:"id"`
		Created   int64             `json:"created"`
		Metadata  map[string]string `json:"metadata"`
		LastError *struct {
			Code   string `json:"code"`
			Reason string `json:"reason"`
		} `json:"last_error"`
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return err
	}
	event.SessionID = strings.TrimSpace(session.ID)
	if session.Created > 0 {
		event.SessionCreatedAt = time.Unix(session.Created, 0).UTC()
	}
	event.OrganizerID = strings.TrimSpace(session.Metadata["organizer_id"])
	if session.LastError != nil {
		event.InputReason = firstNonEmpty(session.LastError.Reason, session.LastError.Code)
	}
	return nil
}

func assignAccount(event *Event, raw json.RawMessage) error {
	var account struct {
		ID               string            `json:"id"`
		ChargesEnabled   bool              `json:"charges_enabled"`
		PayoutsEnabled   bool              `json:"payouts_enabled"`
		DetailsSubmitted bool              `json:"details_submitted"`
		Metadata         map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &account); err != nil {
		return err
	}
	event.OrganizerID = strings.TrimSpace(account.Metadata["organizer_id"])
	event.Account = &ConnectAccount{
		ID:               strings.TrimSpace(account.ID),
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	}
	return nil
}

func assignPayout(event *Event, accountID string, raw json.RawMessage) error {
	var payout struct {
		ID             string            `json:"id"`
		Amount         int64             `json:"amount"`
		Currency       string            `json:"currency"`
		FailureMessage string            `json:"failure_message"`
		Metadata       map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &payout); err != nil {
		return err
	}
	currency := strings.ToUpper(strings.TrimSpace(payout.Currency))
	event.OrganizerID = strings.TrimSpace(payout.Metadata["organizer_id"])
	event.Payout = &PayoutDetails{
		ID:             strings.TrimSpace(payout.ID),
		AccountID:      strings.TrimSpace(accountID),
		Amount:         fromMinorUnits(payout.Amount, currency),
		Currency:       currency,
		FailureMessage: strings.TrimSpace(payout.FailureMessage),
	}
	return nil
}

func verifyStripeSignature(payload []byte, signatureHeader string, webhookSecret string, toleranceSeconds int64, now time.Time) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(webhookSecret) == "" {
		return false
	}

	parts := strings.Split(signatureHeader, ",")
	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	nowUnix := now.Unix()
	if nowUnix-tsUnix > toleranceSeconds || tsUnix-nowUnix > toleranceSeconds {
		return false
	}

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	expected := mac.Sum(nil)

	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}

	return false
}

// SignStripePayload builds a Stripe-Signature header value. Used by local
// tooling and tests to produce deliveries the verifier accepts.
func SignStripePayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
