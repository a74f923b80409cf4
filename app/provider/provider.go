package provider

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// EventKind is the closed set of webhook events this service acts on.
// Every other provider event type maps to EventKindIgnored.
type EventKind string

const (
	EventKindIgnored               EventKind = "ignored"
	EventKindIdentityVerified      EventKind = "identity_verified"
	EventKindIdentityRequiresInput EventKind = "identity_requires_input"
	EventKindIdentityCanceled      EventKind = "identity_canceled"
	EventKindIdentityProcessing    EventKind = "identity_processing"
	EventKindConnectAccountUpdated EventKind = "connect_account_updated"
	EventKindPayoutPaid            EventKind = "payout_paid"
	EventKindPayoutFailed          EventKind = "payout_failed"
)

type ConnectAccount struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

func (a ConnectAccount) FullyEnabled() bool {
	return a.ChargesEnabled && a.PayoutsEnabled
}

type PayoutDetails struct {
	ID             string
	AccountID      string
	Amount         decimal.Decimal
	Currency       string
	FailureMessage string
}

// Event is a verified provider event reduced to the fields the lifecycle
// core needs. OrganizerID is empty when the payload carries no correlation.
type Event struct {
	ExternalID       string
	Type             string
	Kind             EventKind
	OrganizerID      string
	SessionID        string
	// SessionCreatedAt is zero when the payload carries no creation time.
	SessionCreatedAt time.Time
	InputReason      string
	Account          *ConnectAccount
	Payout           *PayoutDetails
}

type Provider interface {
	Code() string
	VerifyAndParse(ctx context.Context, payload []byte, signature string) (*Event, error)
	// Parse decodes a payload that was verified when first received.
	Parse(payload []byte) (*Event, error)
}
