package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

type Payout struct {
	ID               string
	ProviderPayoutID string
	OrganizerID      string
	Amount           decimal.Decimal
	Currency         string
	Status           PayoutStatus
	FailureReason    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
