package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundProcessed RefundStatus = "processed"
	RefundRejected  RefundStatus = "rejected"
)

func (s RefundStatus) Terminal() bool {
	return s == RefundProcessed || s == RefundRejected
}

type Actor string

const (
	ActorPlatform  Actor = "platform"
	ActorOrganizer Actor = "organizer"
)

type RefundRequest struct {
	ID              string
	OrderID         string
	OrganizerID     string
	RequestedAmount decimal.Decimal
	Currency        string
	Reason          string
	Status          RefundStatus
	Escalated       bool
	IsConnectOrder  bool
	ProcessorRef    *string
	ProcessedBy     *Actor
	DecidedBy       *string
	Notes           *string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
