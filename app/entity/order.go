package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID             string
	OrganizerID    string
	EventRef       string
	PayerRef       string
	Subtotal       decimal.Decimal
	TicketCount    int64
	Currency       string
	Provider       PaymentProvider
	ServiceFee     decimal.Decimal
	ProcessingFee  decimal.Decimal
	IsConnectOrder bool
	CreatedAt      time.Time
}

// Total is what the payer was charged, fees included.
func (o *Order) Total() decimal.Decimal {
	return o.Subtotal.Add(o.ServiceFee).Add(o.ProcessingFee)
}
