package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentProvider names the processor that settles an order.
type PaymentProvider string

const (
	ProviderStripe   PaymentProvider = "stripe"
	ProviderPaystack PaymentProvider = "paystack"
)

var KnownPaymentProviders = []PaymentProvider{ProviderStripe, ProviderPaystack}

func ParsePaymentProvider(raw string) (PaymentProvider, bool) {
	for _, p := range KnownPaymentProviders {
		if string(p) == raw {
			return p, true
		}
	}
	return "", false
}

// ProviderRate is a processor's percentage (as a fraction) plus fixed charge.
type ProviderRate struct {
	Percent decimal.Decimal
	Fixed   decimal.Decimal
}

// CountryFeeConfig holds the default fee parameters for one currency.
// Percent fields are fractions; the store keeps whole percents.
type CountryFeeConfig struct {
	Currency                 string
	CountryCode              string
	ServiceFeePercent        decimal.Decimal
	ServiceFeeFixedPerTicket decimal.Decimal
	ServiceFeeCap            decimal.NullDecimal
	FixedFeePerOrder         decimal.Decimal
	ProviderRates            map[PaymentProvider]ProviderRate
	PayoutFee                decimal.Decimal
	MinPayoutAmount          decimal.Decimal
	UpdatedAt                time.Time
}

// OrganizerFeeOverride carries optional per-organizer service fee fields.
// A null field inherits the country value. ServiceFeePercent is a whole percent.
type OrganizerFeeOverride struct {
	OrganizerID              string
	Enabled                  bool
	ServiceFeePercent        decimal.NullDecimal
	ServiceFeeFixedPerTicket decimal.NullDecimal
	ServiceFeeCap            decimal.NullDecimal
	UpdatedAt                time.Time
}
