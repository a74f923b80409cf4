package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

const moneyPlaces = 2

type Breakdown struct {
	ServiceFee    decimal.Decimal
	ProcessingFee decimal.Decimal
	TotalFee      decimal.Decimal
	BuyerTotal    decimal.Decimal
}

// ComputeFees splits the fees for an order into the platform's service fee
// and the processor pass-through. Each component is rounded half away from
// zero to cents before summing, so the breakdown always adds up to TotalFee.
func ComputeFees(subtotal decimal.Decimal, ticketCount int64, params Parameters, provider entity.PaymentProvider) (Breakdown, error) {
	if subtotal.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: subtotal %s", ErrInvalidAmount, subtotal.String())
	}
	if ticketCount < 0 {
		return Breakdown{}, fmt.Errorf("%w: ticket count %d", ErrInvalidAmount, ticketCount)
	}
	rate, ok := params.ProviderRate(provider)
	if !ok {
		return Breakdown{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	serviceFee := decimal.Zero
	if !subtotal.IsZero() && ticketCount > 0 {
		serviceFee = subtotal.Mul(params.serviceFeePercent).
			Add(decimal.NewFromInt(ticketCount).Mul(params.serviceFeeFixedPerTicket))
	}
	if params.serviceFeeCap.Valid && serviceFee.GreaterThan(params.serviceFeeCap.Decimal) {
		serviceFee = params.serviceFeeCap.Decimal
	}

	base := subtotal.Add(serviceFee)
	processingFee := base.Mul(rate.Percent).Add(rate.Fixed).Add(params.fixedFeePerOrder)

	roundedService := serviceFee.Round(moneyPlaces)
	roundedProcessing := processingFee.Round(moneyPlaces)
	total := roundedService.Add(roundedProcessing)

	return Breakdown{
		ServiceFee:    roundedService,
		ProcessingFee: roundedProcessing,
		TotalFee:      total,
		BuyerTotal:    subtotal.Add(total),
	}, nil
}
