package fees

import (
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var hundred = decimal.NewFromInt(100)

// Parameters is the merged fee configuration used for one computation.
// Values are only produced by Resolver.Resolve.
type Parameters struct {
	currency                 string
	serviceFeePercent        decimal.Decimal
	serviceFeeFixedPerTicket decimal.Decimal
	serviceFeeCap            decimal.NullDecimal
	fixedFeePerOrder         decimal.Decimal
	providerRates            map[entity.PaymentProvider]entity.ProviderRate
	custom                   bool
}

func (p Parameters) Currency() string                          { return p.currency }
func (p Parameters) ServiceFeePercent() decimal.Decimal        { return p.serviceFeePercent }
func (p Parameters) ServiceFeeFixedPerTicket() decimal.Decimal { return p.serviceFeeFixedPerTicket }
func (p Parameters) ServiceFeeCap() decimal.NullDecimal        { return p.serviceFeeCap }
func (p Parameters) FixedFeePerOrder() decimal.Decimal         { return p.fixedFeePerOrder }
func (p Parameters) IsCustom() bool                            { return p.custom }

func (p Parameters) ProviderRate(provider entity.PaymentProvider) (entity.ProviderRate, bool) {
	rate, ok := p.providerRates[provider]
	return rate, ok
}

func parametersFromCountry(cfg entity.CountryFeeConfig) Parameters {
	rates := make(map[entity.PaymentProvider]entity.ProviderRate, len(cfg.ProviderRates))
	for k, v := range cfg.ProviderRates {
		rates[k] = v
	}
	return Parameters{
		currency:                 cfg.Currency,
		serviceFeePercent:        cfg.ServiceFeePercent,
		serviceFeeFixedPerTicket: cfg.ServiceFeeFixedPerTicket,
		serviceFeeCap:            cfg.ServiceFeeCap,
		fixedFeePerOrder:         cfg.FixedFeePerOrder,
		providerRates:            rates,
	}
}

func (p Parameters) withOverride(o entity.OrganizerFeeOverride) Parameters {
	merged := p
	if o.ServiceFeePercent.Valid {
		merged.serviceFeePercent = o.ServiceFeePercent.Decimal.Div(hundred)
	}
	if o.ServiceFeeFixedPerTicket.Valid {
		merged.serviceFeeFixedPerTicket = o.ServiceFeeFixedPerTicket.Decimal
	}
	if o.ServiceFeeCap.Valid {
		merged.serviceFeeCap = o.ServiceFeeCap
	}
	merged.custom = true
	return merged
}
