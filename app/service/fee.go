package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"github.com/vibast-solutions/ms-go-fees/app/fees"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
)

type parameterResolver interface {
	Resolve(ctx context.Context, organizerID string, currency string) (fees.Parameters, error)
}

type configInvalidator interface {
	Invalidate()
}

type countryFeeWriter interface {
	UpdateField(ctx context.Context, currency, field string, value interface{}, now time.Time) error
}

type overrideFeeWriter interface {
	UpdateField(ctx context.Context, organizerID, field string, value interface{}, now time.Time) error
}

type organizerReader interface {
	FindByID(ctx context.Context, id string) (*entity.Organizer, error)
}

type QuoteInput struct {
	OrganizerID string
	Currency    string
	Provider    string
	Subtotal    decimal.Decimal
	TicketCount int64
}

type Quote struct {
	Currency   string
	Provider   entity.PaymentProvider
	Subtotal   decimal.Decimal
	Parameters fees.Parameters
	Breakdown  fees.Breakdown
}

// FieldValue is an administrative write. Null clears nullable columns.
type FieldValue struct {
	Raw  string
	Null bool
}

type FeeService struct {
	resolver   parameterResolver
	cache      configInvalidator
	countries  countryFeeWriter
	overrides  overrideFeeWriter
	organizers organizerReader
	audit      auditTrail
	clock      clock.Clock
	logger     logrus.FieldLogger
}

func NewFeeService(
	resolver parameterResolver,
	cache configInvalidator,
	countries countryFeeWriter,
	overrides overrideFeeWriter,
	organizers organizerReader,
	audits auditLogRepository,
	clk clock.Clock,
) *FeeService {
	logger := factory.NewModuleLogger("fee-service")
	return &FeeService{
		resolver:   resolver,
		cache:      cache,
		countries:  countries,
		overrides:  overrides,
		organizers: organizers,
		audit:      auditTrail{repo: audits, clock: clk, logger: logger},
		clock:      clk,
		logger:     logger,
	}
}

func (s *FeeService) ResolveParameters(ctx context.Context, organizerID, currency string) (fees.Parameters, error) {
	currency = fees.NormalizeCurrency(currency)
	if currency == "" {
		return fees.Parameters{}, fmt.Errorf("%w: currency is required", ErrInvalidRequest)
	}
	return s.resolver.Resolve(ctx, organizerID, currency)
}

// Quote resolves the organizer's parameters and computes the fee breakdown
// without persisting anything.
func (s *FeeService) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	provider, err := parseProvider(input.Provider)
	if err != nil {
		return nil, err
	}

	params, err := s.ResolveParameters(ctx, input.OrganizerID, input.Currency)
	if err != nil {
		return nil, err
	}

	breakdown, err := computeFees(input.Subtotal, input.TicketCount, params, provider)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Currency:   params.Currency(),
		Provider:   provider,
		Subtotal:   input.Subtotal,
		Parameters: params,
		Breakdown:  breakdown,
	}, nil
}

func (s *FeeService) UpdateCountryFeeField(ctx context.Context, currency, field string, value FieldValue, actorRef string) error {
	currency = fees.NormalizeCurrency(currency)
	if currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidRequest)
	}
	field = strings.ToLower(strings.TrimSpace(field))
	kind, ok := repository.CountryFeeFields[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeeField, field)
	}
	converted, err := convertFieldValue(kind, value)
	if err != nil {
		return err
	}

	if err := s.countries.UpdateField(ctx, currency, field, converted, s.clock.Now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrCountryFeeConfigNotFound):
			return fees.ErrCurrencyNotConfigured
		case errors.Is(err, repository.ErrUnknownFeeField):
			return fmt.Errorf("%w: %s", ErrUnknownFeeField, field)
		}
		return err
	}

	s.cache.Invalidate()
	s.audit.record(ctx, "fee_config_updated", "country_fee_config", currency, actorRef, map[string]interface{}{
		"field": field,
		"value": auditValue(value),
	})
	s.logger.WithFields(logrus.Fields{"currency": currency, "field": field}).Info("Country fee config updated")
	return nil
}

func (s *FeeService) UpdateOrganizerOverrideField(ctx context.Context, organizerID, field string, value FieldValue, actorRef string) error {
	organizerID = strings.TrimSpace(organizerID)
	if organizerID == "" {
		return fmt.Errorf("%w: organizer id is required", ErrInvalidRequest)
	}
	field = strings.ToLower(strings.TrimSpace(field))
	kind, ok := repository.OrganizerOverrideFields[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeeField, field)
	}
	converted, err := convertFieldValue(kind, value)
	if err != nil {
		return err
	}

	organizer, err := s.organizers.FindByID(ctx, organizerID)
	if err != nil {
		return err
	}
	if organizer == nil {
		return ErrOrganizerNotFound
	}

	if err := s.overrides.UpdateField(ctx, organizerID, field, converted, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrUnknownFeeField) {
			return fmt.Errorf("%w: %s", ErrUnknownFeeField, field)
		}
		return err
	}

	s.cache.Invalidate()
	s.audit.record(ctx, "fee_config_updated", "organizer_fee_override", organizerID, actorRef, map[string]interface{}{
		"field": field,
		"value": auditValue(value),
	})
	s.logger.WithFields(logrus.Fields{"organizer_id": organizerID, "field": field}).Info("Organizer fee override updated")
	return nil
}

var hundred = decimal.NewFromInt(100)

// convertFieldValue turns a raw admin value into the column value for kind.
// Percent columns hold whole percents in [0, 100].
func convertFieldValue(kind repository.FeeFieldKind, value FieldValue) (interface{}, error) {
	nullable := kind == repository.FeeFieldNullablePercent || kind == repository.FeeFieldNullableAmount
	if value.Null {
		if !nullable {
			return nil, fmt.Errorf("%w: value is required", ErrInvalidRequest)
		}
		return decimal.NullDecimal{}, nil
	}

	raw := strings.TrimSpace(value.Raw)
	if kind == repository.FeeFieldBool {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidRequest, raw)
		}
		return b, nil
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidRequest, raw)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: value must not be negative", ErrInvalidRequest)
	}
	if (kind == repository.FeeFieldPercent || kind == repository.FeeFieldNullablePercent) && amount.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidRequest)
	}

	if nullable {
		return decimal.NewNullDecimal(amount), nil
	}
	return amount, nil
}

func auditValue(value FieldValue) interface{} {
	if value.Null {
		return nil
	}
	return strings.TrimSpace(value.Raw)
}

func parseProvider(raw string) (entity.PaymentProvider, error) {
	provider, ok := entity.ParsePaymentProvider(strings.ToLower(strings.TrimSpace(raw)))
	if !ok {
		return "", fmt.Errorf("%w: %w: %q", ErrInvalidRequest, fees.ErrUnknownProvider, raw)
	}
	return provider, nil
}

func computeFees(subtotal decimal.Decimal, ticketCount int64, params fees.Parameters, provider entity.PaymentProvider) (fees.Breakdown, error) {
	breakdown, err := fees.ComputeFees(subtotal, ticketCount, params, provider)
	if err != nil {
		if errors.Is(err, fees.ErrInvalidAmount) || errors.Is(err, fees.ErrUnknownProvider) {
			return fees.Breakdown{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return fees.Breakdown{}, err
	}
	return breakdown, nil
}
