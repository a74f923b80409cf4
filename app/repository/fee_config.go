package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var (
	ErrCountryFeeConfigNotFound = errors.New("country fee config not found")
	ErrUnknownFeeField          = errors.New("unknown fee field")
)

// FeeFieldKind describes how an administratively editable fee column is validated.
type FeeFieldKind int

const (
	FeeFieldPercent FeeFieldKind = iota + 1
	FeeFieldAmount
	FeeFieldNullablePercent
	FeeFieldNullableAmount
	FeeFieldBool
)

// CountryFeeFields lists the editable country fee columns. Percentages are
// stored as whole percents.
var CountryFeeFields = map[string]FeeFieldKind{
	"service_fee_percentage":         FeeFieldPercent,
	"service_fee_fixed_per_ticket":   FeeFieldAmount,
	"service_fee_cap":                FeeFieldNullableAmount,
	"processing_fee_fixed_per_order": FeeFieldAmount,
	"stripe_processing_fee_pct":      FeeFieldPercent,
	"stripe_processing_fee_fixed":    FeeFieldAmount,
	"paystack_processing_fee_pct":    FeeFieldPercent,
	"paystack_processing_fee_fixed":  FeeFieldAmount,
	"payout_fee":                     FeeFieldAmount,
	"min_payout_amount":              FeeFieldAmount,
}

var OrganizerOverrideFields = map[string]FeeFieldKind{
	"custom_fee_enabled":            FeeFieldBool,
	"custom_service_fee_percentage": FeeFieldNullablePercent,
	"custom_service_fee_fixed":      FeeFieldNullableAmount,
	"custom_service_fee_cap":        FeeFieldNullableAmount,
}

type CountryFeeConfigRepository struct {
	db DBTX
}

func NewCountryFeeConfigRepository(db DBTX) *CountryFeeConfigRepository {
	return &CountryFeeConfigRepository{db: db}
}

const countryFeeColumns = `
	currency, country_code,
	service_fee_percentage, service_fee_fixed_per_ticket, service_fee_cap,
	processing_fee_fixed_per_order,
	stripe_processing_fee_pct, stripe_processing_fee_fixed,
	paystack_processing_fee_pct, paystack_processing_fee_fixed,
	payout_fee, min_payout_amount, updated_at
`

// LoadAll returns every active country config in one query.
func (r *CountryFeeConfigRepository) LoadAll(ctx context.Context) ([]entity.CountryFeeConfig, error) {
	query := `SELECT ` + countryFeeColumns + ` FROM country_fee_configs WHERE is_active = ?`

	rows, err := r.db.QueryContext(ctx, query, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]entity.CountryFeeConfig, 0)
	for rows.Next() {
		item, err := scanCountryFeeConfig(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *CountryFeeConfigRepository) FindByCurrency(ctx context.Context, currency string) (*entity.CountryFeeConfig, error) {
	query := `SELECT ` + countryFeeColumns + ` FROM country_fee_configs WHERE currency = ?`

	item, err := scanCountryFeeConfig(r.db.QueryRowContext(ctx, query, currency))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateField writes one whitelisted column. value is a decimal.Decimal,
// decimal.NullDecimal or bool matching the field kind.
func (r *CountryFeeConfigRepository) UpdateField(ctx context.Context, currency, field string, value interface{}, now time.Time) error {
	if _, ok := CountryFeeFields[field]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeeField, field)
	}

	query := fmt.Sprintf(`UPDATE country_fee_configs SET %s = ?, updated_at = ? WHERE currency = ?`, field)
	result, err := r.db.ExecContext(ctx, query, value, now, currency)
	if err != nil {
		return err
	}
	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	existing, err := r.FindByCurrency(ctx, currency)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCountryFeeConfigNotFound
	}
	return nil
}

func scanCountryFeeConfig(scan rowScanner) (entity.CountryFeeConfig, error) {
	var item entity.CountryFeeConfig
	var servicePct, stripePct, paystackPct decimal.Decimal
	var stripeFixed, paystackFixed decimal.Decimal

	err := scan.Scan(
		&item.Currency,
		&item.CountryCode,
		&servicePct,
		&item.ServiceFeeFixedPerTicket,
		&item.ServiceFeeCap,
		&item.FixedFeePerOrder,
		&stripePct,
		&stripeFixed,
		&paystackPct,
		&paystackFixed,
		&item.PayoutFee,
		&item.MinPayoutAmount,
		&item.UpdatedAt,
	)
	if err != nil {
		return entity.CountryFeeConfig{}, err
	}

	item.ServiceFeePercent = wholePercentToFraction(servicePct)
	item.ProviderRates = map[entity.PaymentProvider]entity.ProviderRate{
		entity.ProviderStripe:   {Percent: wholePercentToFraction(stripePct), Fixed: stripeFixed},
		entity.ProviderPaystack: {Percent: wholePercentToFraction(paystackPct), Fixed: paystackFixed},
	}

	return item, nil
}

var hundred = decimal.NewFromInt(100)

func wholePercentToFraction(v decimal.Decimal) decimal.Decimal {
	return v.Div(hundred)
}

type OrganizerFeeOverrideRepository struct {
	db DBTX
}

func NewOrganizerFeeOverrideRepository(db DBTX) *OrganizerFeeOverrideRepository {
	return &OrganizerFeeOverrideRepository{db: db}
}

func (r *OrganizerFeeOverrideRepository) FindByOrganizerID(ctx context.Context, organizerID string) (*entity.OrganizerFeeOverride, error) {
	query := `
		SELECT organizer_id, custom_fee_enabled, custom_service_fee_percentage,
			custom_service_fee_fixed, custom_service_fee_cap, updated_at
		FROM organizer_fee_overrides
		WHERE organizer_id = ?
	`

	item := &entity.OrganizerFeeOverride{}
	err := r.db.QueryRowContext(ctx, query, organizerID).Scan(
		&item.OrganizerID,
		&item.Enabled,
		&item.ServiceFeePercent,
		&item.ServiceFeeFixedPerTicket,
		&item.ServiceFeeCap,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateField writes one whitelisted override column, creating a disabled
// override row first when the organizer has none.
func (r *OrganizerFeeOverrideRepository) UpdateField(ctx context.Context, organizerID, field string, value interface{}, now time.Time) error {
	if _, ok := OrganizerOverrideFields[field]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeeField, field)
	}

	insert := `
		INSERT INTO organizer_fee_overrides (organizer_id, custom_fee_enabled, updated_at)
		VALUES (?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, insert, organizerID, false, now); err != nil && !isDuplicateEntryError(err) {
		return err
	}

	query := fmt.Sprintf(`UPDATE organizer_fee_overrides SET %s = ?, updated_at = ? WHERE organizer_id = ?`, field)
	_, err := r.db.ExecContext(ctx, query, value, now, organizerID)
	return err
}
