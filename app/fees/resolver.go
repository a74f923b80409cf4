package fees

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

type CountryConfigSource interface {
	Get(ctx context.Context, currency string) (entity.CountryFeeConfig, error)
}

// OverrideStore returns nil without error when an organizer has no override row.
type OverrideStore interface {
	FindByOrganizerID(ctx context.Context, organizerID string) (*entity.OrganizerFeeOverride, error)
}

type Resolver struct {
	countries CountryConfigSource
	overrides OverrideStore
}

func NewResolver(countries CountryConfigSource, overrides OverrideStore) *Resolver {
	return &Resolver{countries: countries, overrides: overrides}
}

// Resolve merges the currency's country config with the organizer's override.
// A disabled or missing override leaves the country values untouched, and a
// null override field inherits the country value rather than meaning zero.
func (r *Resolver) Resolve(ctx context.Context, organizerID string, currency string) (Parameters, error) {
	country, err := r.countries.Get(ctx, currency)
	if err != nil {
		return Parameters{}, err
	}
	params := parametersFromCountry(country)

	organizerID = strings.TrimSpace(organizerID)
	if organizerID == "" {
		return params, nil
	}

	override, err := r.overrides.FindByOrganizerID(ctx, organizerID)
	if err != nil {
		return Parameters{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if override == nil || !override.Enabled {
		return params, nil
	}

	return params.withOverride(*override), nil
}
