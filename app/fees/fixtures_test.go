package fees

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func usdConfig() entity.CountryFeeConfig {
	return entity.CountryFeeConfig{
		Currency:                 "USD",
		CountryCode:              "US",
		ServiceFeePercent:        dec("0.05"),
		ServiceFeeFixedPerTicket: decimal.Zero,
		FixedFeePerOrder:         decimal.Zero,
		ProviderRates: map[entity.PaymentProvider]entity.ProviderRate{
			entity.ProviderStripe:   {Percent: dec("0.029"), Fixed: dec("0.30")},
			entity.ProviderPaystack: {Percent: dec("0.015"), Fixed: dec("100")},
		},
	}
}

func ngnConfig() entity.CountryFeeConfig {
	return entity.CountryFeeConfig{
		Currency:                 "NGN",
		CountryCode:              "NG",
		ServiceFeePercent:        dec("0.05"),
		ServiceFeeFixedPerTicket: dec("200"),
		FixedFeePerOrder:         dec("100"),
		ProviderRates: map[entity.PaymentProvider]entity.ProviderRate{
			entity.ProviderPaystack: {Percent: dec("0.015"), Fixed: dec("100")},
		},
	}
}

type fakeConfigStore struct {
	mu      sync.Mutex
	configs []entity.CountryFeeConfig
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (s *fakeConfigStore) LoadAll(_ context.Context) ([]entity.CountryFeeConfig, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]entity.CountryFeeConfig, len(s.configs))
	copy(out, s.configs)
	return out, nil
}

func (s *fakeConfigStore) set(configs []entity.CountryFeeConfig, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = configs
	s.err = err
}

type fakeOverrideStore struct {
	items map[string]*entity.OrganizerFeeOverride
	err   error
}

func (s *fakeOverrideStore) FindByOrganizerID(_ context.Context, organizerID string) (*entity.OrganizerFeeOverride, error) {
	if s.err != nil {
		return nil, s.err
	}
	item, ok := s.items[organizerID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}
