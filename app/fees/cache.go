package fees

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheTTL = 5 * time.Minute
	reloadKey       = "country_fee_configs"
)

// ConfigStore loads every active country fee config in one round trip.
type ConfigStore interface {
	LoadAll(ctx context.Context) ([]entity.CountryFeeConfig, error)
}

// ConfigCache keeps a snapshot of all country fee configs keyed by currency.
// Expired or invalidated snapshots are replaced by a single-flight reload of
// the whole set. If the store fails, the last good snapshot keeps serving.
type ConfigCache struct {
	store  ConfigStore
	clock  clock.Clock
	ttl    time.Duration
	logger logrus.FieldLogger
	group  singleflight.Group

	mu         sync.RWMutex
	snapshot   map[string]entity.CountryFeeConfig
	loadedAt   time.Time
	lastGood   map[string]entity.CountryFeeConfig
	generation uint64
}

func NewConfigCache(store ConfigStore, clk clock.Clock, ttl time.Duration) *ConfigCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &ConfigCache{
		store:  store,
		clock:  clk,
		ttl:    ttl,
		logger: factory.NewModuleLogger("fee-config-cache"),
	}
}

func (c *ConfigCache) Get(ctx context.Context, currency string) (entity.CountryFeeConfig, error) {
	snapshot, err := c.current(ctx)
	if err != nil {
		return entity.CountryFeeConfig{}, err
	}
	cfg, ok := snapshot[NormalizeCurrency(currency)]
	if !ok {
		return entity.CountryFeeConfig{}, fmt.Errorf("%w: %s", ErrCurrencyNotConfigured, currency)
	}
	return cfg, nil
}

// Invalidate drops the snapshot so the next Get reloads from the store.
// A reload already in flight will not repopulate the snapshot.
func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.generation++
	c.mu.Unlock()
	c.group.Forget(reloadKey)
}

// Warm loads the snapshot eagerly, typically at startup.
func (c *ConfigCache) Warm(ctx context.Context) error {
	_, err := c.reload(ctx)
	return err
}

func (c *ConfigCache) current(ctx context.Context) (map[string]entity.CountryFeeConfig, error) {
	c.mu.RLock()
	if c.snapshot != nil && c.clock.Now().Sub(c.loadedAt) < c.ttl {
		snapshot := c.snapshot
		c.mu.RUnlock()
		return snapshot, nil
	}
	c.mu.RUnlock()

	return c.reload(ctx)
}

func (c *ConfigCache) reload(ctx context.Context) (map[string]entity.CountryFeeConfig, error) {
	result, err, _ := c.group.Do(reloadKey, func() (interface{}, error) {
		c.mu.RLock()
		generation := c.generation
		c.mu.RUnlock()

		items, err := c.store.LoadAll(context.WithoutCancel(ctx))
		if err != nil {
			c.mu.RLock()
			stale := c.lastGood
			c.mu.RUnlock()
			if stale != nil {
				c.logger.WithError(err).Warn("Fee config reload failed, serving last good snapshot")
				return stale, nil
			}
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		c.mu.RLock()
		previous := c.lastGood
		c.mu.RUnlock()

		snapshot := make(map[string]entity.CountryFeeConfig, len(items))
		for _, item := range items {
			currency := NormalizeCurrency(item.Currency)
			if err := validateConfig(item); err != nil {
				logger := c.logger.WithError(err).WithField("currency", currency)
				if kept, ok := previous[currency]; ok {
					logger.Warn("Invalid fee config row, keeping previous value")
					snapshot[currency] = kept
				} else {
					logger.Warn("Invalid fee config row skipped")
				}
				continue
			}
			snapshot[currency] = item
		}

		c.mu.Lock()
		c.lastGood = snapshot
		if c.generation == generation {
			c.snapshot = snapshot
			c.loadedAt = c.clock.Now()
		}
		c.mu.Unlock()

		c.logger.WithField("currencies", len(snapshot)).Debug("Fee config snapshot reloaded")
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]entity.CountryFeeConfig), nil
}

// validateConfig checks the row invariants fee math relies on: percent
// fractions within [0, 1] and no negative amounts.
func validateConfig(cfg entity.CountryFeeConfig) error {
	one := decimal.NewFromInt(1)
	if cfg.ServiceFeePercent.IsNegative() || cfg.ServiceFeePercent.GreaterThan(one) {
		return fmt.Errorf("service fee percent %s out of range", cfg.ServiceFeePercent)
	}
	amounts := map[string]decimal.Decimal{
		"service_fee_fixed_per_ticket": cfg.ServiceFeeFixedPerTicket,
		"fixed_fee_per_order":          cfg.FixedFeePerOrder,
		"payout_fee":                   cfg.PayoutFee,
		"min_payout_amount":            cfg.MinPayoutAmount,
	}
	if cfg.ServiceFeeCap.Valid {
		amounts["service_fee_cap"] = cfg.ServiceFeeCap.Decimal
	}
	for name, amount := range amounts {
		if amount.IsNegative() {
			return fmt.Errorf("%s %s is negative", name, amount)
		}
	}
	for code, rate := range cfg.ProviderRates {
		if rate.Percent.IsNegative() || rate.Percent.GreaterThan(one) {
			return fmt.Errorf("%s percent %s out of range", code, rate.Percent)
		}
		if rate.Fixed.IsNegative() {
			return fmt.Errorf("%s fixed fee %s is negative", code, rate.Fixed)
		}
	}
	return nil
}

func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
