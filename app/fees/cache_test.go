package fees

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestConfigCacheServesSnapshotWithinTTL(t *testing.T) {
	store := &fakeConfigStore{configs: []entity.CountryFeeConfig{usdConfig(), ngnConfig()}}
	clk := clock.NewManual(testNow)
	cache := NewConfigCache(store, clk, 5*time.Minute)

	cfg, err := cache.Get(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, "US", cfg.CountryCode)

	clk.Advance(4 * time.Minute)
	_, err = cache.Get(context.Background(), "NGN")
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.calls.Load(), "all currencies are loaded in a single round trip")
}

func TestConfigCacheReloadsAfterTTL(t *testing.T) {
	store := &fakeConfigStore{configs: []entity.CountryFeeConfig{usdConfig()}}
	clk := clock.NewManual(testNow)
	cache := NewConfigCache(store, clk, 5*time.Minute)

	_, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)

	updated := usdConfig()
	updated.ServiceFeePercent = dec("0.07")
	store.set([]entity.CountryFeeConfig{updated}, nil)

	clk.Advance(5 * time.Minute)
	cfg, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, cfg.ServiceFeePercent.Equal(dec("0.07")))
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestConfigCacheInvalidateForcesReload(t *testing.T) {
	store := &fakeConfigStore{configs: []entity.CountryFeeConfig{usdConfig()}}
	cache := NewConfigCache(store, clock.NewManual(testNow), time.Hour)

	_, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)

	updated := usdConfig()
	updated.FixedFeePerOrder = dec("1.50")
	store.set([]entity.CountryFeeConfig{updated}, nil)
	cache.Invalidate()

	cfg, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, cfg.FixedFeePerOrder.Equal(dec("1.50")))
}

func TestConfigCacheUnknownCurrency(t *testing.T) {
	store := &fakeConfigStore{configs: []entity.CountryFeeConfig{usdConfig()}}
	cache := NewConfigCache(store, clock.NewManual(testNow), time.Minute)

	_, err := cache.Get(context.Background(), "EUR")
	assert.ErrorIs(t, err, ErrCurrencyNotConfigured)
}

func TestConfigCacheFallsBackToLastGoodSnapshot(t *testing.T) {
	store := &fakeConfigStore{configs: []entity.CountryFeeConfig{usdConfig()}}
	clk := clock.NewManual(testNow)
	cache := NewConfigCache(store, clk, time.Minute)

	_, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)

	store.set(nil, errors.New("connection refused"))
	clk.Advance(2 * time.Minute)

	cfg, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Currency)

	cache.Invalidate()
	_, err = cache.Get(context.Background(), "USD")
	require.NoError(t, err, "invalidation keeps the last good snapshot as fallback")
}

func TestConfigCacheRejectsInvalidRows(t *testing.T) {
	broken := usdConfig()
	broken.ServiceFeePercent = dec("5")
	negative := ngnConfig()
	negative.ProviderRates = map[entity.PaymentProvider]entity.ProviderRate{
		entity.ProviderPaystack: {Percent: dec("0.015"), Fixed: dec("-100")},
	}
	store := &fakeConfigStore{configs: []entity.CountryFeeConfig{broken, negative}}
	clk := clock.NewManual(testNow)
	cache := NewConfigCache(store, clk, time.Minute)

	_, err := cache.Get(context.Background(), "USD")
	assert.ErrorIs(t, err, ErrCurrencyNotConfigured, "a row with no previous value is skipped")
	_, err = cache.Get(context.Background(), "NGN")
	assert.ErrorIs(t, err, ErrCurrencyNotConfigured)

	store.set([]entity.CountryFeeConfig{usdConfig()}, nil)
	cache.Invalidate()
	cfg, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, cfg.ServiceFeePercent.Equal(dec("0.05")))

	store.set([]entity.CountryFeeConfig{broken}, nil)
	clk.Advance(2 * time.Minute)
	cfg, err = cache.Get(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, cfg.ServiceFeePercent.Equal(dec("0.05")), "an invalid row keeps the previous value")
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, validateConfig(usdConfig()))

	capped := usdConfig()
	capped.ServiceFeeCap = decimal.NewNullDecimal(dec("-1"))
	assert.Error(t, validateConfig(capped))

	rate := usdConfig()
	rate.ProviderRates = map[entity.PaymentProvider]entity.ProviderRate{entity.ProviderStripe: {Percent: dec("1.2")}}
	assert.Error(t, validateConfig(rate))

	payout := usdConfig()
	payout.MinPayoutAmount = dec("-10")
	assert.Error(t, validateConfig(payout))
}

func TestConfigCachePropagatesFailureWithoutSnapshot(t *testing.T) {
	store := &fakeConfigStore{err: errors.New("connection refused")}
	cache := NewConfigCache(store, clock.NewManual(testNow), time.Minute)

	_, err := cache.Get(context.Background(), "USD")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestConfigCacheSingleFlightReload(t *testing.T) {
	store := &fakeConfigStore{
		configs: []entity.CountryFeeConfig{usdConfig()},
		gate:    make(chan struct{}),
	}
	cache := NewConfigCache(store, clock.NewManual(testNow), time.Minute)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background(), "USD")
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return store.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestConfigCacheInvalidateDuringReloadDiscardsResult(t *testing.T) {
	store := &fakeConfigStore{
		configs: []entity.CountryFeeConfig{usdConfig()},
		gate:    make(chan struct{}),
	}
	cache := NewConfigCache(store, clock.NewManual(testNow), time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.Get(context.Background(), "USD")
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)

	cache.Invalidate()
	close(store.gate)
	<-done

	updated := usdConfig()
	updated.ServiceFeePercent = dec("0.10")
	store.set([]entity.CountryFeeConfig{updated}, nil)

	cfg, err := cache.Get(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, cfg.ServiceFeePercent.Equal(dec("0.10")))
	assert.Equal(t, int32(2), store.calls.Load())
}
