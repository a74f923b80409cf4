package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

func TestComputeFeesUncapped(t *testing.T) {
	params := parametersFromCountry(usdConfig())

	got, err := ComputeFees(dec("100"), 2, params, entity.ProviderStripe)
	require.NoError(t, err)

	assert.Equal(t, "5", got.ServiceFee.String())
	assert.Equal(t, "3.35", got.ProcessingFee.String())
	assert.Equal(t, "8.35", got.TotalFee.String())
	assert.Equal(t, "108.35", got.BuyerTotal.String())
}

func TestComputeFeesCapClampsServiceFeeOnly(t *testing.T) {
	cfg := usdConfig()
	cfg.ServiceFeeCap = decimal.NewNullDecimal(dec("3.00"))
	params := parametersFromCountry(cfg)

	got, err := ComputeFees(dec("100"), 2, params, entity.ProviderStripe)
	require.NoError(t, err)

	assert.True(t, got.ServiceFee.Equal(dec("3.00")))
	assert.True(t, got.ProcessingFee.Equal(dec("3.29")), "processing fee: %s", got.ProcessingFee)
	assert.True(t, got.TotalFee.Equal(dec("6.29")))
}

func TestComputeFeesCapAboveServiceFeeHasNoEffect(t *testing.T) {
	cfg := usdConfig()
	cfg.ServiceFeeCap = decimal.NewNullDecimal(dec("50"))

	capped, err := ComputeFees(dec("100"), 2, parametersFromCountry(cfg), entity.ProviderStripe)
	require.NoError(t, err)
	uncapped, err := ComputeFees(dec("100"), 2, parametersFromCountry(usdConfig()), entity.ProviderStripe)
	require.NoError(t, err)

	assert.Equal(t, uncapped, capped)
}

func TestComputeFeesUsesOnlySelectedProvider(t *testing.T) {
	params := parametersFromCountry(usdConfig())

	got, err := ComputeFees(dec("1000"), 1, params, entity.ProviderPaystack)
	require.NoError(t, err)

	// 1050 * 0.015 + 100
	assert.True(t, got.ProcessingFee.Equal(dec("115.75")), "processing fee: %s", got.ProcessingFee)
}

func TestComputeFeesFixedPerTicketAndPerOrder(t *testing.T) {
	params := parametersFromCountry(ngnConfig())

	got, err := ComputeFees(dec("10000"), 3, params, entity.ProviderPaystack)
	require.NoError(t, err)

	// 10000*0.05 + 3*200 = 1100; (11100*0.015)+100+100 = 366.5
	assert.True(t, got.ServiceFee.Equal(dec("1100")))
	assert.True(t, got.ProcessingFee.Equal(dec("366.5")))
	assert.True(t, got.TotalFee.Equal(dec("1466.5")))
}

func TestComputeFeesZeroValueOrderKeepsFixedProcessing(t *testing.T) {
	params := parametersFromCountry(ngnConfig())

	got, err := ComputeFees(decimal.Zero, 2, params, entity.ProviderPaystack)
	require.NoError(t, err)
	assert.True(t, got.ServiceFee.IsZero())
	assert.True(t, got.ProcessingFee.Equal(dec("200")))

	got, err = ComputeFees(dec("500"), 0, params, entity.ProviderPaystack)
	require.NoError(t, err)
	assert.True(t, got.ServiceFee.IsZero())
	assert.True(t, got.ProcessingFee.Equal(dec("207.5")))
}

func TestComputeFeesRejectsNegativeInputs(t *testing.T) {
	params := parametersFromCountry(usdConfig())

	_, err := ComputeFees(dec("-1"), 1, params, entity.ProviderStripe)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ComputeFees(dec("10"), -1, params, entity.ProviderStripe)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestComputeFeesRejectsUnknownProvider(t *testing.T) {
	params := parametersFromCountry(ngnConfig())

	_, err := ComputeFees(dec("10"), 1, params, entity.ProviderStripe)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = ComputeFees(dec("10"), 1, params, entity.PaymentProvider("paypal"))
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestComputeFeesRoundsHalfAwayFromZero(t *testing.T) {
	cfg := usdConfig()
	cfg.ServiceFeePercent = dec("0.025")
	cfg.ProviderRates[entity.ProviderStripe] = entity.ProviderRate{Percent: decimal.Zero, Fixed: decimal.Zero}

	// 0.2 * 0.025 = 0.005 -> 0.01
	got, err := ComputeFees(dec("0.2"), 1, parametersFromCountry(cfg), entity.ProviderStripe)
	require.NoError(t, err)
	assert.True(t, got.ServiceFee.Equal(dec("0.01")), "service fee: %s", got.ServiceFee)

	// 0.1 * 0.025 = 0.0025 -> 0.00
	got, err = ComputeFees(dec("0.1"), 1, parametersFromCountry(cfg), entity.ProviderStripe)
	require.NoError(t, err)
	assert.True(t, got.ServiceFee.IsZero())
}

func TestComputeFeesComponentsSumToTotal(t *testing.T) {
	subtotals := []string{"0", "0.01", "1.005", "19.99", "33.333", "100", "1234.565", "99999.99"}
	percents := []string{"0", "0.015", "0.029", "0.05", "0.125"}
	fixed := []string{"0", "0.30", "0.005", "100"}

	for _, s := range subtotals {
		for _, pct := range percents {
			for _, fx := range fixed {
				cfg := usdConfig()
				cfg.ServiceFeePercent = dec(pct)
				cfg.ServiceFeeFixedPerTicket = dec(fx)
				cfg.ProviderRates[entity.ProviderStripe] = entity.ProviderRate{Percent: dec(pct), Fixed: dec(fx)}
				params := parametersFromCountry(cfg)

				first, err := ComputeFees(dec(s), 3, params, entity.ProviderStripe)
				require.NoError(t, err)
				second, err := ComputeFees(dec(s), 3, params, entity.ProviderStripe)
				require.NoError(t, err)

				assert.Equal(t, first, second, "non-deterministic for subtotal=%s pct=%s fixed=%s", s, pct, fx)
				assert.True(t, first.ServiceFee.Add(first.ProcessingFee).Equal(first.TotalFee))
				assert.LessOrEqual(t, -first.TotalFee.Exponent(), int32(2))
			}
		}
	}
}
