package fees

import "errors"

var (
	ErrInvalidAmount         = errors.New("amount must not be negative")
	ErrUnknownProvider       = errors.New("unknown payment provider")
	ErrCurrencyNotConfigured = errors.New("currency fee config not found")
	ErrStoreUnavailable      = errors.New("fee config store unavailable")
)
