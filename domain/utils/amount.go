package utils

import (
	"fmt"
	"strings"

	"prizeledger/domain"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of fractional digits stored for every monetary column
	AmountScale int32 = 8
)

// ParseAmount parses a user-supplied amount and rejects anything that is not strictly positive
// or that carries more precision than the ledger stores.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidAmount, raw)
	}

	return ValidateAmount(amount)
}

// ValidateAmount checks that amount is positive and fits the stored scale
func ValidateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places", domain.ErrInvalidAmount, AmountScale)
	}
	return amount, nil
}

// Convert applies an exchange rate, truncating to the stored scale so the target never
// receives more than the source paid for.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Truncate(AmountScale)
}
