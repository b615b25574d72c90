package domain

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/currency"
)

// CurrencyPolicy is the allow-list of contract currencies.
type CurrencyPolicy struct {
	Allowed []string
	Default string
}

// DefaultCurrencyPolicy allows VND, USD, EUR and SGD, defaulting to VND.
func DefaultCurrencyPolicy() CurrencyPolicy {
	return CurrencyPolicy{
		Allowed: []string{"VND", "USD", "EUR", "SGD"},
		Default: "VND",
	}
}

// Validate checks that every configured code is a real ISO 4217 code and
// that the default is allowed.
func (p CurrencyPolicy) Validate() error {
	if len(p.Allowed) == 0 {
		return fmt.Errorf("currency allow-list is empty")
	}
	for _, code := range p.Allowed {
		if _, err := currency.ParseISO(code); err != nil {
			return fmt.Errorf("currency %q: %w", code, err)
		}
	}
	if !slices.Contains(p.Allowed, p.Default) {
		return fmt.Errorf("default currency %q is not in the allow-list", p.Default)
	}
	return nil
}

// Normalize upper-cases code, substitutes the default for an empty code and
// enforces the allow-list.
func (p CurrencyPolicy) Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = p.Default
	}
	if !slices.Contains(p.Allowed, code) {
		return "", Validationf("currency %s is not supported, allowed: %s",
			code, strings.Join(p.Allowed, ", ")).With("currency", code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", Validationf("currency %s is not an ISO 4217 code", code).With("currency", code)
	}
	return unit.String(), nil
}
