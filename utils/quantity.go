package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseQuantity converts a user-formatted quantity string into an exact
// decimal. Accepts common formatted inputs like:
//   - "1,250.50"
//   - "100 kg"
//   - "Kg 60"
//
// Keep digits, '.', and a leading '-' only.
func ParseQuantity(i interface{}) (decimal.Decimal, error) {
	switch v := i.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s != "" {
			s = strings.ReplaceAll(s, ",", "")
			s = strings.ReplaceAll(s, "KG", "")
			s = strings.ReplaceAll(s, "Kg", "")
			s = strings.ReplaceAll(s, "kg", "")
			s = strings.TrimSpace(s)
		}
		neg := false
		if strings.HasPrefix(s, "-") {
			neg = true
			s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
		}
		// Strip everything except digits and '.'.
		var b strings.Builder
		b.Grow(len(s) + 1)
		for _, r := range s {
			if (r >= '0' && r <= '9') || r == '.' {
				b.WriteRune(r)
			}
		}
		clean := b.String()
		if clean == "" {
			return decimal.NewFromInt(0), NewValidationError("invalid quantity %q", v)
		}
		if neg {
			clean = "-" + clean
		}

		val, err := decimal.NewFromString(clean)
		if err != nil {
			return decimal.NewFromInt(0), NewValidationError("invalid quantity %q", v)
		}
		return val, nil
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.NewFromInt(0), NewValidationError("invalid quantity")
	}
}

// RequirePositiveQuantity rejects zero and negative quantities.
func RequirePositiveQuantity(name string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return NewValidationError("%s must be greater than zero, got %s", name, qty.String())
	}
	return nil
}

// RequireNonNegativeQuantity rejects negative quantities (waste may be zero).
func RequireNonNegativeQuantity(name string, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return NewValidationError("%s must not be negative, got %s", name, qty.String())
	}
	return nil
}
