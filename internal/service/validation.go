package service

import (
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"

	"github.com/shopspring/decimal"
)

const MaxUsernameLength = 64

// ValidateRequiredUsername rejects a missing or blank username.
func ValidateRequiredUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return errors.ErrInvalidUsername
	}
	return nil
}

// ValidateUsername checks a username before it is registered. Names must be
// usable as a single URL path segment.
func ValidateUsername(username string) error {
	if err := ValidateRequiredUsername(username); err != nil {
		return err
	}
	if !utf8.ValidString(username) {
		return errors.NewAppError(errors.InvalidInput, "username must be valid UTF-8")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return errors.NewAppErrorf(errors.InvalidInput, "username must be at most %d characters", MaxUsernameLength)
	}
	if username != strings.TrimSpace(username) {
		return errors.NewAppError(errors.InvalidInput, "username must not start or end with whitespace")
	}
	for _, r := range username {
		if unicode.IsControl(r) || r == '/' {
			return errors.NewAppError(errors.InvalidInput, "username contains an invalid character")
		}
	}
	return nil
}

// maxAmountBits bounds the coefficient of an incoming amount. A valid amount
// needs at most 21 significant digits; the slack allows trailing zeros.
const maxAmountBits = 1024

// maxAmountExponent is the largest exponent a normalized amount can carry
// while staying within domain.MaxAmount.
const maxAmountExponent = 12

var ten = big.NewInt(10)

// ValidateAmount accepts strictly positive amounts with at most
// domain.MaxAmountScale fractional digits, up to domain.MaxAmount.
// Coefficient size and exponent are bounded before any comparison or rescale.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return errors.ErrInvalidAmount
	}

	coef := amount.Coefficient()
	if coef.BitLen() > maxAmountBits {
		return errors.NewAppError(errors.InvalidInput, "amount has too many digits")
	}

	exp := int64(amount.Exponent())
	var q, r big.Int
	for {
		q.QuoRem(coef, ten, &r)
		if r.Sign() != 0 {
			break
		}
		coef.Set(&q)
		exp++
	}

	if exp < -domain.MaxAmountScale {
		return errors.NewAppErrorf(errors.InvalidInput, "amount must have at most %d decimal places", domain.MaxAmountScale)
	}
	if exp > maxAmountExponent || amount.GreaterThan(domain.MaxAmount) {
		return errors.NewAppErrorf(errors.InvalidInput, "amount must not exceed %s", domain.MaxAmount.String())
	}
	return nil
}
