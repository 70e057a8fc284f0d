/*
This file contains the amount codec: exact conversion between human decimal
strings and integer base units. All arithmetic is arbitrary precision; a
float64 anywhere in this path would corrupt on-chain amounts.
*/

package utils

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrInvalidPrecision = errors.New("decimals count is invalid")
	ErrNotAnInteger     = errors.New("base-unit amount is not an integer string")
)

// ToBaseUnits converts a human decimal string (e.g. "1.5") into base units at
// the given precision, returned as a base-10 integer string. Fractional digits
// beyond the precision are truncated, never rounded. Non-numeric characters
// are stripped; empty or whitespace-only input yields "0".
func ToBaseUnits(amount string, decimals int) (string, error) {
	if decimals < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrecision, decimals)
	}

	s := strings.TrimSpace(amount)
	if s == "" {
		return "0", nil
	}

	negative := strings.HasPrefix(s, "-")
	if negative || strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	wholeRaw, fracRaw, _ := strings.Cut(s, ".")
	whole := keepDigits(wholeRaw)
	frac := keepDigits(fracRaw)
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))
	if whole == "" {
		whole = "0"
	}

	wholeInt, ok := sdkmath.NewIntFromString(whole)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotAnInteger, whole)
	}
	result := wholeInt.Mul(pow10(decimals))
	if frac != "" {
		fracInt, ok := sdkmath.NewIntFromString(frac)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNotAnInteger, frac)
		}
		result = result.Add(fracInt)
	}
	if negative {
		result = result.Neg()
	}
	return result.String(), nil
}

// FromBaseUnits renders an integer base-unit string back into a human decimal
// string at the given precision, with trailing fractional zeros trimmed.
// Round-tripping through ToBaseUnits is lossless.
func FromBaseUnits(baseUnits string, decimals int) (string, error) {
	if decimals < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrecision, decimals)
	}

	v, ok := sdkmath.NewIntFromString(strings.TrimSpace(baseUnits))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotAnInteger, baseUnits)
	}

	negative := v.IsNegative()
	digits := v.Abs().String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if negative && out != "0" {
		out = "-" + out
	}
	return out, nil
}

// ParseBaseUnits parses an integer base-unit string into an sdkmath.Int.
func ParseBaseUnits(baseUnits string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(strings.TrimSpace(baseUnits))
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrNotAnInteger, baseUnits)
	}
	return v, nil
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func pow10(decimals int) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(1, decimals)
}
