// Package symbol handles ticker symbol normalization and validation.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSymbol is returned for tickers that cannot be a valid symbol.
var ErrInvalidSymbol = errors.New("symbol: invalid ticker symbol")

// symbolRegex matches 1-10 uppercase letters with optional dot-separated
// class suffixes, e.g. AAPL, BRK.B, GOOG.
var symbolRegex = regexp.MustCompile(`^[A-Z]{1,10}(\.[A-Z]{1,4})?$`)

// Normalize trims and uppercases a raw ticker and validates its shape.
// Validation here is purely syntactic; whether the symbol exists is the
// quote provider's call.
func Normalize(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSymbol)
	}
	if !symbolRegex.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	return s, nil
}
