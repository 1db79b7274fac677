package sounding

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MissingValue marks a field that the sensor or the host did not provide.
	MissingValue float64 = -32768

	// Placeholder is the text written in place of MissingValue.
	Placeholder = "////////"
)

// placeholderTokens are the on-disk spellings of a missing value.
var placeholderTokens = map[string]struct{}{
	"":          {},
	Placeholder: {},
	"-32768":    {},
	"-32768.0":  {},
	"-32768.00": {},
	"nan":       {},
	"NaN":       {},
}

// IsMissing reports whether v is the missing-value sentinel. The sentinel is
// exactly representable so the comparison is exact.
func IsMissing(v float64) bool {
	return v == MissingValue
}

// IsPlaceholder reports whether token is one of the accepted spellings of a
// missing value.
func IsPlaceholder(token string) bool {
	_, ok := placeholderTokens[strings.TrimSpace(token)]
	return ok
}

// ParseValue converts a text field into a number, mapping placeholder tokens
// to MissingValue.
func ParseValue(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if IsPlaceholder(token) {
		return MissingValue, nil
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return MissingValue, fmt.Errorf("parsing value %q: %w", token, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || IsMissing(v) {
		return MissingValue, nil
	}
	return v, nil
}

// ValueOrMissing parses token and falls back to MissingValue when it is not a
// number.
func ValueOrMissing(token string) float64 {
	v, err := ParseValue(token)
	if err != nil {
		return MissingValue
	}
	return v
}

// FormatValue renders v with the given number of decimals, or the
// placeholder when v is missing.
func FormatValue(v float64, decimals int) string {
	if IsMissing(v) {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatShortest renders v in its shortest exact form, or the placeholder
// when v is missing.
func FormatShortest(v float64) string {
	if IsMissing(v) {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Value returns a pointer to v, or nil when v is missing.
func Value(v float64) *float64 {
	if IsMissing(v) {
		return nil
	}
	return &v
}

// FromPointer is the inverse of Value.
func FromPointer(v *float64) float64 {
	if v == nil {
		return MissingValue
	}
	return *v
}
