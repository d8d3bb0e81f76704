package harmonize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// nullSentinels are raw string values upstream feeds use for "not reported".
var nullSentinels = map[string]struct{}{
	"":     {},
	"N/A":  {},
	"NA":   {},
	"NULL": {},
	"NONE": {},
	"--":   {},
}

// numberPattern extracts the leading numeric token from strings that carry
// unit suffixes, e.g. "57.0 °F" or "29.47 in".
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// IsNull reports whether a raw field value means "not reported". Nil values
// and the upstream null sentinels qualify; the measurement key is simply
// omitted for them, never recorded with a placeholder value.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	s := strings.ToUpper(strings.TrimSpace(cast.ToString(v)))
	_, ok := nullSentinels[s]
	return ok
}

// ToFloat coerces a raw field value to a float64. JSON numbers and numeric
// strings pass through cast; strings with unit suffixes fall back to the
// first numeric token. Anything else is an error for the caller to turn
// into an invalid-field anomaly.
func ToFloat(v any) (float64, error) {
	if f, err := cast.ToFloat64E(v); err == nil {
		return f, nil
	}
	s := strings.TrimSpace(cast.ToString(v))
	if m := numberPattern.FindString(s); m != "" {
		return cast.ToFloat64E(m)
	}
	return 0, fmt.Errorf("value %v is not numeric", v)
}
