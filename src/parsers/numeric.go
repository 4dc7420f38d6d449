// backend/src/parsers/numeric.go
package parsers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnparsable marks a cell whose content could not be normalized. It is
// row-scoped: callers tag the row invalid and keep going.
var ErrUnparsable = errors.New("unparsable value")

// numericReplacer normalizes the notations seen in bank exports: Unicode
// minus and en-dash used as negative signs, space and non-breaking space as
// thousands separators, comma as the decimal separator.
var numericReplacer = strings.NewReplacer(
	"−", "-", // Unicode minus sign
	"–", "-", // en-dash
	" ", "", // non-breaking space
	" ", "",
	",", ".",
)

// ParseNumeric parses a locale-variant numeric string into a float64.
// Anything left over after normalization that does not read as a plain
// decimal yields ErrUnparsable, never a panic.
func ParseNumeric(raw string) (float64, error) {
	cleaned := numericReplacer.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty cell", ErrUnparsable)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsable, raw)
	}
	// ParseFloat accepts "Inf" and "NaN" spellings; those are not amounts.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrUnparsable, raw)
	}
	return v, nil
}
