// backend/src/parsers/date.go
package parsers

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first layouts come before anything
// month-first so an ambiguous "03/04/2024" reads as 3 April, which is what
// European bank exports mean by it. Mixed layouts within one file are fine;
// every cell is matched independently. The trailing month-first layouts
// only catch dates like "12/31/2024" that no day-first reading can match.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
	"2006/01/02",
	"2006.01.02",
	"02/01/06",
	"2/1/06",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses a date string whose layout is not known in advance.
// Unparsable input yields ErrUnparsable; the row stays in the batch.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty cell", ErrUnparsable)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a recognized date", ErrUnparsable, raw)
}
