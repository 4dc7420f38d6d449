package processors

import (
	"github.com/username/kontoflow/backend/src/models"
)

type RangeFilter struct{}

func NewRangeFilter() *RangeFilter { return &RangeFilter{} }

// Filter keeps the records whose date falls inside the inclusive interval,
// preserving order. Records with an invalid date cannot be compared to a
// bound and are dropped from a bounded filter on purpose.
func (f *RangeFilter) Filter(records []models.CanonicalRecord, dr models.DateRange) []models.CanonicalRecord {
	filtered := make([]models.CanonicalRecord, 0, len(records))
	for _, rec := range records {
		if rec.DateValid && dr.Contains(rec.Date) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
