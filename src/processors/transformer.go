// backend/src/processors/transformer.go
package processors

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/username/kontoflow/backend/src/logger"
	"github.com/username/kontoflow/backend/src/models"
	"github.com/username/kontoflow/backend/src/parsers"
)

// ErrMappingIncomplete means a required Fortnox field has no usable source
// column. The conversion is refused before any row is touched.
var ErrMappingIncomplete = errors.New("column mapping incomplete")

type RecordTransformer struct{}

func NewRecordTransformer() *RecordTransformer { return &RecordTransformer{} }

// ValidateMapping checks that every required field resolves to exactly one
// existing source column, and that Fee, when mapped, does too. The error
// names every offending field so the UI can point at it.
func ValidateMapping(table *models.RawTable, mapping models.ColumnMapping) error {
	var bad []string
	for _, field := range models.RequiredFields {
		col, ok := mapping[field]
		if !ok || col == "" {
			bad = append(bad, field+" (unmapped)")
			continue
		}
		if !table.HasColumn(col) {
			bad = append(bad, fmt.Sprintf("%s (source column %q missing)", field, col))
		}
	}
	if feeCol, ok := mapping[models.FieldFee]; ok && feeCol != "" && !table.HasColumn(feeCol) {
		bad = append(bad, fmt.Sprintf("%s (source column %q missing)", models.FieldFee, feeCol))
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrMappingIncomplete, strings.Join(bad, ", "))
	}
	return nil
}

// Transform produces one canonical record per source row, in source order.
// Per-row parse failures tag the record invalid and keep its raw text; they
// never abort the batch. Fee, when mapped, is subtracted as an absolute
// value before the FX multiplication, matching the accounting convention
// that fees always reduce the amount.
func (p *RecordTransformer) Transform(table *models.RawTable, mapping models.ColumnMapping, fxRate *models.FxRate) ([]models.CanonicalRecord, error) {
	if err := ValidateMapping(table, mapping); err != nil {
		return nil, err
	}

	feeCol := mapping[models.FieldFee]
	records := make([]models.CanonicalRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		rec := models.CanonicalRecord{
			Description: strings.TrimSpace(row[mapping[models.FieldDescription]]),
		}

		rawDate := row[mapping[models.FieldDate]]
		if d, err := parsers.ParseDate(rawDate); err == nil {
			rec.Date = d
			rec.DateValid = true
		} else {
			rec.RawDate = strings.TrimSpace(rawDate)
			logger.L.Warn("Row has unparsable date", "row", i, "value", rawDate)
		}

		rawAmount := row[mapping[models.FieldAmount]]
		if a, err := parsers.ParseNumeric(rawAmount); err == nil {
			rec.Amount = a
			rec.AmountValid = true
		} else {
			rec.RawAmount = strings.TrimSpace(rawAmount)
			logger.L.Warn("Row has unparsable amount", "row", i, "value", rawAmount)
		}

		if rec.AmountValid {
			if feeCol != "" {
				// A missing or unparsable fee cell counts as no fee.
				if fee, err := parsers.ParseNumeric(row[feeCol]); err == nil {
					rec.Amount -= math.Abs(fee)
				}
			}
			if fxRate != nil && fxRate.Rate != 1 {
				rec.Amount *= fxRate.Rate
			}
			// An overflow here demotes the row to invalid, keeping the
			// source text, same as a cell that never parsed.
			if math.IsNaN(rec.Amount) || math.IsInf(rec.Amount, 0) {
				rec.Amount = 0
				rec.AmountValid = false
				rec.RawAmount = strings.TrimSpace(rawAmount)
				logger.L.Warn("Row amount is not finite after conversion", "row", i, "value", rawAmount)
			}
		}

		records = append(records, rec)
	}
	return records, nil
}
