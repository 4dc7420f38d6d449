package models

import (
	"time"
)

// Fortnox logical field names. A column mapping assigns one source column to
// each of these; Fee is optional.
const (
	FieldDate        = "Datum"
	FieldDescription = "Beskrivning"
	FieldAmount      = "Belopp"
	FieldFee         = "Fee"
)

// RequiredFields are the fields a mapping must cover before a conversion runs.
var RequiredFields = []string{FieldDate, FieldDescription, FieldAmount}

// ColumnMapping associates a Fortnox field with the source column it is read
// from. Built by the UI layer, read-only here.
type ColumnMapping map[string]string

// RawRow is one statement row, keyed by source column name. Cells may be
// empty or missing entirely.
type RawRow map[string]string

// RawTable is a statement that has already been decoded upstream (delimiter
// and encoding detection are not this backend's job). Row order is
// significant and preserved through the whole pipeline.
type RawTable struct {
	Columns []string `json:"columns"`
	Rows    []RawRow `json:"rows"`
}

// HasColumn reports whether the table declares the named source column.
func (t *RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// CanonicalRecord is the normalized form of one statement row, ready for
// export. When a date or amount could not be parsed the Valid flag is false
// and the Raw* field keeps the source text so the operator can spot and fix
// it in the output.
type CanonicalRecord struct {
	Date        time.Time `json:"date"`
	DateValid   bool      `json:"dateValid"`
	RawDate     string    `json:"rawDate,omitempty"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	AmountValid bool      `json:"amountValid"`
	RawAmount   string    `json:"rawAmount,omitempty"`
}

// Valid reports whether both parsed fields are usable.
func (r CanonicalRecord) Valid() bool {
	return r.DateValid && r.AmountValid
}

// FxRate is a resolved exchange rate (SEK per unit of Currency) together
// with the observation date it was taken from.
type FxRate struct {
	Currency string    `json:"currency"`
	Rate     float64   `json:"rate"`
	AsOf     time.Time `json:"asOf"`
}

// DateRange is an inclusive [From, To] interval used by the range filter.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether d falls inside the interval, bounds included.
func (dr DateRange) Contains(d time.Time) bool {
	return !d.Before(dr.From) && !d.After(dr.To)
}
