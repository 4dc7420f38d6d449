// Package exporters renders canonical datasets into the byte-exact file
// formats the destination systems import.
package exporters

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/username/kontoflow/backend/src/models"
)

const (
	// DefaultHeader precedes all records.
	DefaultHeader = "Datum;Beskrivning;Belopp"
	// HeaderIngaendeSaldo is the header variant used by the "Stäm av konto"
	// reconciliation import. Which one applies is decided by the
	// integration target; it is data, not logic.
	HeaderIngaendeSaldo = "Datum;Ingående saldo-Beskrivning;Belopp"

	// SentinelLine trails the last record. Fortnox refuses to import it,
	// which stops any footer or summary rows from sneaking into the books.
	// Must stay verbatim.
	SentinelLine = "This will not be imported"

	maxDescriptionLen = 100
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FortnoxExporter writes records as a Fortnox import CSV: UTF-8 with BOM,
// CRLF line endings throughout, semicolon-separated fields, comma decimals.
type FortnoxExporter struct {
	// Header overrides DefaultHeader when non-empty.
	Header string
	// SkipInvalidRows drops rows whose date or amount failed to parse.
	// The default keeps them, emitting the raw source text so the operator
	// can spot and fix the source data.
	SkipInvalidRows bool
}

func NewFortnoxExporter() *FortnoxExporter { return &FortnoxExporter{} }

// Export renders the dataset to the exact output bytes, sentinel included.
func (e *FortnoxExporter) Export(records []models.CanonicalRecord) []byte {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	header := e.Header
	if header == "" {
		header = DefaultHeader
	}
	buf.WriteString(header)
	buf.WriteString("\r\n")

	for _, rec := range records {
		if e.SkipInvalidRows && !exportable(rec) {
			continue
		}
		buf.WriteString(formatDate(rec))
		buf.WriteByte(';')
		buf.WriteString(formatDescription(rec.Description))
		buf.WriteByte(';')
		buf.WriteString(formatAmount(rec))
		buf.WriteString("\r\n")
	}

	buf.WriteString(SentinelLine)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func exportable(rec models.CanonicalRecord) bool {
	return rec.Valid() && !math.IsNaN(rec.Amount) && !math.IsInf(rec.Amount, 0)
}

func formatDate(rec models.CanonicalRecord) string {
	if !rec.DateValid {
		return sanitizeField(rec.RawDate)
	}
	return rec.Date.Format("2006-01-02")
}

// formatDescription substitutes semicolons before truncating, so a cut can
// never reintroduce a field separator. Truncation counts characters, not
// bytes.
func formatDescription(desc string) string {
	desc = sanitizeField(desc)
	if runes := []rune(desc); len(runes) > maxDescriptionLen {
		desc = string(runes[:maxDescriptionLen])
	}
	return desc
}

func formatAmount(rec models.CanonicalRecord) string {
	if !rec.AmountValid || math.IsNaN(rec.Amount) || math.IsInf(rec.Amount, 0) {
		return sanitizeField(rec.RawAmount)
	}
	return strings.Replace(strconv.FormatFloat(rec.Amount, 'f', 2, 64), ".", ",", 1)
}

// sanitizeField keeps a stray semicolon in source text from corrupting the
// field count.
func sanitizeField(s string) string {
	return strings.ReplaceAll(s, ";", ",")
}
