// backend/src/services/conversion_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/username/kontoflow/backend/src/exporters"
	"github.com/username/kontoflow/backend/src/logger"
	"github.com/username/kontoflow/backend/src/models"
	"github.com/username/kontoflow/backend/src/processors"
)

// HomeCurrency is the destination system's currency; no FX step applies.
const HomeCurrency = "SEK"

// ErrNoRateAvailable means a foreign-currency conversion had neither a
// resolvable nor a manual rate. The conversion is refused; treating the
// rate as 1 would book wrong amounts silently.
var ErrNoRateAvailable = errors.New("no exchange rate available")

// ConversionRequest is the boundary payload handed over by the UI layer:
// an already-decoded table, a validated-here column mapping, and optional
// currency and range settings.
type ConversionRequest struct {
	Table         models.RawTable
	Mapping       models.ColumnMapping
	Currency      string // empty or SEK means no FX step
	ReferenceDate time.Time
	ManualRate    *float64 // overrides the resolver when set
	DateRange     *models.DateRange
}

// ConversionResult carries the canonical dataset plus the exact output bytes.
type ConversionResult struct {
	ConversionID string                   `json:"conversionId"`
	Records      []models.CanonicalRecord `json:"records"`
	InvalidRows  int                      `json:"invalidRows"`
	Rate         *models.FxRate           `json:"rate,omitempty"`
	Output       []byte                   `json:"output"`
	Filename     string                   `json:"filename"`
}

// ConversionService runs the whole pipeline: rate resolution, transform,
// range filter, export.
type ConversionService interface {
	Convert(ctx context.Context, req ConversionRequest) (*ConversionResult, error)
}

type conversionServiceImpl struct {
	fxService   FXService
	transformer *processors.RecordTransformer
	rangeFilter *processors.RangeFilter
	exporter    *exporters.FortnoxExporter
}

func NewConversionService(fxService FXService, exporter *exporters.FortnoxExporter) ConversionService {
	return &conversionServiceImpl{
		fxService:   fxService,
		transformer: processors.NewRecordTransformer(),
		rangeFilter: processors.NewRangeFilter(),
		exporter:    exporter,
	}
}

func (s *conversionServiceImpl) Convert(ctx context.Context, req ConversionRequest) (*ConversionResult, error) {
	conversionID := uuid.New().String()
	startTime := time.Now()
	logger.L.Info("Convert START", "conversionID", conversionID, "rows", len(req.Table.Rows), "currency", req.Currency)

	fxRate, err := s.resolveRate(ctx, req)
	if err != nil {
		return nil, err
	}

	records, err := s.transformer.Transform(&req.Table, req.Mapping, fxRate)
	if err != nil {
		return nil, err
	}

	if req.DateRange != nil {
		records = s.rangeFilter.Filter(records, *req.DateRange)
	}

	invalidRows := 0
	for _, rec := range records {
		if !rec.Valid() {
			invalidRows++
		}
	}

	result := &ConversionResult{
		ConversionID: conversionID,
		Records:      records,
		InvalidRows:  invalidRows,
		Rate:         fxRate,
		Output:       s.exporter.Export(records),
		Filename:     fmt.Sprintf("Fortnox_import_%s.csv", time.Now().Format("2006-01-02")),
	}
	logger.L.Info("Convert END", "conversionID", conversionID, "records", len(records), "invalidRows", invalidRows, "duration", time.Since(startTime))
	return result, nil
}

// resolveRate returns nil for home-currency conversions. A manual rate wins
// over the resolver; a foreign currency with neither is refused with enough
// detail (currency, reference date) to remediate.
func (s *conversionServiceImpl) resolveRate(ctx context.Context, req ConversionRequest) (*models.FxRate, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Currency))
	if code == "" || code == HomeCurrency {
		return nil, nil
	}

	if req.ManualRate != nil {
		if *req.ManualRate <= 0 {
			return nil, fmt.Errorf("%w: manual rate %v for %s is not positive", ErrNoRateAvailable, *req.ManualRate, code)
		}
		return &models.FxRate{Currency: code, Rate: *req.ManualRate, AsOf: req.ReferenceDate}, nil
	}

	if req.ReferenceDate.IsZero() {
		return nil, fmt.Errorf("%w: reference date required to resolve a %s rate", ErrNoRateAvailable, code)
	}

	resolved, err := s.fxService.Resolve(ctx, code, req.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (reference date %s): %v; supply a manual rate", ErrNoRateAvailable, code, req.ReferenceDate.Format("2006-01-02"), err)
	}
	return &resolved, nil
}
