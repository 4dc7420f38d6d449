// backend/src/services/fx_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/username/kontoflow/backend/src/logger"
	"github.com/username/kontoflow/backend/src/models"
)

// ErrRateNotFound collapses every failure mode of the external rate lookup:
// unknown currency, empty observation window, network error, bad status,
// malformed body. The caller reacts by asking the user for a manual rate,
// never by crashing.
var ErrRateNotFound = errors.New("exchange rate not found")

// FXService resolves a currency code and a transaction reference date to
// the SEK rate of the previous calendar month's close.
type FXService interface {
	Resolve(ctx context.Context, currency string, referenceDate time.Time) (models.FxRate, error)
	Currencies() []string
}

// defaultSeries maps each supported currency to its Riksbank SWEA series id.
// Codes outside this table are refused without a network call.
var defaultSeries = map[string]string{
	"EUR": "SEKEURPMI",
	"USD": "SEKUSDPMI",
	"GBP": "SEKGBPPMI",
	"NOK": "SEKNOKPMI",
	"DKK": "SEKDKKPMI",
	"CHF": "SEKCHFPMI",
	"JPY": "SEKJPYPMI",
	"CAD": "SEKCADPMI",
	"AUD": "SEKAUDPMI",
	"NZD": "SEKNZDPMI",
	"PLN": "SEKPLNPMI",
	"CZK": "SEKCZKPMI",
	"HUF": "SEKHUFPMI",
	"TRY": "SEKTRYPMI",
	"CNY": "SEKCNYPMI",
	"HKD": "SEKHKDPMI",
	"SGD": "SEKSGDPMI",
	"THB": "SEKTHBPMI",
	"KRW": "SEKKRWPMI",
	"INR": "SEKINRPMI",
}

// lookbackDays sizes the observation window before the month end. Ten days
// bridges any weekend plus public holiday stretch with no observations.
const lookbackDays = 10

type riksbankFXService struct {
	baseURL    string
	httpClient *http.Client
	series     map[string]string
}

// NewRiksbankFXService creates the resolver against the SWEA API. A nil
// series table means the built-in one.
func NewRiksbankFXService(baseURL string, timeout time.Duration, series map[string]string) FXService {
	if series == nil {
		series = defaultSeries
	}
	return &riksbankFXService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		series:     series,
	}
}

func (s *riksbankFXService) Currencies() []string {
	codes := make([]string, 0, len(s.series))
	for code := range s.series {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Resolve queries the window [monthEnd-10d, monthEnd] in one round trip and
// keeps the latest observation dated on or before the month end. The API
// returns observations ascending by date, so the scan stops at the first
// one past the month end.
func (s *riksbankFXService) Resolve(ctx context.Context, currency string, referenceDate time.Time) (models.FxRate, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	seriesID, ok := s.series[code]
	if !ok {
		return models.FxRate{}, fmt.Errorf("%w: unsupported currency %q", ErrRateNotFound, currency)
	}

	monthEnd := PreviousMonthEnd(referenceDate)
	from := monthEnd.AddDate(0, 0, -lookbackDays)
	url := fmt.Sprintf("%s/Observations/%s/%s", s.baseURL, seriesID, from.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.FxRate{}, fmt.Errorf("%w: building request: %v", ErrRateNotFound, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.L.Warn("Riksbank request failed", "currency", code, "url", url, "error", err)
		return models.FxRate{}, fmt.Errorf("%w: request failed: %v", ErrRateNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.L.Warn("Riksbank returned non-OK status", "currency", code, "status", resp.StatusCode)
		return models.FxRate{}, fmt.Errorf("%w: status %d for %s", ErrRateNotFound, resp.StatusCode, code)
	}

	observations, err := decodeObservations(resp.Body)
	if err != nil {
		logger.L.Warn("Riksbank response malformed", "currency", code, "error", err)
		return models.FxRate{}, fmt.Errorf("%w: malformed response: %v", ErrRateNotFound, err)
	}

	var best *models.RiksbankObservation
	for i := range observations {
		obsDate, err := time.Parse("2006-01-02", observations[i].Date)
		if err != nil {
			continue
		}
		if obsDate.After(monthEnd) {
			break
		}
		best = &observations[i]
	}
	if best == nil {
		logger.L.Warn("No observation on or before month end", "currency", code, "monthEnd", monthEnd.Format("2006-01-02"))
		return models.FxRate{}, fmt.Errorf("%w: no observation for %s on or before %s", ErrRateNotFound, code, monthEnd.Format("2006-01-02"))
	}

	rate := float64(best.Value)
	if rate <= 0 {
		return models.FxRate{}, fmt.Errorf("%w: non-positive rate %v for %s", ErrRateNotFound, rate, code)
	}
	asOf, _ := time.Parse("2006-01-02", best.Date)

	logger.L.Info("Resolved exchange rate", "currency", code, "rate", rate, "asOf", best.Date)
	return models.FxRate{Currency: code, Rate: rate, AsOf: asOf}, nil
}

// decodeObservations accepts both response shapes the API produces: a JSON
// array of observations, or a single observation object.
func decodeObservations(r io.Reader) ([]models.RiksbankObservation, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var list []models.RiksbankObservation
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var single models.RiksbankObservation
	if err := json.Unmarshal(body, &single); err == nil && single.Date != "" {
		return []models.RiksbankObservation{single}, nil
	}
	return nil, fmt.Errorf("body is neither an observation array nor a single observation")
}

// PreviousMonthEnd returns the last day of the month before d. The month-end
// rate convention values transactions at the previous month's close.
func PreviousMonthEnd(d time.Time) time.Time {
	firstOfMonth := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 0, -1)
}
