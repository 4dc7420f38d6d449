package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/username/kontoflow/backend/src/config"
	"github.com/username/kontoflow/backend/src/exporters"
	"github.com/username/kontoflow/backend/src/logger"
	"github.com/username/kontoflow/backend/src/models"
	"github.com/username/kontoflow/backend/src/services"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{
		MaxRequestBytes: 1 << 20,
	}
	os.Exit(m.Run())
}

type stubFXService struct {
	rate models.FxRate
	err  error
}

func (s *stubFXService) Resolve(ctx context.Context, currency string, referenceDate time.Time) (models.FxRate, error) {
	if s.err != nil {
		return models.FxRate{}, s.err
	}
	return s.rate, nil
}

func (s *stubFXService) Currencies() []string { return []string{"EUR", "USD"} }

func newTestHandler(fx services.FXService) *ConvertHandler {
	return NewConvertHandler(services.NewConversionService(fx, exporters.NewFortnoxExporter()), fx)
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"table": map[string]interface{}{
			"columns": []string{"Date", "Desc", "Amt"},
			"rows": []map[string]string{
				{"Date": "31/01/2024", "Desc": "Coffee", "Amt": "-45,00"},
			},
		},
		"mapping": map[string]string{
			"Datum":       "Date",
			"Beskrivning": "Desc",
			"Belopp":      "Amt",
		},
	}
}

func postConvert(t *testing.T, h *ConvertHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.HandleConvert(rr, req)
	return rr
}

func TestHandleConvertEndToEnd(t *testing.T) {
	rr := postConvert(t, newTestHandler(&stubFXService{}), validBody())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	var result services.ConversionResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("response not decodable: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Amount != -45 {
		t.Errorf("records: %+v", result.Records)
	}
	if !bytes.HasPrefix(result.Output, []byte{0xEF, 0xBB, 0xBF}) {
		t.Errorf("output must carry the BOM")
	}
	if !bytes.Contains(result.Output, []byte("2024-01-31;Coffee;-45,00\r\n")) {
		t.Errorf("output: %q", result.Output)
	}
	if !strings.HasPrefix(result.Filename, "Fortnox_import_") {
		t.Errorf("filename: %q", result.Filename)
	}
}

func TestHandleConvertManualRate(t *testing.T) {
	body := validBody()
	body["currency"] = "EUR"
	body["manualRate"] = "11,4325" // Swedish notation accepted

	rr := postConvert(t, newTestHandler(&stubFXService{err: services.ErrRateNotFound}), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	var result services.ConversionResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Rate == nil || result.Rate.Rate != 11.4325 {
		t.Errorf("rate: %+v", result.Rate)
	}
}

func TestHandleConvertMappingIncomplete(t *testing.T) {
	body := validBody()
	body["mapping"] = map[string]string{"Datum": "Date"}

	rr := postConvert(t, newTestHandler(&stubFXService{}), body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &errBody); err != nil || errBody["error"] == "" {
		t.Errorf("want structured JSON error, got %s", rr.Body.String())
	}
}

func TestHandleConvertNoRate(t *testing.T) {
	body := validBody()
	body["currency"] = "EUR"
	body["referenceDate"] = "2024-07-15"

	rr := postConvert(t, newTestHandler(&stubFXService{err: services.ErrRateNotFound}), body)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422; body %s", rr.Code, rr.Body.String())
	}
}

func TestHandleConvertBadPayloads(t *testing.T) {
	h := newTestHandler(&stubFXService{})

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"bad reference date", func(b map[string]interface{}) { b["referenceDate"] = "15/07/2024" }},
		{"bad manual rate", func(b map[string]interface{}) { b["manualRate"] = "eleven" }},
		{"bad range bound", func(b map[string]interface{}) {
			b["dateRange"] = map[string]string{"from": "2024-01-10", "to": "bogus"}
		}},
		{"inverted range", func(b map[string]interface{}) {
			b["dateRange"] = map[string]string{"from": "2024-01-20", "to": "2024-01-10"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validBody()
			tt.mutate(body)
			if rr := postConvert(t, h, body); rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rr.Code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.HandleConvert(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: got %d, want 400", rr.Code)
	}
}

func TestHandleConvertDateRange(t *testing.T) {
	body := validBody()
	body["dateRange"] = map[string]string{"from": "2024-02-01", "to": "2024-02-29"}

	rr := postConvert(t, newTestHandler(&stubFXService{}), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var result services.ConversionResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 0 {
		t.Errorf("January record must not pass a February filter: %+v", result.Records)
	}
}

func TestHandleGetCurrenciesETag(t *testing.T) {
	h := newTestHandler(&stubFXService{})

	req := httptest.NewRequest(http.MethodGet, "/api/currencies", nil)
	rr := httptest.NewRecorder()
	h.HandleGetCurrencies(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("ETag header missing")
	}
	var body map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body["currencies"]) != 2 {
		t.Errorf("currencies: %v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/currencies", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.HandleGetCurrencies(rr, req)
	if rr.Code != http.StatusNotModified {
		t.Errorf("status: got %d, want 304", rr.Code)
	}
}

func TestHandleGetRate(t *testing.T) {
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	h := newTestHandler(&stubFXService{rate: models.FxRate{Currency: "EUR", Rate: 11.456, AsOf: asOf}})

	req := httptest.NewRequest(http.MethodGet, "/api/fxrate?currency=EUR&date=2024-07-15", nil)
	rr := httptest.NewRecorder()
	h.HandleGetRate(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	var rate models.FxRate
	if err := json.Unmarshal(rr.Body.Bytes(), &rate); err != nil {
		t.Fatal(err)
	}
	if rate.Rate != 11.456 || rate.Currency != "EUR" {
		t.Errorf("rate: %+v", rate)
	}
}

func TestHandleGetRateMissingCurrency(t *testing.T) {
	h := newTestHandler(&stubFXService{})
	req := httptest.NewRequest(http.MethodGet, "/api/fxrate", nil)
	rr := httptest.NewRecorder()
	h.HandleGetRate(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestHandleGetRateNotFound(t *testing.T) {
	h := newTestHandler(&stubFXService{err: services.ErrRateNotFound})
	req := httptest.NewRequest(http.MethodGet, "/api/fxrate?currency=ZZZ", nil)
	rr := httptest.NewRecorder()
	h.HandleGetRate(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestHandleGetRateBadDate(t *testing.T) {
	h := newTestHandler(&stubFXService{})
	req := httptest.NewRequest(http.MethodGet, "/api/fxrate?currency=EUR&date=July", nil)
	rr := httptest.NewRecorder()
	h.HandleGetRate(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}
