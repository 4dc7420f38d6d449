// backend/src/handlers/convert_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/kontoflow/backend/src/config"
	"github.com/username/kontoflow/backend/src/logger"
	"github.com/username/kontoflow/backend/src/models"
	"github.com/username/kontoflow/backend/src/parsers"
	"github.com/username/kontoflow/backend/src/processors"
	"github.com/username/kontoflow/backend/src/services"
	"github.com/username/kontoflow/backend/src/utils"
)

type ConvertHandler struct {
	conversionService services.ConversionService
	fxService         services.FXService
}

func NewConvertHandler(conversionService services.ConversionService, fxService services.FXService) *ConvertHandler {
	return &ConvertHandler{
		conversionService: conversionService,
		fxService:         fxService,
	}
}

// convertRequest is the wire shape of a conversion request. Dates travel as
// ISO strings; the manual rate is a string so "11,4325" and "11.4325" both
// work, same as the numeric cells.
type convertRequest struct {
	Table         models.RawTable      `json:"table"`
	Mapping       models.ColumnMapping `json:"mapping"`
	Currency      string               `json:"currency,omitempty"`
	ReferenceDate string               `json:"referenceDate,omitempty"`
	ManualRate    string               `json:"manualRate,omitempty"`
	DateRange     *struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"dateRange,omitempty"`
}

func (h *ConvertHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxRequestBytes)

	var payload convertRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.L.Warn("Failed to decode convert request", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	req := services.ConversionRequest{
		Table:    payload.Table,
		Mapping:  payload.Mapping,
		Currency: payload.Currency,
	}

	if payload.ReferenceDate != "" {
		refDate, err := time.Parse("2006-01-02", payload.ReferenceDate)
		if err != nil {
			utils.SendJSONError(w, fmt.Sprintf("Invalid referenceDate %q, expected YYYY-MM-DD", payload.ReferenceDate), http.StatusBadRequest)
			return
		}
		req.ReferenceDate = refDate
	}

	if strings.TrimSpace(payload.ManualRate) != "" {
		rate, err := parsers.ParseNumeric(payload.ManualRate)
		if err != nil {
			utils.SendJSONError(w, fmt.Sprintf("Invalid manualRate %q, expected a number", payload.ManualRate), http.StatusBadRequest)
			return
		}
		req.ManualRate = &rate
	}

	if payload.DateRange != nil {
		from, errFrom := time.Parse("2006-01-02", payload.DateRange.From)
		to, errTo := time.Parse("2006-01-02", payload.DateRange.To)
		if errFrom != nil || errTo != nil {
			utils.SendJSONError(w, "Invalid dateRange, expected YYYY-MM-DD bounds", http.StatusBadRequest)
			return
		}
		if to.Before(from) {
			utils.SendJSONError(w, "Invalid dateRange: 'to' precedes 'from'", http.StatusBadRequest)
			return
		}
		req.DateRange = &models.DateRange{From: from, To: to}
	}

	result, err := h.conversionService.Convert(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, processors.ErrMappingIncomplete):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrNoRateAvailable):
			utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			logger.L.Error("Internal error during conversion", "error", err)
			utils.SendJSONError(w, "An internal error occurred while converting. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for conversion result", "conversionID", result.ConversionID, "error", err)
	}
}

// HandleGetCurrencies lists the supported currency codes. The list only
// changes on redeploy, so it is served with an ETag.
func (h *ConvertHandler) HandleGetCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := h.fxService.Currencies()

	currentETag, etagErr := utils.GenerateETag(codes)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"currencies": codes}); err != nil {
		logger.L.Error("Error encoding currencies response", "error", err)
	}
}

// HandleGetRate previews the month-end rate for a currency and reference
// date, so the UI can show it before the conversion is submitted.
func (h *ConvertHandler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	currency := strings.TrimSpace(r.URL.Query().Get("currency"))
	if currency == "" {
		utils.SendJSONError(w, "Query parameter 'currency' is required", http.StatusBadRequest)
		return
	}

	dateStr := r.URL.Query().Get("date")
	refDate := time.Now()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			utils.SendJSONError(w, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", dateStr), http.StatusBadRequest)
			return
		}
		refDate = parsed
	}

	rate, err := h.fxService.Resolve(r.Context(), currency, refDate)
	if err != nil {
		if errors.Is(err, services.ErrRateNotFound) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.L.Error("Internal error resolving rate", "currency", currency, "error", err)
		utils.SendJSONError(w, "An internal error occurred while resolving the rate.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rate); err != nil {
		logger.L.Error("Error encoding rate response", "currency", currency, "error", err)
	}
}
