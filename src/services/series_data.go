package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/username/kontoflow/backend/src/logger"
)

// LoadSeriesTable reads a currency-to-series override table from a YAML file
// of the form:
//
//	series:
//	  EUR: SEKEURPMI
//	  USD: SEKUSDPMI
//
// Called once from main.go after config is loaded. Callers keep the built-in
// table when the file cannot be used.
func LoadSeriesTable(filePath string) (map[string]string, error) {
	logger.L.Info("Loading currency series table", "path", filePath)
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading series table '%s': %w", filePath, err)
	}

	var doc struct {
		Series map[string]string `yaml:"series"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("error unmarshalling series table from '%s': %w", filePath, err)
	}
	if len(doc.Series) == 0 {
		return nil, fmt.Errorf("series table '%s' has no entries", filePath)
	}

	table := make(map[string]string, len(doc.Series))
	for code, seriesID := range doc.Series {
		table[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(seriesID)
	}
	logger.L.Info("Currency series table loaded", "path", filePath, "currencyCount", len(table))
	return table, nil
}
