package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
)

// The population CSV follows the UN World Population Prospects extract:
//
//	LocID, Time, Location, PopTotal
//	4,     2020, Afghanistan, 38928.341
//
// Only the third (name) and fourth (population in thousands) columns are read.
const (
	popNameCol  = 2
	popValueCol = 3
	popUnit     = 1000
)

// ParsePopulation reads a population table keyed by case-data country name.
// Names are mapped with domain.NormalizeCountry. Malformed rows fail the parse.
func ParsePopulation(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse population: empty file")
		}
		return nil, fmt.Errorf("parse population header: %w", err)
	}

	out := make(map[string]float64)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse population: %w", err)
		}
		if len(record) <= popValueCol {
			return nil, fmt.Errorf("parse population line %d: expected at least %d columns, got %d", line, popValueCol+1, len(record))
		}

		name := strings.TrimSpace(record[popNameCol])
		if name == "" {
			return nil, fmt.Errorf("parse population line %d: empty country name", line)
		}
		raw := strings.TrimSpace(record[popValueCol])
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse population line %d: invalid population %q: %w", line, raw, err)
		}

		out[domain.NormalizeCountry(name)] = value * popUnit
	}
	return out, nil
}
