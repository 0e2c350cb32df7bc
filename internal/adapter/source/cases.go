package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
)

// Case CSV column names.
const (
	ColCountry  = "Country/Region"
	ColProvince = "Province/State"
	ColCounty   = "County"
	ColDate     = "Date"
	ColCaseType = "Case_Type"
	ColCases    = "Cases"
)

var requiredColumns = []string{ColCountry, ColProvince, ColCounty, ColDate, ColCaseType, ColCases}

// ParseCases reads a case CSV into observations. Columns are located by
// header name; extra columns are ignored. Any malformed row fails the whole
// parse with its 1-based line number: a partially loaded dataset is never
// returned.
func ParseCases(r io.Reader, dateLayout string) ([]domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse cases: empty file")
		}
		return nil, fmt.Errorf("parse cases header: %w", err)
	}

	idx, err := columnIndex(header, requiredColumns)
	if err != nil {
		return nil, fmt.Errorf("parse cases header: %w", err)
	}

	var out []domain.Observation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse cases: %w", err)
		}

		o, err := parseCaseRecord(record, idx, dateLayout)
		if err != nil {
			return nil, fmt.Errorf("parse cases line %d: %w", line, err)
		}
		out = append(out, o)
	}

	if len(out) == 0 {
		return nil, errors.New("parse cases: no data rows")
	}
	return out, nil
}

func parseCaseRecord(record []string, idx map[string]int, dateLayout string) (domain.Observation, error) {
	field := func(col string) string {
		return strings.TrimSpace(record[idx[col]])
	}

	country := field(ColCountry)
	if country == "" {
		return domain.Observation{}, fmt.Errorf("empty %s", ColCountry)
	}
	caseType := field(ColCaseType)
	if caseType == "" {
		return domain.Observation{}, fmt.Errorf("empty %s", ColCaseType)
	}

	rawDate := field(ColDate)
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("invalid %s %q: %w", ColDate, rawDate, err)
	}

	rawCases := field(ColCases)
	cases, err := strconv.ParseInt(rawCases, 10, 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("invalid %s %q: %w", ColCases, rawCases, err)
	}

	return domain.Observation{
		Country:  country,
		Province: field(ColProvince),
		County:   field(ColCounty),
		Date:     date,
		CaseType: caseType,
		Cases:    cases,
	}, nil
}

// columnIndex maps each wanted column name to its header position.
func columnIndex(header []string, wanted []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	idx := make(map[string]int, len(wanted))
	var missing []string
	for _, col := range wanted {
		i, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}
