package domain

import (
	"fmt"
	"time"
)

// PerCapitaScale expresses map values as cases per 100,000 inhabitants.
const PerCapitaScale = 100_000

// MapPoint is one country on the choropleth map.
type MapPoint struct {
	Country    string  `json:"country"`
	NewCases   float64 `json:"new_cases"`
	Population float64 `json:"population"`
	PerCapita  float64 `json:"per_capita"`

	// Location enrichment fields.
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	GeoSource string  `json:"geo_source,omitempty"` // "geocoded", "none", "failed"
}

// MapFrame holds the per-capita new cases of every country over one window.
type MapFrame struct {
	CaseType          string     `json:"case_type"`
	From              string     `json:"from"`
	To                string     `json:"to"`
	Points            []MapPoint `json:"points"`
	MissingPopulation []string   `json:"missing_population,omitempty"`
	GeneratedAt       time.Time  `json:"generated_at"`
}

// BuildMapFrame computes new cases per 100,000 inhabitants for every country
// over the axis window [start, end). Countries without a known population are
// listed in MissingPopulation instead of Points.
func BuildMapFrame(ds *Dataset, caseType string, start, end int) (MapFrame, error) {
	axis := ds.DateAxis()
	start, end = clampWindow(start, end, len(axis))

	var countries []string
	for _, c := range ds.Countries() {
		if !IgnoredCountry(c) {
			countries = append(countries, c)
		}
	}
	if len(countries) == 0 {
		return MapFrame{}, fmt.Errorf("build map frame: %w", ErrNoRegions)
	}

	series, err := Extract(ds, caseType, countries, ExtractOptions{Match: MatchPrecedence})
	if err != nil {
		return MapFrame{}, fmt.Errorf("build map frame: %w", err)
	}

	frame := MapFrame{
		CaseType:    caseType,
		Points:      make([]MapPoint, 0, len(series)),
		GeneratedAt: clock.Now(),
	}
	if start < end {
		frame.From = axis[start].Format(AxisLabelLayout)
		frame.To = axis[end-1].Format(AxisLabelLayout)
	}

	for _, rs := range series {
		pop, ok := ds.Population(rs.Name)
		if !ok || pop <= 0 {
			frame.MissingPopulation = append(frame.MissingPopulation, rs.Name)
			continue
		}
		newCases := NewCases(rs.Values, start, end)
		frame.Points = append(frame.Points, MapPoint{
			Country:    rs.Name,
			NewCases:   newCases,
			Population: pop,
			PerCapita:  newCases / pop * PerCapitaScale,
		})
	}
	return frame, nil
}

// clampWindow applies slicing semantics to [start, end) over an axis of length
// n. An inverted window collapses to an empty one, as Window does.
func clampWindow(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}
