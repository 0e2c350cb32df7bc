package domain

import (
	"errors"
	"time"
)

var (
	// ErrNoRegions is returned when extraction is invoked with an empty selection.
	ErrNoRegions = errors.New("no regions selected")

	// ErrUnknownCaseType is returned for a case-type label absent from the dataset.
	ErrUnknownCaseType = errors.New("unknown case type")

	// ErrUnknownRegion is returned under UnknownRegionError when a name matches no rows.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrInvalidFraction is returned for a smoothing fraction outside (0, 1].
	ErrInvalidFraction = errors.New("smoothing fraction must be in (0, 1]")
)

// Observation is one parsed CSV row: the cumulative count of one case type
// for one region on one day.
type Observation struct {
	Country  string    `json:"country"`
	Province string    `json:"province,omitempty"`
	County   string    `json:"county,omitempty"`
	Date     time.Time `json:"date"`
	CaseType string    `json:"case_type"`
	Cases    int64     `json:"cases"`
}

// Series is an ordered sequence of values aligned positionally to a date axis.
type Series []float64

// RegionSeries pairs a requested region name with its extracted series.
type RegionSeries struct {
	Name   string `json:"name"`
	Values Series `json:"values"`
}

// DateAxis is the sorted, deduplicated set of dates shared by all series.
type DateAxis []time.Time

// AxisLabelLayout renders axis dates for chart labels ("Mar 21").
const AxisLabelLayout = "Jan 02"

// Labels formats every axis date with AxisLabelLayout.
func (a DateAxis) Labels() []string {
	out := make([]string, len(a))
	for i, d := range a {
		out[i] = d.Format(AxisLabelLayout)
	}
	return out
}

// Index returns the axis position of the given day, or -1 when absent.
func (a DateAxis) Index(d time.Time) int {
	d = truncateDay(d)
	lo, hi := 0, len(a)
	for lo < hi {
		mid := (lo + hi) / 2
		if a[mid].Before(d) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(a) && a[lo].Equal(d) {
		return lo
	}
	return -1
}

// truncateDay drops the time-of-day and normalises to UTC so dates compare as
// calendar days.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
