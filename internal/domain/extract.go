package domain

import (
	"fmt"
	"sort"
)

// MatchPolicy decides which rows a region name selects when the name occurs
// at more than one granularity.
type MatchPolicy string

const (
	// MatchPrecedence selects country rows if any match, else province rows,
	// else county rows, and sums the winning rows per date.
	MatchPrecedence MatchPolicy = "precedence"

	// MatchLegacy selects rows matching any granularity and sums per date only
	// when there are more matching rows than axis dates.
	MatchLegacy MatchPolicy = "legacy"
)

// ParseMatchPolicy validates a policy name. Empty selects MatchPrecedence.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(s) {
	case "", MatchPrecedence:
		return MatchPrecedence, nil
	case MatchLegacy:
		return MatchLegacy, nil
	default:
		return "", fmt.Errorf("unknown match policy %q", s)
	}
}

// UnknownRegionPolicy decides what extraction does with a name that matches
// no row at any granularity.
type UnknownRegionPolicy string

const (
	// UnknownRegionZero yields an all-zero series.
	UnknownRegionZero UnknownRegionPolicy = "zero"

	// UnknownRegionError fails extraction with ErrUnknownRegion.
	UnknownRegionError UnknownRegionPolicy = "error"
)

// ParseUnknownRegionPolicy validates a policy name. Empty selects UnknownRegionZero.
func ParseUnknownRegionPolicy(s string) (UnknownRegionPolicy, error) {
	switch UnknownRegionPolicy(s) {
	case "", UnknownRegionZero:
		return UnknownRegionZero, nil
	case UnknownRegionError:
		return UnknownRegionError, nil
	default:
		return "", fmt.Errorf("unknown region policy %q", s)
	}
}

// ExtractOptions configures Extract. The zero value means MatchPrecedence and
// UnknownRegionZero.
type ExtractOptions struct {
	Match         MatchPolicy
	UnknownRegion UnknownRegionPolicy
}

// Extract produces one series per requested region for the given case type.
// Results keep the order of names and every series has len(ds.DateAxis())
// values. A name that matches nothing yields zeros unless opts asks for an
// error.
func Extract(ds *Dataset, caseType string, names []string, opts ExtractOptions) ([]RegionSeries, error) {
	if len(names) == 0 {
		return nil, ErrNoRegions
	}
	if !ds.HasCaseType(caseType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCaseType, caseType)
	}

	out := make([]RegionSeries, 0, len(names))
	for _, name := range names {
		if opts.UnknownRegion == UnknownRegionError && !ds.hasRegion(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
		}

		var values Series
		if opts.Match == MatchLegacy {
			values = ds.extractLegacy(caseType, name)
		} else {
			values = ds.extractPrecedence(caseType, name)
		}
		out = append(out, RegionSeries{Name: name, Values: values})
	}
	return out, nil
}

func (d *Dataset) hasRegion(name string) bool {
	return len(d.byCountry[name]) > 0 || len(d.byProvince[name]) > 0 || len(d.byCounty[name]) > 0
}

// extractPrecedence places the summed counts of the highest-precedence level
// the name exists at on the axis by date. The level depends on the name only,
// so every case type of one name reads the same entity. Axis dates without
// rows read as zero.
func (d *Dataset) extractPrecedence(caseType, name string) Series {
	values := make(Series, len(d.axis))

	var level []int
	switch {
	case len(d.byCountry[name]) > 0:
		level = d.byCountry[name]
	case len(d.byProvince[name]) > 0:
		level = d.byProvince[name]
	default:
		level = d.byCounty[name]
	}

	for _, i := range d.filterCaseType(level, caseType) {
		o := d.observations[i]
		if pos := d.axis.Index(o.Date); pos >= 0 {
			values[pos] += float64(o.Cases)
		}
	}
	return values
}

// extractLegacy matches any granularity. When more rows match than there are
// axis dates (e.g. a country made of provinces) rows are summed per date;
// otherwise rows are taken in date order. The result is left-padded with zeros
// to the axis length.
func (d *Dataset) extractLegacy(caseType, name string) Series {
	seen := make(map[int]struct{})
	var rows []int
	for _, idx := range [][]int{d.byCountry[name], d.byProvince[name], d.byCounty[name]} {
		for _, i := range d.filterCaseType(idx, caseType) {
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			rows = append(rows, i)
		}
	}
	// observations are date-sorted, so index order is date order
	sort.Ints(rows)

	var raw Series
	if len(rows) > len(d.axis) {
		raw = d.sumByDate(rows)
	} else {
		raw = make(Series, len(rows))
		for k, i := range rows {
			raw[k] = float64(d.observations[i].Cases)
		}
	}

	return padLeft(raw, len(d.axis))
}

// sumByDate sums date-ordered rows sharing a date, one value per distinct date.
func (d *Dataset) sumByDate(rows []int) Series {
	var out Series
	for k, i := range rows {
		o := d.observations[i]
		if k > 0 && d.observations[rows[k-1]].Date.Equal(o.Date) {
			out[len(out)-1] += float64(o.Cases)
			continue
		}
		out = append(out, float64(o.Cases))
	}
	return out
}

func (d *Dataset) filterCaseType(rows []int, caseType string) []int {
	var out []int
	for _, i := range rows {
		if d.observations[i].CaseType == caseType {
			out = append(out, i)
		}
	}
	return out
}

// padLeft prefixes zeros so that s has length n. Longer series are returned
// unchanged.
func padLeft(s Series, n int) Series {
	diff := n - len(s)
	if diff <= 0 {
		return s
	}
	out := make(Series, n)
	copy(out[diff:], s)
	return out
}
