package domain

import (
	"errors"
	"sort"
	"time"
)

// Dataset is the immutable, load-once context every extraction runs against.
// Nothing mutates it after NewDataset returns, so it is safe for concurrent
// readers without locking.
type Dataset struct {
	observations []Observation
	axis         DateAxis

	countries []string
	provinces []string
	counties  []string
	regions   []string
	caseTypes []string

	// row indices per region name, one map per granularity
	byCountry  map[string][]int
	byProvince map[string][]int
	byCounty   map[string][]int

	population map[string]float64
	loadedAt   time.Time
}

// NewDataset builds the dataset context from parsed observations. Observations
// are kept in chronological order (stable for equal dates). population may be
// nil when the per-capita map is disabled.
func NewDataset(observations []Observation, population map[string]float64) (*Dataset, error) {
	if len(observations) == 0 {
		return nil, errors.New("dataset has no observations")
	}

	obs := make([]Observation, len(observations))
	copy(obs, observations)
	for i := range obs {
		obs[i].Date = truncateDay(obs[i].Date)
	}

	ds := &Dataset{
		byCountry:  make(map[string][]int),
		byProvince: make(map[string][]int),
		byCounty:   make(map[string][]int),
		population: make(map[string]float64, len(population)),
		loadedAt:   clock.Now(),
	}

	// Region and case-type lists keep first-appearance order of the source file.
	ds.countries = uniqueNonEmpty(obs, func(o Observation) string { return o.Country })
	ds.provinces = uniqueNonEmpty(obs, func(o Observation) string { return o.Province })
	ds.counties = uniqueNonEmpty(obs, func(o Observation) string { return o.County })
	ds.caseTypes = uniqueNonEmpty(obs, func(o Observation) string { return o.CaseType })
	ds.regions = mergeUnique(ds.countries, ds.provinces, ds.counties)

	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	ds.observations = obs

	for i, o := range obs {
		if len(ds.axis) == 0 || !ds.axis[len(ds.axis)-1].Equal(o.Date) {
			ds.axis = append(ds.axis, o.Date)
		}
		if o.Country != "" {
			ds.byCountry[o.Country] = append(ds.byCountry[o.Country], i)
		}
		if o.Province != "" {
			ds.byProvince[o.Province] = append(ds.byProvince[o.Province], i)
		}
		if o.County != "" {
			ds.byCounty[o.County] = append(ds.byCounty[o.County], i)
		}
	}

	for k, v := range population {
		ds.population[k] = v
	}

	return ds, nil
}

// DateAxis returns the shared date axis. Callers must not modify it.
func (d *Dataset) DateAxis() DateAxis { return d.axis }

// Countries lists distinct country names in first-appearance order.
func (d *Dataset) Countries() []string { return d.countries }

// Provinces lists distinct province/state names in first-appearance order.
func (d *Dataset) Provinces() []string { return d.provinces }

// Counties lists distinct county names in first-appearance order.
func (d *Dataset) Counties() []string { return d.counties }

// Regions is the union of countries, provinces and counties, in that order,
// without duplicates.
func (d *Dataset) Regions() []string { return d.regions }

// CaseTypes lists distinct case-type labels in first-appearance order.
func (d *Dataset) CaseTypes() []string { return d.caseTypes }

// Len returns the number of observations.
func (d *Dataset) Len() int { return len(d.observations) }

// LoadedAt reports when the dataset was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// HasCaseType reports whether the label occurs in the dataset.
func (d *Dataset) HasCaseType(caseType string) bool {
	for _, ct := range d.caseTypes {
		if ct == caseType {
			return true
		}
	}
	return false
}

// Population returns the population of a country, if known.
func (d *Dataset) Population(country string) (float64, bool) {
	p, ok := d.population[country]
	return p, ok
}

// HasPopulation reports whether any population data was loaded.
func (d *Dataset) HasPopulation() bool { return len(d.population) > 0 }

func uniqueNonEmpty(obs []Observation, field func(Observation) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, o := range obs {
		v := field(o)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func mergeUnique(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, v := range l {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
