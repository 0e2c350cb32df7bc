package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	"github.com/couchcryptid/covid-dashboard-service/internal/observability"
)

var (
	// ErrNotReady is returned by every query made before a dataset is installed.
	ErrNotReady = errors.New("dataset not loaded")
	// ErrMapDisabled is returned by Map when no population data is loaded.
	ErrMapDisabled = errors.New("map disabled: no population data")
)

// Default dashboard selection.
var (
	DefaultRegions   = []string{"Spain", "Italy"}
	DefaultCaseTypes = []string{"Confirmed"}
)

// MarkStep is the spacing, in axis positions, of the date slider marks.
const MarkStep = 7

// Options configures how a Pipeline reshapes series.
type Options struct {
	Extract        domain.ExtractOptions
	SmoothFraction float64
}

// Pipeline answers dashboard queries against one loaded dataset.
type Pipeline struct {
	dataset atomic.Pointer[domain.Dataset]
	opts    Options
	locator domain.Locator
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline without a dataset. Pass a nil locator to serve map
// points without coordinates.
func New(opts Options, locator domain.Locator, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.SmoothFraction == 0 {
		opts.SmoothFraction = domain.DefaultSmoothFraction
	}
	return &Pipeline{
		opts:    opts,
		locator: locator,
		logger:  logger,
		metrics: metrics,
	}
}

// SetDataset installs ds for all subsequent queries.
func (p *Pipeline) SetDataset(ds *domain.Dataset) {
	p.dataset.Store(ds)
	p.metrics.DatasetRows.Set(float64(ds.Len()))
	p.metrics.DatasetDates.Set(float64(len(ds.DateAxis())))
	p.metrics.DatasetRegions.Set(float64(len(ds.Regions())))
}

// Dataset returns the installed dataset, or ErrNotReady.
func (p *Pipeline) Dataset() (*domain.Dataset, error) {
	ds := p.dataset.Load()
	if ds == nil {
		return nil, ErrNotReady
	}
	return ds, nil
}

// CheckReadiness returns nil once a dataset has been installed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.dataset.Load() == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Mark labels one position of the date slider.
type Mark struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// DashboardOptions describes the selectable state of the dashboard.
type DashboardOptions struct {
	Labels           []string `json:"labels"`
	Length           int      `json:"length"`
	Marks            []Mark   `json:"marks"`
	CaseTypes        []string `json:"case_types"`
	DefaultRegions   []string `json:"default_regions"`
	DefaultCaseTypes []string `json:"default_case_types"`
	MapEnabled       bool     `json:"map_enabled"`
}

// Options returns the axis labels, slider marks, and default selection.
func (p *Pipeline) Options() (DashboardOptions, error) {
	ds, err := p.Dataset()
	if err != nil {
		return DashboardOptions{}, err
	}

	labels := ds.DateAxis().Labels()
	marks := make([]Mark, 0, len(labels)/MarkStep+1)
	for i := 0; i < len(labels); i += MarkStep {
		marks = append(marks, Mark{Index: i, Label: labels[i]})
	}

	return DashboardOptions{
		Labels:           labels,
		Length:           len(labels),
		Marks:            marks,
		CaseTypes:        ds.CaseTypes(),
		DefaultRegions:   DefaultRegions,
		DefaultCaseTypes: DefaultCaseTypes,
		MapEnabled:       ds.HasPopulation(),
	}, nil
}

// SearchRegions returns the regions whose name contains search, plus every
// selected region that exists, in dataset order.
func (p *Pipeline) SearchRegions(search string, selected []string) ([]string, error) {
	ds, err := p.Dataset()
	if err != nil {
		return nil, err
	}
	return searchOptions(ds.Regions(), search, selected), nil
}

// SearchCaseTypes is SearchRegions for case-type labels.
func (p *Pipeline) SearchCaseTypes(search string, selected []string) ([]string, error) {
	ds, err := p.Dataset()
	if err != nil {
		return nil, err
	}
	return searchOptions(ds.CaseTypes(), search, selected), nil
}

// searchOptions filters options by case-sensitive substring match. Selected
// values are always kept so a dropdown never drops its current value.
func searchOptions(options []string, search string, selected []string) []string {
	keep := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		keep[s] = struct{}{}
	}

	out := make([]string, 0)
	for _, o := range options {
		if _, ok := keep[o]; ok || strings.Contains(o, search) {
			out = append(out, o)
		}
	}
	return out
}
