package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
)

// Chart kinds, used as the "kind" metric label.
const (
	KindCases = "cases"
	KindRatio = "ratio"
	KindMap   = "map"
)

// Chart axis titles and the fixed ratio range.
const (
	CasesAxisTitle = "Number of Cases"
	RatioAxisTitle = "Case Change Ratio (1 day)"
	TraceMode      = "lines+markers"
)

// RatioRange is the y range of the ratio chart before any log transform.
var RatioRange = [2]float64{-0.5, 1.5}

// ChartRequest is one dashboard selection. Start and End index the date axis
// with slicing semantics.
type ChartRequest struct {
	CaseTypes []string
	Regions   []string
	Start     int
	End       int
	Smooth    bool
	Log       bool
}

// Trace is one plotted line.
type Trace struct {
	Name string        `json:"name"`
	X    []string      `json:"x"`
	Y    domain.Series `json:"y"`
	Mode string        `json:"mode"`
}

// Axis describes one chart axis. A nil Range lets the client autoscale.
type Axis struct {
	Title string    `json:"title,omitempty"`
	Range []float64 `json:"range,omitempty"`
}

// Layout holds the chart axes.
type Layout struct {
	XAxis Axis `json:"xaxis"`
	YAxis Axis `json:"yaxis"`
}

// Chart is a Plotly-shaped figure.
type Chart struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// LineChart builds the case-count chart: extract, window, optional smooth,
// optional log.
func (p *Pipeline) LineChart(ctx context.Context, req ChartRequest) (Chart, error) {
	var chart Chart
	err := p.observe(KindCases, func() (err error) {
		chart, err = p.buildChart(ctx, req, false)
		return err
	})
	return chart, err
}

// RatioChart builds the one-day change-ratio chart: extract, window, optional
// smooth, change ratio, optional log.
func (p *Pipeline) RatioChart(ctx context.Context, req ChartRequest) (Chart, error) {
	var chart Chart
	err := p.observe(KindRatio, func() (err error) {
		chart, err = p.buildChart(ctx, req, true)
		return err
	})
	return chart, err
}

func (p *Pipeline) buildChart(ctx context.Context, req ChartRequest, ratio bool) (Chart, error) {
	ds, err := p.Dataset()
	if err != nil {
		return Chart{}, err
	}
	if len(req.Regions) == 0 {
		return Chart{}, domain.ErrNoRegions
	}
	for _, caseType := range req.CaseTypes {
		if !ds.HasCaseType(caseType) {
			return Chart{}, fmt.Errorf("%w: %q", domain.ErrUnknownCaseType, caseType)
		}
	}

	chart := Chart{Data: make([]Trace, 0, len(req.CaseTypes)*len(req.Regions))}
	if ratio {
		chart.Layout.YAxis = Axis{Title: RatioAxisTitle, Range: ratioRange(req.Log)}
	} else {
		chart.Layout.YAxis = Axis{Title: CasesAxisTitle}
	}

	labels := windowLabels(ds.DateAxis().Labels(), req.Start, req.End)
	for _, caseType := range req.CaseTypes {
		if err := ctx.Err(); err != nil {
			return Chart{}, err
		}

		series, err := domain.Extract(ds, caseType, req.Regions, p.opts.Extract)
		if err != nil {
			return Chart{}, err
		}
		for _, rs := range series {
			y, err := p.reshape(rs.Values, req, ratio)
			if err != nil {
				return Chart{}, err
			}
			chart.Data = append(chart.Data, Trace{
				Name: fmt.Sprintf("%s (%s)", rs.Name, caseType),
				X:    labels,
				Y:    y,
				Mode: TraceMode,
			})
		}
	}
	return chart, nil
}

// reshape applies the per-trace transforms in order. Smoothing always runs
// before the ratio and the log.
func (p *Pipeline) reshape(s domain.Series, req ChartRequest, ratio bool) (domain.Series, error) {
	s = domain.Window(s, req.Start, req.End)
	if req.Smooth {
		var err error
		s, err = domain.Smooth(s, p.opts.SmoothFraction)
		if err != nil {
			return nil, err
		}
	}
	if ratio {
		s = domain.ChangeRatio(s)
	}
	if req.Log {
		s = domain.Log(s)
	}
	return s, nil
}

// ratioRange returns the fixed ratio range, logged when the chart is. The log
// of the negative lower bound is NaN and encodes as null, which leaves that
// end to the client.
func ratioRange(logged bool) []float64 {
	r := []float64{RatioRange[0], RatioRange[1]}
	if logged {
		r[0], r[1] = math.Log(r[0]), math.Log(r[1])
	}
	return r
}

func windowLabels(labels []string, start, end int) []string {
	if start < 0 {
		start = 0
	}
	if end > len(labels) {
		end = len(labels)
	}
	if start >= end {
		return []string{}
	}
	return labels[start:end]
}

// Map builds the per-capita choropleth frame over [start, end) and locates
// its points when a locator is configured.
func (p *Pipeline) Map(ctx context.Context, caseType string, start, end int) (domain.MapFrame, error) {
	var frame domain.MapFrame
	err := p.observe(KindMap, func() error {
		ds, err := p.Dataset()
		if err != nil {
			return err
		}
		if !ds.HasPopulation() {
			return ErrMapDisabled
		}
		frame, err = domain.BuildMapFrame(ds, caseType, start, end)
		if err != nil {
			return err
		}
		frame.Points = domain.LocateMapPoints(ctx, frame.Points, p.locator, p.logger)
		return nil
	})
	return frame, err
}

// WarmLocations looks up every mapped country once so the first map requests
// are served from the locator cache. It returns the number of countries that
// got coordinates. Without a locator or population it does nothing.
func (p *Pipeline) WarmLocations(ctx context.Context) (int, error) {
	ds, err := p.Dataset()
	if err != nil {
		return 0, err
	}
	if p.locator == nil || !ds.HasPopulation() {
		return 0, nil
	}

	start := time.Now()
	var points []domain.MapPoint
	for _, c := range ds.Countries() {
		if _, ok := ds.Population(c); ok && !domain.IgnoredCountry(c) {
			points = append(points, domain.MapPoint{Country: c})
		}
	}
	located := 0
	for _, pt := range domain.LocateMapPoints(ctx, points, p.locator, p.logger) {
		if pt.GeoSource == "geocoded" {
			located++
		}
	}
	p.logger.Info("locations warmed",
		"countries", len(points),
		"located", located,
		"duration", time.Since(start),
	)
	return located, ctx.Err()
}

// observe times one build and counts its outcome.
func (p *Pipeline) observe(kind string, build func() error) error {
	start := time.Now()
	err := build()
	p.metrics.ChartBuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		p.metrics.ChartRequests.WithLabelValues(kind, "success").Inc()
	case errors.Is(err, domain.ErrNoRegions):
		p.metrics.ChartRequests.WithLabelValues(kind, "empty").Inc()
	default:
		p.metrics.ChartRequests.WithLabelValues(kind, "error").Inc()
		p.logger.Debug("chart build failed", "kind", kind, "error", err)
	}
	return err
}
