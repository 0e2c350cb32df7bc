package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	"github.com/couchcryptid/covid-dashboard-service/internal/observability"
	"github.com/couchcryptid/covid-dashboard-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCases struct {
	obs []domain.Observation
	err error
}

func (m *mockCases) Observations(_ context.Context) ([]domain.Observation, error) {
	return m.obs, m.err
}

type mockPopulation struct {
	pop map[string]float64
	err error
}

func (m *mockPopulation) Population(_ context.Context) (map[string]float64, error) {
	return m.pop, m.err
}

type mockLocator struct {
	results map[string]domain.LocationResult
}

func (m *mockLocator) Locate(_ context.Context, region string) (domain.LocationResult, error) {
	r, ok := m.results[region]
	if !ok {
		return domain.LocationResult{}, errors.New("not found")
	}
	return r, nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fixtures ---

func day(n int) time.Time {
	return time.Date(2020, time.March, n, 0, 0, 0, 0, time.UTC)
}

// testObservations spans Mar 1-10. Spain confirmed grows by 10 a day, Italy
// confirmed starts on Mar 3 at 300 and grows by 100, Spain deaths grow by 1.
func testObservations() []domain.Observation {
	var rows []domain.Observation
	for i := 1; i <= 10; i++ {
		rows = append(rows,
			domain.Observation{Country: "Spain", Date: day(i), CaseType: "Confirmed", Cases: int64(10 * i)},
			domain.Observation{Country: "Spain", Date: day(i), CaseType: "Deaths", Cases: int64(i)},
		)
		if i >= 3 {
			rows = append(rows, domain.Observation{Country: "Italy", Date: day(i), CaseType: "Confirmed", Cases: int64(100 * i)})
		}
	}
	return rows
}

func testPopulation() map[string]float64 {
	return map[string]float64{
		"Spain": 50_000,
		"Italy": 1_000_000,
	}
}

func newTestPipeline(t *testing.T, pop map[string]float64, locator domain.Locator) (*pipeline.Pipeline, *observability.Metrics) {
	t.Helper()
	ds, err := domain.NewDataset(testObservations(), pop)
	require.NoError(t, err)

	metrics := newTestMetrics()
	p := pipeline.New(pipeline.Options{}, locator, discardLogger(), metrics)
	p.SetDataset(ds)
	return p, metrics
}

func fullRange(req pipeline.ChartRequest) pipeline.ChartRequest {
	req.Start, req.End = 0, 10
	return req
}

// --- load ---

func TestLoadDataset(t *testing.T) {
	ds, err := pipeline.LoadDataset(context.Background(),
		&mockCases{obs: testObservations()},
		&mockPopulation{pop: testPopulation()},
		discardLogger(), newTestMetrics())
	require.NoError(t, err)

	assert.Len(t, ds.DateAxis(), 10)
	assert.Equal(t, []string{"Spain", "Italy"}, ds.Countries())
	assert.Equal(t, []string{"Confirmed", "Deaths"}, ds.CaseTypes())
	assert.True(t, ds.HasPopulation())
}

func TestLoadDataset_CaseErrorFailsLoad(t *testing.T) {
	_, err := pipeline.LoadDataset(context.Background(),
		&mockCases{err: errors.New("parse cases line 7: invalid Cases")},
		nil, discardLogger(), newTestMetrics())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load case data")
	assert.Contains(t, err.Error(), "line 7")
}

func TestLoadDataset_PopulationErrorDisablesMap(t *testing.T) {
	ds, err := pipeline.LoadDataset(context.Background(),
		&mockCases{obs: testObservations()},
		&mockPopulation{err: errors.New("status 404")},
		discardLogger(), newTestMetrics())
	require.NoError(t, err)
	assert.False(t, ds.HasPopulation())
}

func TestLoadDataset_EmptyCaseData(t *testing.T) {
	_, err := pipeline.LoadDataset(context.Background(), &mockCases{}, nil, discardLogger(), newTestMetrics())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build dataset")
}

// --- readiness and options ---

func TestPipeline_NotReady(t *testing.T) {
	p := pipeline.New(pipeline.Options{}, nil, discardLogger(), newTestMetrics())

	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Options()
	require.ErrorIs(t, err, pipeline.ErrNotReady)

	_, err = p.LineChart(context.Background(), pipeline.ChartRequest{Regions: []string{"Spain"}})
	require.ErrorIs(t, err, pipeline.ErrNotReady)

	_, err = p.SearchRegions("Sp", nil)
	require.ErrorIs(t, err, pipeline.ErrNotReady)
}

func TestPipeline_SetDataset(t *testing.T) {
	p, metrics := newTestPipeline(t, nil, nil)

	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 28, testutil.ToFloat64(metrics.DatasetRows), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(metrics.DatasetDates), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.DatasetRegions), 0)
}

func TestPipeline_Options(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	opts, err := p.Options()
	require.NoError(t, err)

	assert.Equal(t, 10, opts.Length)
	assert.Equal(t, "Mar 01", opts.Labels[0])
	assert.Equal(t, "Mar 10", opts.Labels[9])
	assert.Equal(t, []pipeline.Mark{{Index: 0, Label: "Mar 01"}, {Index: 7, Label: "Mar 08"}}, opts.Marks)
	assert.Equal(t, []string{"Confirmed", "Deaths"}, opts.CaseTypes)
	assert.Equal(t, pipeline.DefaultRegions, opts.DefaultRegions)
	assert.False(t, opts.MapEnabled)
}

func TestPipeline_Search(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	tests := []struct {
		name     string
		search   string
		selected []string
		want     []string
	}{
		{"substring", "pa", nil, []string{"Spain"}},
		{"case sensitive", "spain", nil, []string{}},
		{"keeps selected", "Ita", []string{"Spain"}, []string{"Spain", "Italy"}},
		{"unknown selected dropped", "Ita", []string{"Atlantis"}, []string{"Italy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.SearchRegions(tt.search, tt.selected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := p.SearchCaseTypes("Dea", []string{"Confirmed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Confirmed", "Deaths"}, got)
}

// --- charts ---

func TestLineChart(t *testing.T) {
	p, metrics := newTestPipeline(t, nil, nil)

	chart, err := p.LineChart(context.Background(), fullRange(pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed", "Deaths"},
		Regions:   []string{"Italy", "Spain"},
	}))
	require.NoError(t, err)

	require.Len(t, chart.Data, 4)
	names := make([]string, len(chart.Data))
	for i, tr := range chart.Data {
		names[i] = tr.Name
		assert.Equal(t, pipeline.TraceMode, tr.Mode)
		assert.Len(t, tr.X, 10)
	}
	assert.Equal(t, []string{"Italy (Confirmed)", "Spain (Confirmed)", "Italy (Deaths)", "Spain (Deaths)"}, names)

	want := domain.Series{0, 0, 300, 400, 500, 600, 700, 800, 900, 1000}
	if diff := cmp.Diff(want, chart.Data[0].Y); diff != "" {
		t.Errorf("Italy confirmed mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.Series{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, chart.Data[2].Y)

	assert.Equal(t, pipeline.CasesAxisTitle, chart.Layout.YAxis.Title)
	assert.Nil(t, chart.Layout.YAxis.Range)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRequests.WithLabelValues(pipeline.KindCases, "success")), 0)
}

func TestLineChart_Window(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	chart, err := p.LineChart(context.Background(), pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Spain"},
		Start:     2,
		End:       5,
	})
	require.NoError(t, err)
	require.Len(t, chart.Data, 1)
	assert.Equal(t, []string{"Mar 03", "Mar 04", "Mar 05"}, chart.Data[0].X)
	assert.Equal(t, domain.Series{30, 40, 50}, chart.Data[0].Y)

	chart, err = p.LineChart(context.Background(), pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Spain"},
		Start:     8,
		End:       3,
	})
	require.NoError(t, err)
	assert.Empty(t, chart.Data[0].X)
	assert.Empty(t, chart.Data[0].Y)
}

func TestLineChart_Smooth(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	chart, err := p.LineChart(context.Background(), fullRange(pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Spain"},
		Smooth:    true,
	}))
	require.NoError(t, err)

	// A local linear fit reproduces a straight line.
	y := chart.Data[0].Y
	require.Len(t, y, 10)
	for i, v := range y {
		assert.InDelta(t, float64(10*(i+1)), v, 1e-9)
	}
}

func TestLineChart_Log(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	chart, err := p.LineChart(context.Background(), fullRange(pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Italy"},
		Log:       true,
	}))
	require.NoError(t, err)

	y := chart.Data[0].Y
	assert.True(t, math.IsInf(y[0], -1))
	assert.InDelta(t, math.Log(300), y[2], 1e-12)
}

func TestLineChart_Errors(t *testing.T) {
	p, metrics := newTestPipeline(t, nil, nil)

	_, err := p.LineChart(context.Background(), pipeline.ChartRequest{CaseTypes: []string{"Confirmed"}})
	require.ErrorIs(t, err, domain.ErrNoRegions)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRequests.WithLabelValues(pipeline.KindCases, "empty")), 0)

	_, err = p.LineChart(context.Background(), pipeline.ChartRequest{
		CaseTypes: []string{"Recovered"},
		Regions:   []string{"Spain"},
	})
	require.ErrorIs(t, err, domain.ErrUnknownCaseType)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRequests.WithLabelValues(pipeline.KindCases, "error")), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.LineChart(ctx, pipeline.ChartRequest{CaseTypes: []string{"Confirmed"}, Regions: []string{"Spain"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLineChart_UnknownRegionPolicy(t *testing.T) {
	ds, err := domain.NewDataset(testObservations(), nil)
	require.NoError(t, err)

	lenient := pipeline.New(pipeline.Options{}, nil, discardLogger(), newTestMetrics())
	lenient.SetDataset(ds)
	chart, err := lenient.LineChart(context.Background(), fullRange(pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Atlantis"},
	}))
	require.NoError(t, err)
	assert.Equal(t, make(domain.Series, 10), chart.Data[0].Y)

	strict := pipeline.New(pipeline.Options{
		Extract: domain.ExtractOptions{UnknownRegion: domain.UnknownRegionError},
	}, nil, discardLogger(), newTestMetrics())
	strict.SetDataset(ds)
	_, err = strict.LineChart(context.Background(), fullRange(pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Atlantis"},
	}))
	require.ErrorIs(t, err, domain.ErrUnknownRegion)
}

func TestRatioChart(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	chart, err := p.RatioChart(context.Background(), fullRange(pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Spain", "Italy"},
	}))
	require.NoError(t, err)
	require.Len(t, chart.Data, 2)

	spain := chart.Data[0].Y
	assert.InDelta(t, 0, spain[0], 0)
	assert.InDelta(t, 1, spain[1], 1e-12)
	assert.InDelta(t, 0.5, spain[2], 1e-12)
	assert.InDelta(t, 1.0/9, spain[9], 1e-12)

	italy := chart.Data[1].Y
	assert.Equal(t, domain.Series{0, 0, 0}, italy[:3])
	assert.InDelta(t, 1.0/3, italy[3], 1e-12)

	assert.Equal(t, pipeline.RatioAxisTitle, chart.Layout.YAxis.Title)
	assert.Equal(t, []float64{-0.5, 1.5}, chart.Layout.YAxis.Range)
}

func TestRatioChart_LogRange(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	chart, err := p.RatioChart(context.Background(), fullRange(pipeline.ChartRequest{
		CaseTypes: []string{"Confirmed"},
		Regions:   []string{"Spain"},
		Log:       true,
	}))
	require.NoError(t, err)

	r := chart.Layout.YAxis.Range
	require.Len(t, r, 2)
	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, math.Log(1.5), r[1], 1e-12)
	assert.True(t, math.IsInf(chart.Data[0].Y[0], -1))
}

// --- map ---

func TestMap(t *testing.T) {
	p, metrics := newTestPipeline(t, testPopulation(), nil)

	frame, err := p.Map(context.Background(), "Confirmed", 0, 10)
	require.NoError(t, err)
	require.Len(t, frame.Points, 2)

	spain := frame.Points[0]
	assert.Equal(t, "Spain", spain.Country)
	assert.InDelta(t, 100, spain.NewCases, 0)
	assert.InDelta(t, 200, spain.PerCapita, 1e-9)
	assert.Empty(t, spain.GeoSource)

	frame, err = p.Map(context.Background(), "Confirmed", 5, 10)
	require.NoError(t, err)
	assert.InDelta(t, 50, frame.Points[0].NewCases, 0)
	assert.Equal(t, "Mar 06", frame.From)
	assert.Equal(t, "Mar 10", frame.To)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ChartRequests.WithLabelValues(pipeline.KindMap, "success")), 0)
}

func TestMap_Located(t *testing.T) {
	locator := &mockLocator{results: map[string]domain.LocationResult{
		"Spain": {Lat: 40.2, Lon: -3.6},
	}}
	p, _ := newTestPipeline(t, testPopulation(), locator)

	frame, err := p.Map(context.Background(), "Confirmed", 0, 10)
	require.NoError(t, err)

	assert.Equal(t, "geocoded", frame.Points[0].GeoSource)
	assert.InDelta(t, 40.2, frame.Points[0].Lat, 0)
	assert.Equal(t, "failed", frame.Points[1].GeoSource)
	assert.Zero(t, frame.Points[1].Lat)
}

func TestWarmLocations(t *testing.T) {
	locator := &mockLocator{results: map[string]domain.LocationResult{
		"Spain": {Lat: 40.2, Lon: -3.6, PlaceName: "Spain"},
	}}
	p, _ := newTestPipeline(t, testPopulation(), locator)

	located, err := p.WarmLocations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, located, "Italy fails to locate")

	t.Run("no locator", func(t *testing.T) {
		p, _ := newTestPipeline(t, testPopulation(), nil)
		located, err := p.WarmLocations(context.Background())
		require.NoError(t, err)
		assert.Zero(t, located)
	})

	t.Run("not ready", func(t *testing.T) {
		p := pipeline.New(pipeline.Options{}, locator, discardLogger(), newTestMetrics())
		_, err := p.WarmLocations(context.Background())
		require.ErrorIs(t, err, pipeline.ErrNotReady)
	})
}

func TestMap_Errors(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)
	_, err := p.Map(context.Background(), "Confirmed", 0, 10)
	require.ErrorIs(t, err, pipeline.ErrMapDisabled)

	p, _ = newTestPipeline(t, testPopulation(), nil)
	frame, err := p.Map(context.Background(), "Confirmed", 6, 2)
	require.NoError(t, err, "inverted window is empty, not an error")
	for _, pt := range frame.Points {
		assert.Zero(t, pt.NewCases)
	}

	_, err = p.Map(context.Background(), "Recovered", 0, 10)
	require.ErrorIs(t, err, domain.ErrUnknownCaseType)
}
