// Command extract runs the series reshaping pipeline against a case file and
// prints the result as JSON. It is the command-line twin of the dashboard
// chart endpoints and uses the same domain package.
//
// Usage:
//
//	go run ./cmd/extract \
//	  -data data/Data_COVID-19.csv.gz \
//	  -case-type Confirmed \
//	  -region Spain -region Italy \
//	  -start 30 -end 90 -smooth -ratio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/adapter/source"
	"github.com/couchcryptid/covid-dashboard-service/internal/config"
	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	data       string
	dateFormat string
	caseType   string
	regions    stringList
	start      int
	end        int
	smooth     bool
	fraction   float64
	ratio      bool
	logScale   bool
	match      string
	unknown    string
	out        string
}

// seriesOutput is one extracted region. Non-finite values print as null.
type seriesOutput struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

type output struct {
	CaseType string         `json:"case_type"`
	Dates    []string       `json:"dates"`
	Series   []seriesOutput `json:"series"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.data, "data", config.DefaultDataURL, "case CSV URL or path (gzip detected)")
	flag.StringVar(&opts.dateFormat, "date-format", "02-01-2006", "Go layout of the Date column")
	flag.StringVar(&opts.caseType, "case-type", "Confirmed", "case type to extract")
	flag.Var(&opts.regions, "region", "region name; repeat for several")
	flag.IntVar(&opts.start, "start", 0, "first axis position (inclusive)")
	flag.IntVar(&opts.end, "end", math.MaxInt, "last axis position (exclusive)")
	flag.BoolVar(&opts.smooth, "smooth", false, "apply LOWESS smoothing")
	flag.Float64Var(&opts.fraction, "fraction", domain.DefaultSmoothFraction, "LOWESS fraction in (0, 1]")
	flag.BoolVar(&opts.ratio, "ratio", false, "output the one-day change ratio")
	flag.BoolVar(&opts.logScale, "log", false, "apply the natural log last")
	flag.StringVar(&opts.match, "match", string(domain.MatchPrecedence), "region match policy: precedence or legacy")
	flag.StringVar(&opts.unknown, "unknown-region", string(domain.UnknownRegionZero), "unknown region policy: zero or error")
	flag.StringVar(&opts.out, "out", "", "output file (default stdout)")
	flag.Parse()

	if len(opts.regions) == 0 {
		flag.Usage()
		return fmt.Errorf("missing required flag: -region")
	}

	match, err := domain.ParseMatchPolicy(opts.match)
	if err != nil {
		return err
	}
	unknown, err := domain.ParseUnknownRegionPolicy(opts.unknown)
	if err != nil {
		return err
	}

	ds, err := loadDataset(opts.data, opts.dateFormat)
	if err != nil {
		return err
	}
	log.Printf("loaded %d rows, %d dates, %d regions", ds.Len(), len(ds.DateAxis()), len(ds.Regions()))

	series, err := domain.Extract(ds, opts.caseType, opts.regions, domain.ExtractOptions{
		Match:         match,
		UnknownRegion: unknown,
	})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	labels := ds.DateAxis().Labels()
	result := output{CaseType: opts.caseType}
	for i := range labels {
		if i >= opts.start && i < opts.end {
			result.Dates = append(result.Dates, labels[i])
		}
	}

	for _, rs := range series {
		values, err := reshape(rs.Values, opts)
		if err != nil {
			return fmt.Errorf("reshape %s: %w", rs.Name, err)
		}
		result.Series = append(result.Series, seriesOutput{Name: rs.Name, Values: nullable(values)})
	}

	return writeJSON(opts.out, result)
}

func loadDataset(location, dateFormat string) (*domain.Dataset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fetcher := source.NewFetcher(2*time.Minute, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	rc, err := fetcher.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	obs, err := source.ParseCases(rc, dateFormat)
	if err != nil {
		return nil, err
	}
	return domain.NewDataset(obs, nil)
}

func reshape(s domain.Series, opts options) (domain.Series, error) {
	s = domain.Window(s, opts.start, opts.end)
	if opts.smooth {
		var err error
		if s, err = domain.Smooth(s, opts.fraction); err != nil {
			return nil, err
		}
	}
	if opts.ratio {
		s = domain.ChangeRatio(s)
	}
	if opts.logScale {
		s = domain.Log(s)
	}
	return s, nil
}

func nullable(s domain.Series) []*float64 {
	out := make([]*float64, len(s))
	for i := range s {
		if math.IsNaN(s[i]) || math.IsInf(s[i], 0) {
			continue
		}
		out[i] = &s[i]
	}
	return out
}

func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
