// Command validate performs data integrity checks on a case file before it is
// served: axis continuity, duplicate rows, negative counts, cumulative
// decreases, and (optionally) population coverage of every country.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -data data/Data_COVID-19.csv.gz \
//	  -population data/WPP2019_TotalPopulation.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/adapter/source"
	"github.com/couchcryptid/covid-dashboard-service/internal/config"
	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
)

// maxReported caps the detail lines printed per phase.
const maxReported = 20

// phase tracks pass/fail for a validation phase. Warnings never fail it.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	data := flag.String("data", config.DefaultDataURL, "case CSV URL or path (gzip detected)")
	dateFormat := flag.String("date-format", "02-01-2006", "Go layout of the Date column")
	population := flag.String("population", "", "population CSV URL or path (optional)")
	strict := flag.Bool("strict", false, "treat cumulative decreases as failures")
	flag.Parse()

	if code := run(*data, *dateFormat, *population, *strict); code != 0 {
		os.Exit(code)
	}
}

func run(dataPath, dateFormat, populationPath string, strict bool) int {
	fmt.Println("=== COVID-19 Case Data Validation ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fetcher := source.NewFetcher(2*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	obs, err := loadCases(ctx, fetcher, dataPath, dateFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load case data: %v\n", err)
		return 1
	}

	var pop map[string]float64
	if populationPath != "" {
		pop, err = loadPopulation(ctx, fetcher, populationPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load population data: %v\n", err)
			return 1
		}
	}

	ds, err := domain.NewDataset(obs, pop)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build dataset: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateAxis(ds.DateAxis()),
		validateUniqueRows(obs),
		validateCounts(obs),
		validateCumulative(ds, strict),
	}
	if pop != nil {
		phases = append(phases, validatePopulation(ds))
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		} else if len(p.warnings) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d warnings)\033[0m", len(p.warnings))
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	axis := ds.DateAxis()
	fmt.Printf("Rows: %d, dates: %d (%s to %s), countries: %d, regions: %d, case types: %v\n",
		ds.Len(), len(axis),
		axis[0].Format(domain.SnapshotDateLayout), axis[len(axis)-1].Format(domain.SnapshotDateLayout),
		len(ds.Countries()), len(ds.Regions()), ds.CaseTypes())

	for _, p := range phases {
		printDetails(p.name, "errors", p.errors)
		printDetails(p.name, "warnings", p.warnings)
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func printDetails(name, kind string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Printf("\n--- %s (%s) ---\n", name, kind)
	for i, l := range lines {
		if i == maxReported {
			fmt.Printf("  ... %d more\n", len(lines)-maxReported)
			break
		}
		fmt.Printf("  [%d] %s\n", i+1, l)
	}
}

// ── Data loading ──

func loadCases(ctx context.Context, fetcher *source.Fetcher, location, dateFormat string) ([]domain.Observation, error) {
	rc, err := fetcher.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return source.ParseCases(rc, dateFormat)
}

func loadPopulation(ctx context.Context, fetcher *source.Fetcher, location string) (map[string]float64, error) {
	rc, err := fetcher.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return source.ParsePopulation(rc)
}

// ── Validation phases ──

func validateAxis(axis domain.DateAxis) *phase {
	p := &phase{name: "Date axis continuity"}
	for i := 1; i < len(axis); i++ {
		if gap := axis[i].Sub(axis[i-1]); gap != 24*time.Hour {
			p.warnf("gap of %s between %s and %s", gap,
				axis[i-1].Format(domain.SnapshotDateLayout), axis[i].Format(domain.SnapshotDateLayout))
		}
	}
	return p
}

type rowKey struct {
	country, province, county, caseType string
	date                                time.Time
}

func validateUniqueRows(obs []domain.Observation) *phase {
	p := &phase{name: "Row uniqueness"}
	seen := make(map[rowKey]int, len(obs))
	for i, o := range obs {
		k := rowKey{o.Country, o.Province, o.County, o.CaseType, o.Date}
		if first, dup := seen[k]; dup {
			p.errorf("row %d duplicates row %d: %s/%s/%s %s %s",
				i+1, first+1, o.Country, o.Province, o.County, o.CaseType, o.Date.Format(domain.SnapshotDateLayout))
			continue
		}
		seen[k] = i
	}
	return p
}

func validateCounts(obs []domain.Observation) *phase {
	p := &phase{name: "Non-negative counts"}
	for i, o := range obs {
		if o.Cases < 0 {
			p.errorf("row %d: %s %s on %s is %d",
				i+1, o.Country, o.CaseType, o.Date.Format(domain.SnapshotDateLayout), o.Cases)
		}
	}
	return p
}

// validateCumulative checks that every national series never decreases.
// Source corrections make small decreases common, so they only warn unless
// strict is set.
func validateCumulative(ds *domain.Dataset, strict bool) *phase {
	p := &phase{name: "Cumulative series monotonicity"}
	report := p.warnf
	if strict {
		report = p.errorf
	}

	axis := ds.DateAxis()
	for _, caseType := range ds.CaseTypes() {
		series, err := domain.Extract(ds, caseType, ds.Countries(), domain.ExtractOptions{})
		if err != nil {
			p.errorf("extract %s: %v", caseType, err)
			continue
		}
		for _, rs := range series {
			for i := 1; i < len(rs.Values); i++ {
				if rs.Values[i] < rs.Values[i-1] {
					report("%s %s drops from %.0f to %.0f on %s",
						rs.Name, caseType, rs.Values[i-1], rs.Values[i], axis[i].Format(domain.SnapshotDateLayout))
				}
			}
		}
	}
	return p
}

func validatePopulation(ds *domain.Dataset) *phase {
	p := &phase{name: "Population coverage"}
	for _, c := range ds.Countries() {
		if domain.IgnoredCountry(c) {
			continue
		}
		if _, ok := ds.Population(c); !ok {
			p.warnf("no population for %q; add a synonym or it is left off the map", c)
		}
	}
	return p
}
