package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	"github.com/couchcryptid/covid-dashboard-service/internal/observability"
)

// ObservationSource yields the parsed case rows.
type ObservationSource interface {
	Observations(ctx context.Context) ([]domain.Observation, error)
}

// PopulationSource yields inhabitants per case-data country. A nil map means
// no population data is configured.
type PopulationSource interface {
	Population(ctx context.Context) (map[string]float64, error)
}

// LoadDataset fetches both sources and builds the dataset. Any error in the
// case data fails the load. A population failure only disables the map.
func LoadDataset(ctx context.Context, cases ObservationSource, population PopulationSource, logger *slog.Logger, metrics *observability.Metrics) (*domain.Dataset, error) {
	start := time.Now()

	obs, err := cases.Observations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load case data: %w", err)
	}

	var pop map[string]float64
	if population != nil {
		pop, err = population.Population(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("load population data: %w", ctx.Err())
			}
			logger.Warn("population load failed, map disabled", "error", err)
			pop = nil
		}
	}

	ds, err := domain.NewDataset(obs, pop)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}

	elapsed := time.Since(start)
	metrics.DatasetLoadDuration.Observe(elapsed.Seconds())
	logger.Info("dataset loaded",
		"rows", ds.Len(),
		"dates", len(ds.DateAxis()),
		"regions", len(ds.Regions()),
		"case_types", ds.CaseTypes(),
		"population", ds.HasPopulation(),
		"duration", elapsed,
	)
	return ds, nil
}
