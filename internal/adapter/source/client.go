package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-dashboard-service/internal/config"
	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
)

// Client loads the case and population files named in the configuration.
// It implements pipeline.ObservationSource and pipeline.PopulationSource.
type Client struct {
	fetcher       *Fetcher
	dataURL       string
	dateLayout    string
	populationURL string
	logger        *slog.Logger
}

// NewClient creates a source client for the configured locations.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		fetcher:       NewFetcher(cfg.FetchTimeout, logger),
		dataURL:       cfg.DataURL,
		dateLayout:    cfg.DataDateFormat,
		populationURL: cfg.PopulationURL,
		logger:        logger,
	}
}

// Observations fetches and parses the case CSV.
func (c *Client) Observations(ctx context.Context) ([]domain.Observation, error) {
	rc, err := c.fetcher.Open(ctx, c.dataURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	obs, err := ParseCases(rc, c.dateLayout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.dataURL, err)
	}
	c.logger.Info("case data parsed", "source", c.dataURL, "rows", len(obs))
	return obs, nil
}

// Population fetches and parses the population CSV. It returns nil without
// error when no population source is configured.
func (c *Client) Population(ctx context.Context) (map[string]float64, error) {
	if c.populationURL == "" {
		return nil, nil
	}

	rc, err := c.fetcher.Open(ctx, c.populationURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	pop, err := ParsePopulation(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.populationURL, err)
	}
	c.logger.Info("population data parsed", "source", c.populationURL, "countries", len(pop))
	return pop, nil
}
