package domain

import "context"

// LocationResult contains coordinates returned by a geocoding provider.
type LocationResult struct {
	Lat        float64
	Lon        float64
	PlaceName  string
	Confidence float64 // 0.0–1.0 provider confidence score
}

// Locator resolves a region name to coordinates for map markers.
type Locator interface {
	Locate(ctx context.Context, region string) (LocationResult, error)
}
