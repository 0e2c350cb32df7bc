package domain

import (
	"context"
	"log/slog"
)

// LocateMapPoints adds coordinates to map points. A nil locator leaves the
// points untouched. Lookup failures are logged and mark the point "failed";
// the frame is still served without coordinates for that country.
func LocateMapPoints(ctx context.Context, points []MapPoint, locator Locator, logger *slog.Logger) []MapPoint {
	if locator == nil {
		return points
	}

	out := make([]MapPoint, len(points))
	for i, p := range points {
		if ctx.Err() != nil {
			out[i] = p
			continue
		}

		result, err := locator.Locate(ctx, p.Country)
		if err != nil {
			logger.Warn("locate region failed",
				"country", p.Country,
				"error", err,
			)
			p.GeoSource = "failed"
			out[i] = p
			continue
		}
		if result.Lat == 0 && result.Lon == 0 {
			p.GeoSource = "none"
			out[i] = p
			continue
		}
		p.Lat = result.Lat
		p.Lon = result.Lon
		p.GeoSource = "geocoded"
		out[i] = p
	}
	return out
}
