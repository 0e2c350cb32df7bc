package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	"github.com/couchcryptid/covid-dashboard-service/internal/observability"
)

// snapshotBatchSize bounds the messages handed to one publish call.
const snapshotBatchSize = 200

// SnapshotPublisher writes series snapshots to a downstream sink.
type SnapshotPublisher interface {
	PublishSnapshots(ctx context.Context, snapshots []domain.SeriesSnapshot) error
}

// ExportSnapshots publishes one snapshot per country and case type. It runs
// once after load; the first failed batch aborts the export.
func ExportSnapshots(ctx context.Context, ds *domain.Dataset, publisher SnapshotPublisher, logger *slog.Logger, metrics *observability.Metrics) error {
	start := time.Now()

	snapshots, err := domain.BuildSnapshots(ds)
	if err != nil {
		return err
	}

	for from := 0; from < len(snapshots); from += snapshotBatchSize {
		to := min(from+snapshotBatchSize, len(snapshots))
		if err := publisher.PublishSnapshots(ctx, snapshots[from:to]); err != nil {
			return fmt.Errorf("publish snapshots %d-%d of %d: %w", from, to, len(snapshots), err)
		}
		metrics.SnapshotsProduced.Add(float64(to - from))
	}

	logger.Info("snapshots exported",
		"count", len(snapshots),
		"duration", time.Since(start),
	)
	return nil
}
