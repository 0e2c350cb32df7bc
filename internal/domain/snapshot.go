package domain

import (
	"fmt"
	"time"
)

// SnapshotDateLayout is the ISO layout used for snapshot dates.
const SnapshotDateLayout = "2006-01-02"

// SeriesSnapshot is the exported form of one country series, published once
// after the dataset loads.
type SeriesSnapshot struct {
	Region      string    `json:"region"`
	CaseType    string    `json:"case_type"`
	Dates       []string  `json:"dates"`
	Values      Series    `json:"values"`
	LoadedAt    time.Time `json:"loaded_at"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Key identifies a snapshot on the wire: "<case type>|<region>".
func (s SeriesSnapshot) Key() string {
	return s.CaseType + "|" + s.Region
}

// BuildSnapshots extracts every country for every case type, in dataset order.
func BuildSnapshots(ds *Dataset) ([]SeriesSnapshot, error) {
	dates := make([]string, len(ds.DateAxis()))
	for i, d := range ds.DateAxis() {
		dates[i] = d.Format(SnapshotDateLayout)
	}

	now := clock.Now()
	snapshots := make([]SeriesSnapshot, 0, len(ds.Countries())*len(ds.CaseTypes()))
	for _, caseType := range ds.CaseTypes() {
		series, err := Extract(ds, caseType, ds.Countries(), ExtractOptions{Match: MatchPrecedence})
		if err != nil {
			return nil, fmt.Errorf("build snapshots for %q: %w", caseType, err)
		}
		for _, rs := range series {
			snapshots = append(snapshots, SeriesSnapshot{
				Region:      rs.Name,
				CaseType:    caseType,
				Dates:       dates,
				Values:      rs.Values,
				LoadedAt:    ds.LoadedAt(),
				GeneratedAt: now,
			})
		}
	}
	return snapshots, nil
}
