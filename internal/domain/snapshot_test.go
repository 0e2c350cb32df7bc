package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshots(t *testing.T) {
	fixed := time.Date(2020, time.April, 2, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	ds := testDataset(t)

	snaps, err := BuildSnapshots(ds)
	require.NoError(t, err)

	// 5 countries x 2 case types
	require.Len(t, snaps, 10)

	first := snaps[0]
	assert.Equal(t, "A", first.Region)
	assert.Equal(t, confirmed, first.CaseType)
	assert.Equal(t, []string{"2020-03-01", "2020-03-02", "2020-03-03"}, first.Dates)
	assert.Equal(t, Series{10, 15, 0}, first.Values)
	assert.Equal(t, fixed, first.LoadedAt)
	assert.Equal(t, fixed, first.GeneratedAt)
	assert.Equal(t, "Confirmed|A", first.Key())

	us := snaps[4]
	assert.Equal(t, "US", us.Region)
	assert.Equal(t, Series{40, 50, 69}, us.Values)

	assert.Equal(t, deaths, snaps[5].CaseType)
}
