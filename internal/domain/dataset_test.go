package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataset_Empty(t *testing.T) {
	_, err := NewDataset(nil, nil)
	require.Error(t, err)
}

func TestNewDataset_DateAxis(t *testing.T) {
	rows := []Observation{
		obs("A", "", "", day(3), confirmed, 1),
		obs("A", "", "", day(1).Add(9*time.Hour), confirmed, 1),
		obs("B", "", "", day(1), confirmed, 1),
		obs("B", "", "", day(2), confirmed, 1),
	}

	ds, err := NewDataset(rows, nil)
	require.NoError(t, err)

	assert.Equal(t, DateAxis{day(1), day(2), day(3)}, ds.DateAxis())
	assert.Equal(t, 4, ds.Len())
}

func TestNewDataset_RegionLists(t *testing.T) {
	ds := testDataset(t)

	assert.Equal(t, []string{"A", "B", "China", "Georgia", "US"}, ds.Countries())
	assert.Equal(t, []string{"Hubei", "Beijing", "Georgia"}, ds.Provinces())
	assert.Equal(t, []string{"Fulton"}, ds.Counties())
	assert.Equal(t, []string{"A", "B", "China", "Georgia", "US", "Hubei", "Beijing", "Fulton"}, ds.Regions())
	assert.Equal(t, []string{confirmed, deaths}, ds.CaseTypes())

	assert.True(t, ds.HasCaseType(confirmed))
	assert.False(t, ds.HasCaseType("Recovered"))
}

func TestNewDataset_DoesNotAliasInput(t *testing.T) {
	rows := []Observation{
		obs("A", "", "", day(2), confirmed, 2),
		obs("A", "", "", day(1), confirmed, 1),
	}

	ds, err := NewDataset(rows, nil)
	require.NoError(t, err)

	rows[0].Cases = 999
	result, err := Extract(ds, confirmed, []string{"A"}, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, Series{1, 2}, result[0].Values)
}

func TestNewDataset_LoadedAt(t *testing.T) {
	fixed := time.Date(2020, time.April, 1, 8, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	ds, err := NewDataset([]Observation{obs("A", "", "", day(1), confirmed, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, fixed, ds.LoadedAt())
}

func TestNewDataset_Population(t *testing.T) {
	pop := map[string]float64{"A": 1000}
	ds, err := NewDataset([]Observation{obs("A", "", "", day(1), confirmed, 1)}, pop)
	require.NoError(t, err)

	pop["A"] = 1

	p, ok := ds.Population("A")
	assert.True(t, ok)
	assert.Equal(t, 1000.0, p)

	_, ok = ds.Population("B")
	assert.False(t, ok)
	assert.True(t, ds.HasPopulation())
}

func TestNormalizeCountry(t *testing.T) {
	assert.Equal(t, "Russia", NormalizeCountry("Russian Federation"))
	assert.Equal(t, "US", NormalizeCountry("United States of America"))
	assert.Equal(t, "Spain", NormalizeCountry("Spain"))

	assert.True(t, IgnoredCountry("Cruise Ship"))
	assert.False(t, IgnoredCountry("Italy"))
}
