package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportTable() *MergedTable {
	dec30 := time.Date(2020, 12, 30, 0, 0, 0, 0, time.UTC)
	dec31 := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	jan1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	return table(
		obs("Ada", "Idaho", dec30, 0, 0),
		obs("Ada", "Idaho", dec31, 10, 1),
		obs("Ada", "Idaho", jan1, 12, 1),
		obs("Ada", "Idaho", jan2, 20, 2),
		obs("Canyon", "Idaho", dec31, 4, 0),
		obs("Canyon", "Idaho", jan2, 6, 1),
		obs("Travis", "Texas", jan2, 99, 9),
	)
}

func TestBuildReport(t *testing.T) {
	r, err := BuildReport(reportTable(), Selection{Name: "Sam", State: "Idaho"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Idaho COVID-19 Report for Sam", r.Title)
	assert.True(t, r.HasDay0)
	assert.Equal(t, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), r.Day0)
	assert.Equal(t, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), r.AsOf)

	require.Len(t, r.Years, 2)
	assert.Equal(t, 2020, r.Years[0].Year)
	assert.Equal(t, int64(14), r.Years[0].TotalCases)
	assert.Equal(t, int64(26), r.Years[1].TotalCases)
	assert.Equal(t, int64(40), r.TotalCases)
	assert.Equal(t, int64(4), r.TotalDeaths)
}

func TestBuildReportAbsentState(t *testing.T) {
	_, err := BuildReport(reportTable(), Selection{Name: "Sam", State: "Guam"}, nil)

	require.ErrorIs(t, err, ErrEmptySelection)
	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageStats, stage)
}

func TestBuildReportYearWithoutData(t *testing.T) {
	r, err := BuildReport(reportTable(), Selection{State: "Texas"}, []int{2020, 2021})
	require.NoError(t, err)

	assert.True(t, r.Years[0].Empty())
	assert.Equal(t, int64(99), r.TotalCases)

	s := r.Summary()
	assert.Nil(t, s.Years[0].AvgNewCases)
	assert.Nil(t, s.Years[0].Final)
	assert.True(t, s.Years[0].Empty)
	require.NotNil(t, s.Years[1].Final)
	assert.Equal(t, "2021-01-02", *s.Years[1].Final)
}

func TestReportTrend(t *testing.T) {
	r, err := BuildReport(reportTable(), Selection{State: "Idaho"}, nil)
	require.NoError(t, err)

	trend := r.Trend()
	require.Len(t, trend, 4)
	for i := 1; i < len(trend); i++ {
		assert.True(t, trend[i-1].Date.Before(trend[i].Date))
	}

	last := trend[3]
	assert.Equal(t, int64(26), last.Cases)
	assert.Equal(t, int64(3), last.Deaths)
	assert.Equal(t, int64(8), last.NewCases)

	// Each year is differenced on its own, so Jan 1 starts a new series.
	assert.Zero(t, trend[2].NewCases)
}

func TestReportSummary(t *testing.T) {
	r, err := BuildReport(reportTable(), Selection{Name: "Sam", State: "Idaho"}, nil)
	require.NoError(t, err)

	s := r.Summary()
	require.NotNil(t, s.Day0)
	assert.Equal(t, "2020-12-31", *s.Day0)
	assert.Equal(t, "2021-01-02", s.AsOf)
	require.NotNil(t, s.Years[0].AvgNewCases)
	assert.InDelta(t, 10.0, *s.Years[0].AvgNewCases, 1e-9)
}
