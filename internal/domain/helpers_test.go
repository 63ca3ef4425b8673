package domain

import (
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

var (
	d1 = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
	d3 = time.Date(2020, 3, 3, 0, 0, 0, 0, time.UTC)
	d4 = time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)
)

func wide(t *testing.T, records [][]string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	require.NoError(t, df.Err)
	return df
}

func obs(county, state string, date time.Time, cases, deaths int64) Observation {
	return Observation{
		County:      county,
		State:       state,
		CountyState: county + ", " + state + ", US",
		Date:        date,
		Cases:       cases,
		Deaths:      deaths,
	}
}

func table(rows ...Observation) *MergedTable {
	return &MergedTable{Observations: rows}
}
