package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColumns(t *testing.T) {
	df := wide(t, [][]string{
		{"UID", "Admin2", "Province_State", "Combined_Key", "1/22/20"},
		{"84001001", "Autauga", "Alabama", "Autauga, Alabama, US", "0"},
	})

	out, err := NormalizeColumns(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"uid", "admin2", "province_state", "combined_key", "1/22/20"}, out.Names())
	assert.Equal(t, "UID", df.Names()[0], "input frame must not change")
}

func TestDetectStateColumn(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		want    string
		wantErr bool
	}{
		{name: "state", names: []string{"county", "state", "1/22/20"}, want: "state"},
		{name: "province_state", names: []string{"county", "province_state"}, want: "province_state"},
		{name: "state wins over province_state", names: []string{"province_state", "state"}, want: "state"},
		{name: "neither", names: []string{"county", "region"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectStateColumn(tt.names)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrSchema)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistinctStates(t *testing.T) {
	df := wide(t, [][]string{
		{"county", "state", "1/22/20"},
		{"Autauga", "Alabama", "0"},
		{"Ada", "Idaho", "0"},
		{"Baldwin", "Alabama", "0"},
		{"Unassigned", "", "0"},
		{"Out of", "NA", "0"},
	})

	states, err := DistinctStates(df, "state")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alabama", "Idaho"}, states)

	_, err = DistinctStates(df, "province_state")
	require.ErrorIs(t, err, ErrSchema)
}

func TestMeltCases(t *testing.T) {
	df := wide(t, [][]string{
		{"uid", "iso3", "code3", "fips", "county", "state", "lat", "long_", "combined_key", "1/22/20", "1/23/20"},
		{"84001001", "USA", "840", "1001.0", "Autauga", "Alabama", "32.5", "-86.6", "Autauga, Alabama, US", "0", "2"},
		{"84001003", "USA", "840", "1003.0", "Baldwin", "Alabama", "30.7", "-87.7", "Baldwin, Alabama, US", "1", ""},
	})

	lt, err := MeltCases(df, "state")
	require.NoError(t, err)

	assert.Equal(t, MetricCases, lt.Metric)
	assert.Equal(t, []string{ColCounty, "state", ColCountyState}, lt.IDColumns)
	assert.Equal(t, []string{"1/22/20", "1/23/20"}, lt.DateColumns)

	jan22 := time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)
	jan23 := time.Date(2020, 1, 23, 0, 0, 0, 0, time.UTC)
	autauga := Identity{County: "Autauga", State: "Alabama", CountyState: "Autauga, Alabama, US"}
	baldwin := Identity{County: "Baldwin", State: "Alabama", CountyState: "Baldwin, Alabama, US"}
	want := []LongRow{
		{ID: autauga, Date: jan22, Value: 0},
		{ID: baldwin, Date: jan22, Value: 1},
		{ID: autauga, Date: jan23, Value: 2},
		{ID: baldwin, Date: jan23, Value: 0},
	}
	if diff := cmp.Diff(want, lt.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestMeltDeaths(t *testing.T) {
	df := wide(t, [][]string{
		{"fips", "county", "province_state", "late", "long_", "combined_key", "population", "iso3", "2020-01-22"},
		{"1001.0", "Autauga", "Alabama", "32.54", "-86.64", "Autauga, Alabama, US", "55869", "USA", "3.0"},
	})

	lt, err := MeltDeaths(df, "province_state")
	require.NoError(t, err)

	assert.Equal(t, []string{ColFIPS, ColCounty, "province_state", ColLatitude, ColLongitude, ColCountyState}, lt.IDColumns)
	require.Len(t, lt.Rows, 1)
	assert.Equal(t, Identity{
		County:      "Autauga",
		State:       "Alabama",
		CountyState: "Autauga, Alabama, US",
		FIPS:        "1001.0",
		Latitude:    "32.54",
		Longitude:   "-86.64",
	}, lt.Rows[0].ID)
	assert.Equal(t, int64(3), lt.Rows[0].Value)
}

func TestMeltDeathsAcceptsLatAlias(t *testing.T) {
	df := wide(t, [][]string{
		{"county", "state", "lat", "long_", "1/22/20"},
		{"Ada", "Idaho", "43.45", "-116.24", "0"},
	})

	lt, err := MeltDeaths(df, "state")
	require.NoError(t, err)
	assert.Equal(t, "43.45", lt.Rows[0].ID.Latitude)
}

func TestMeltErrors(t *testing.T) {
	tests := []struct {
		name    string
		records [][]string
		wantErr error
	}{
		{
			name:    "non-date value column",
			records: [][]string{{"county", "state", "notes", "1/22/20"}, {"Ada", "Idaho", "x", "0"}},
			wantErr: ErrMalformedDateColumn,
		},
		{
			name:    "missing county",
			records: [][]string{{"state", "1/22/20"}, {"Idaho", "0"}},
			wantErr: ErrSchema,
		},
		{
			name:    "missing state",
			records: [][]string{{"county", "1/22/20"}, {"Ada", "0"}},
			wantErr: ErrSchema,
		},
		{
			name:    "non-numeric count",
			records: [][]string{{"county", "state", "1/22/20"}, {"Ada", "Idaho", "many"}},
			wantErr: ErrSchema,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MeltCases(wide(t, tt.records), "state")
			require.ErrorIs(t, err, tt.wantErr)
			stage, ok := StageOf(err)
			require.True(t, ok)
			assert.Equal(t, StageReshape, stage)
		})
	}
}

func TestParseDateHeader(t *testing.T) {
	want := time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)
	for _, h := range []string{"1/5/21", "01/05/21", "1/5/2021", "2021-01-05", " 1/5/21 "} {
		t.Run(h, func(t *testing.T) {
			got, err := ParseDateHeader(h)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseDateHeader("county_name")
	require.ErrorIs(t, err, ErrMalformedDateColumn)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "42", want: 42},
		{raw: "-3", want: -3},
		{raw: "7.0", want: 7},
		{raw: "2.6", want: 3},
		{raw: "", want: 0},
		{raw: "NA", want: 0},
		{raw: "NaN", want: 0},
		{raw: "n/a", wantErr: true},
		{raw: "Inf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCount(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrSchema)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReshapeRoundTrip(t *testing.T) {
	t.Run("cases", func(t *testing.T) {
		records := [][]string{
			{"county", "state", "county_state", "1/22/20", "1/23/20", "1/24/20"},
			{"Autauga", "Alabama", "Autauga, Alabama, US", "0", "1", "4"},
			{"Ada", "Idaho", "Ada, Idaho, US", "2", "2", "9"},
		}
		lt, err := MeltCases(wide(t, records), "state")
		require.NoError(t, err)

		back, err := Pivot(lt)
		require.NoError(t, err)
		assert.Equal(t, records, back.Records())
	})

	t.Run("deaths", func(t *testing.T) {
		records := [][]string{
			{"fips", "county", "province_state", "latitude", "longitud", "county_state", "2020-03-01"},
			{"1001", "Autauga", "Alabama", "32.54", "-86.64", "Autauga, Alabama, US", "5"},
			{"16001", "Ada", "Idaho", "43.45", "-116.24", "Ada, Idaho, US", "0"},
		}
		lt, err := MeltDeaths(wide(t, records), "province_state")
		require.NoError(t, err)

		back, err := Pivot(lt)
		require.NoError(t, err)
		assert.Equal(t, records, back.Records())
	})
}
