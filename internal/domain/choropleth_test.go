package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func TestFIPSKey(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{in: "1001", want: 1001, ok: true},
		{in: "01001", want: 1001, ok: true},
		{in: "1001.0", want: 1001, ok: true},
		{in: " 48453 ", want: 48453, ok: true},
		{in: "1001.5"},
		{in: ""},
		{in: "NaN"},
		{in: "Autauga"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FIPSKey(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func choroplethTable() *MergedTable {
	withFIPS := func(o Observation, fips string) Observation {
		o.FIPS = fips
		return o
	}
	return table(
		withFIPS(obs("Autauga", "Alabama", d1, 1, 0), "1001.0"),
		withFIPS(obs("Autauga", "Alabama", d2, 10, 1), "1001.0"),
		withFIPS(obs("Baldwin", "Alabama", d2, 50, 3), "1003.0"),
		withFIPS(obs("Barbour", "Alabama", d2, 30, 2), "1005.0"),
		withFIPS(obs("Ada", "Idaho", d2, 70, 4), "16001.0"),
		obs("Unassigned", "Alabama", d2, 5, 0),
	)
}

func TestBuildChoropleth(t *testing.T) {
	geoms := []CountyGeometry{
		{FIPS: "01005", Name: "Barbour", Geometry: square(-85, 31)},
		{FIPS: "16001", Name: "Ada", Geometry: square(-116, 43)},
		{FIPS: "01001", Name: "Autauga", Geometry: square(-87, 32)},
		{FIPS: "01003", Name: "Baldwin", Geometry: square(-88, 30)},
	}

	c := BuildChoropleth(choroplethTable(), geoms, "Alabama", DefaultClasses)

	assert.Equal(t, d2, c.AsOf)
	require.Len(t, c.Regions, 3)
	assert.Equal(t, []string{"Barbour", "Autauga", "Baldwin"},
		[]string{c.Regions[0].County, c.Regions[1].County, c.Regions[2].County}, "geometry order")
	assert.Equal(t, int64(10), c.Regions[1].Cases, "latest date only")
	assert.Equal(t, int64(1005), c.Regions[0].FIPS)
	assert.NotNil(t, c.Regions[0].Geometry)

	require.Len(t, c.Breaks, 5)
	assert.InDelta(t, 18.0, c.Breaks[0], 1e-9)
	assert.InDelta(t, 50.0, c.Breaks[4], 1e-9)
	assert.Equal(t, 2, c.Regions[0].Class)
	assert.Equal(t, 0, c.Regions[1].Class)
	assert.Equal(t, 4, c.Regions[2].Class)
}

func TestBuildChoroplethNoMatches(t *testing.T) {
	geoms := []CountyGeometry{{FIPS: "99999", Geometry: square(0, 0)}}

	c := BuildChoropleth(choroplethTable(), geoms, "Alabama", DefaultClasses)

	assert.Empty(t, c.Regions)
	assert.Nil(t, c.Breaks)
	_, ok := c.Bound()
	assert.False(t, ok)
}

func TestBuildChoroplethUniformCases(t *testing.T) {
	tbl := table(
		Observation{County: "A", State: "Utah", FIPS: "49001", Date: d1, Cases: 3},
		Observation{County: "B", State: "Utah", FIPS: "49003", Date: d1, Cases: 3},
	)
	geoms := []CountyGeometry{
		{FIPS: "49001", Geometry: square(-112, 38)},
		{FIPS: "49003", Geometry: square(-113, 41)},
	}

	c := BuildChoropleth(tbl, geoms, "Utah", 0)

	require.Len(t, c.Regions, 2)
	for _, r := range c.Regions {
		assert.Equal(t, 0, r.Class)
	}

	b, ok := c.Bound()
	require.True(t, ok)
	assert.Equal(t, orb.Point{-113, 38}, b.Min)
	assert.Equal(t, orb.Point{-111, 42}, b.Max)
}

func TestBuildChoroplethEmptyTable(t *testing.T) {
	c := BuildChoropleth(&MergedTable{}, nil, "Utah", DefaultClasses)
	assert.Empty(t, c.Regions)
	assert.True(t, c.AsOf.IsZero())
}
