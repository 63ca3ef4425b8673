package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// DefaultClasses is the number of equal-interval classes on the map.
const DefaultClasses = 5

// CountyGeometry is one county boundary from the geometry archive.
type CountyGeometry struct {
	FIPS     string
	Name     string
	Geometry orb.Geometry
}

// Region is a county on the choropleth: latest counts joined to geometry.
type Region struct {
	CountyState string
	County      string
	State       string
	FIPS        int64
	Cases       int64
	Deaths      int64
	Geometry    orb.Geometry
	// Class is the equal-interval class of Cases, 0 is lowest.
	Class int
}

// Choropleth is the map view of one state at the table's latest date.
type Choropleth struct {
	State   string
	AsOf    time.Time
	Regions []Region
	// Breaks are the upper bounds of each class.
	Breaks []float64
}

// Bound returns the union of all region bounds.
func (c Choropleth) Bound() (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, r := range c.Regions {
		if r.Geometry == nil {
			continue
		}
		if !found {
			b = r.Geometry.Bound()
			found = true
			continue
		}
		b = b.Union(r.Geometry.Bound())
	}
	return b, found
}

// FIPSKey parses a FIPS code written as an integer, a float ("1001.0") or a
// zero-padded string ("01001").
func FIPSKey(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

type regionKey struct {
	countyState string
	county      string
	fips        int64
	state       string
}

// BuildChoropleth takes the table at its latest date, sums counts per county,
// joins the result to geometry on FIPS equality and keeps the selected state.
// Regions follow geometry order. No matches yield an empty choropleth.
func BuildChoropleth(table *MergedTable, geometry []CountyGeometry, state string, classes int) Choropleth {
	c := Choropleth{State: state}
	if classes <= 0 {
		classes = DefaultClasses
	}
	asOf, ok := table.AsOf()
	if !ok {
		return c
	}
	c.AsOf = asOf

	totals := make(map[regionKey]*Region)
	var order []regionKey
	for i := range table.Observations {
		o := table.Observations[i]
		if !o.Date.Equal(asOf) {
			continue
		}
		fips, ok := FIPSKey(o.FIPS)
		if !ok {
			continue
		}
		k := regionKey{countyState: o.CountyState, county: o.County, fips: fips, state: o.State}
		r, ok := totals[k]
		if !ok {
			r = &Region{CountyState: o.CountyState, County: o.County, State: o.State, FIPS: fips}
			totals[k] = r
			order = append(order, k)
		}
		r.Cases += o.Cases
		r.Deaths += o.Deaths
	}

	byFIPS := make(map[int64][]*Region)
	for _, k := range order {
		byFIPS[k.fips] = append(byFIPS[k.fips], totals[k])
	}

	for _, g := range geometry {
		fips, ok := FIPSKey(g.FIPS)
		if !ok {
			continue
		}
		for _, r := range byFIPS[fips] {
			if r.State != state {
				continue
			}
			joined := *r
			joined.Geometry = g.Geometry
			c.Regions = append(c.Regions, joined)
		}
	}

	c.Breaks = equalIntervalBreaks(c.Regions, classes)
	for i := range c.Regions {
		c.Regions[i].Class = classOf(float64(c.Regions[i].Cases), c.Breaks)
	}
	return c
}

func equalIntervalBreaks(regions []Region, k int) []float64 {
	if len(regions) == 0 {
		return nil
	}
	lo, hi := float64(regions[0].Cases), float64(regions[0].Cases)
	for _, r := range regions[1:] {
		v := float64(r.Cases)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / float64(k)
	breaks := make([]float64, k)
	for i := range breaks {
		breaks[i] = lo + width*float64(i+1)
	}
	breaks[k-1] = hi
	return breaks
}

func classOf(v float64, breaks []float64) int {
	for i, b := range breaks {
		if v <= b {
			return i
		}
	}
	return len(breaks) - 1
}
