package render

import (
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

// set2 is the qualitative palette the choropleth classes are drawn from.
var set2 = []string{"#66c2a5", "#fc8d62", "#8da0cb", "#e78ac3", "#a6d854", "#ffd92f", "#e5c494", "#b3b3b3"}

// ClassColor samples the palette evenly for class i of n.
func ClassColor(i, n int) string {
	if n <= 1 || i <= 0 {
		return set2[0]
	}
	if i >= n-1 {
		return set2[len(set2)-1]
	}
	idx := (i*(len(set2)-1) + (n-1)/2) / (n - 1)
	return set2[idx]
}

// ChoroplethGeoJSON builds a feature collection with one feature per region.
// Properties carry the tooltip fields and the fill color of the region class;
// the collection's foreign members describe the legend.
func ChoroplethGeoJSON(c domain.Choropleth, view domain.MapView) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	classes := len(c.Breaks)
	for _, r := range c.Regions {
		f := geojson.NewFeature(r.Geometry)
		f.ID = r.FIPS
		f.Properties["State"] = r.State
		f.Properties["County"] = r.County
		f.Properties["Cases"] = r.Cases
		f.Properties["Deaths"] = r.Deaths
		f.Properties["fips"] = fmt.Sprintf("%05d", r.FIPS)
		f.Properties["class"] = r.Class
		f.Properties["fill"] = ClassColor(r.Class, classes)
		fc.Append(f)
	}

	legend := make([]map[string]any, 0, classes)
	for i, b := range c.Breaks {
		legend = append(legend, map[string]any{
			"upper": b,
			"label": FormatCount(int64(b)),
			"fill":  ClassColor(i, classes),
		})
	}
	fc.ExtraMembers = geojson.Properties{
		"state":  c.State,
		"legend": legend,
		"view":   view,
	}
	if !c.AsOf.IsZero() {
		fc.ExtraMembers["as_of"] = c.AsOf.Format(time.DateOnly)
	}
	return fc
}
