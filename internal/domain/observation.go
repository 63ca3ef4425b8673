package domain

import (
	"sort"
	"strconv"
	"time"
)

// Metric names the cumulative count carried by a long table.
type Metric string

const (
	MetricCases  Metric = "cases"
	MetricDeaths Metric = "deaths"
)

// Identity holds the identifier columns of one county row. Fields missing
// from the source are left empty.
type Identity struct {
	County      string
	State       string
	CountyState string
	FIPS        string
	Latitude    string
	Longitude   string
}

// LongRow is one (county, date) cell of a reshaped table.
type LongRow struct {
	ID    Identity
	Date  time.Time
	Value int64
}

// LongTable is the long form of one metric table.
type LongTable struct {
	Metric Metric
	// StateColumn is the detected state column name ("state" or "province_state").
	StateColumn string
	// IDColumns lists the identifier columns present in the wide table, in
	// their canonical (renamed) form and source order.
	IDColumns []string
	// DateColumns holds the source date headers in wide-table order.
	DateColumns []string
	Rows        []LongRow
}

// Observation is one merged (county, state, date) record.
type Observation struct {
	County         string
	State          string
	CountyState    string
	FIPS           string
	Latitude       float64
	Longitude      float64
	HasCoordinates bool
	Date           time.Time
	Cases          int64
	Deaths         int64
}

type observationKey struct {
	county string
	state  string
	date   int64
}

func keyOf(county, state string, date time.Time) observationKey {
	return observationKey{county: county, state: state, date: date.Unix()}
}

// MergedTable is the joined cases/deaths table. It is built once per load and
// never mutated afterwards.
type MergedTable struct {
	Observations []Observation
}

// Len returns the number of observations.
func (t *MergedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Observations)
}

// AsOf returns the latest date in the table.
func (t *MergedTable) AsOf() (time.Time, bool) {
	var latest time.Time
	found := false
	if t == nil {
		return latest, false
	}
	for i := range t.Observations {
		d := t.Observations[i].Date
		if !found || d.After(latest) {
			latest = d
			found = true
		}
	}
	return latest, found
}

// HasState reports whether any observation belongs to state.
func (t *MergedTable) HasState(state string) bool {
	if t == nil {
		return false
	}
	for i := range t.Observations {
		if t.Observations[i].State == state {
			return true
		}
	}
	return false
}

// States returns the sorted distinct states present in the table.
func (t *MergedTable) States() []string {
	seen := make(map[string]struct{})
	for i := range t.Observations {
		if s := t.Observations[i].State; s != "" {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Split projects the merged table back onto its two metric long tables.
func (t *MergedTable) Split() (cases, deaths LongTable) {
	cases = LongTable{Metric: MetricCases, Rows: make([]LongRow, 0, len(t.Observations))}
	deaths = LongTable{Metric: MetricDeaths, Rows: make([]LongRow, 0, len(t.Observations))}
	for i := range t.Observations {
		o := t.Observations[i]
		id := Identity{County: o.County, State: o.State, CountyState: o.CountyState}
		cases.Rows = append(cases.Rows, LongRow{ID: id, Date: o.Date, Value: o.Cases})
		id.FIPS = o.FIPS
		if o.HasCoordinates {
			id.Latitude = strconv.FormatFloat(o.Latitude, 'f', -1, 64)
			id.Longitude = strconv.FormatFloat(o.Longitude, 'f', -1, 64)
		}
		deaths.Rows = append(deaths.Rows, LongRow{ID: id, Date: o.Date, Value: o.Deaths})
	}
	return cases, deaths
}
