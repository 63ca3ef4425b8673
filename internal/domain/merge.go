package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Merge inner-joins the long cases and deaths tables on (county, state, date).
// Rows present on one side only are dropped. Output follows the order of the
// cases table; duplicate keys keep their first occurrence.
func Merge(cases, deaths LongTable) (*MergedTable, error) {
	t, err := merge(cases, deaths)
	return t, AtStage(StageMerge, err)
}

func merge(cases, deaths LongTable) (*MergedTable, error) {
	if cases.Metric != "" && cases.Metric != MetricCases {
		return nil, fmt.Errorf("merge: %w: left table holds %q, want %q", ErrTypeMismatch, cases.Metric, MetricCases)
	}
	if deaths.Metric != "" && deaths.Metric != MetricDeaths {
		return nil, fmt.Errorf("merge: %w: right table holds %q, want %q", ErrTypeMismatch, deaths.Metric, MetricDeaths)
	}

	right := make(map[observationKey]int, len(deaths.Rows))
	for i := range deaths.Rows {
		r := &deaths.Rows[i]
		if err := checkCalendarDate(r.Date); err != nil {
			return nil, fmt.Errorf("merge deaths: %w", err)
		}
		k := keyOf(r.ID.County, r.ID.State, r.Date)
		if _, dup := right[k]; !dup {
			right[k] = i
		}
	}

	out := &MergedTable{Observations: make([]Observation, 0, len(cases.Rows))}
	emitted := make(map[observationKey]struct{}, len(cases.Rows))
	for _, c := range cases.Rows {
		if err := checkCalendarDate(c.Date); err != nil {
			return nil, fmt.Errorf("merge cases: %w", err)
		}
		k := keyOf(c.ID.County, c.ID.State, c.Date)
		if _, dup := emitted[k]; dup {
			continue
		}
		i, ok := right[k]
		if !ok {
			continue
		}
		emitted[k] = struct{}{}
		out.Observations = append(out.Observations, observationFrom(c, &deaths.Rows[i]))
	}
	return out, nil
}

func observationFrom(c LongRow, d *LongRow) Observation {
	o := Observation{
		County:      c.ID.County,
		State:       c.ID.State,
		CountyState: c.ID.CountyState,
		FIPS:        d.ID.FIPS,
		Date:        c.Date,
		Cases:       c.Value,
		Deaths:      d.Value,
	}
	if o.CountyState == "" {
		o.CountyState = d.ID.CountyState
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(d.ID.Latitude), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(d.ID.Longitude), 64)
	if latErr == nil && lonErr == nil {
		o.Latitude, o.Longitude, o.HasCoordinates = lat, lon, true
	}
	return o
}

func checkCalendarDate(d time.Time) error {
	if d.IsZero() {
		return fmt.Errorf("%w: missing date", ErrTypeMismatch)
	}
	if d.Location() != time.UTC || !d.Equal(d.Truncate(24*time.Hour)) {
		return fmt.Errorf("%w: %s is not a UTC calendar date", ErrTypeMismatch, d)
	}
	return nil
}
