package domain

import (
	"math"
	"sort"
	"time"
)

// Delta is a first difference that is undefined on a county's first date.
type Delta struct {
	Value int64
	Valid bool
}

// DailyRow is an observation annotated with its daily increments.
type DailyRow struct {
	Observation
	NewCases  Delta
	NewDeaths Delta
}

// YearStats summarises one state over one calendar year.
type YearStats struct {
	State string
	Year  int
	// Final is the latest date in the selection; totals are taken there.
	Final        time.Time
	TotalCases   int64
	TotalDeaths  int64
	AvgNewCases  float64
	AvgNewDeaths float64
	// Rows are sorted by (county, date).
	Rows []DailyRow
}

// Empty reports whether the selection held no observations.
func (s YearStats) Empty() bool {
	return len(s.Rows) == 0
}

// ComputeYearStats filters the table to one state and year and derives totals
// and average daily increments. The table is not modified.
//
// Totals sum the cumulative counts of the rows at the selection's latest date.
// Daily increments are differenced within each county; a county's first date
// has none. Averages are taken over the dates that carry at least one defined
// increment, and are NaN when no date does.
func ComputeYearStats(table *MergedTable, state string, year int) YearStats {
	stats := YearStats{
		State:        state,
		Year:         year,
		AvgNewCases:  math.NaN(),
		AvgNewDeaths: math.NaN(),
	}
	if table == nil {
		return stats
	}

	for i := range table.Observations {
		o := table.Observations[i]
		if o.State == state && o.Date.Year() == year {
			stats.Rows = append(stats.Rows, DailyRow{Observation: o})
		}
	}
	if len(stats.Rows) == 0 {
		return stats
	}

	sort.SliceStable(stats.Rows, func(i, j int) bool {
		a, b := stats.Rows[i], stats.Rows[j]
		if a.County != b.County {
			return a.County < b.County
		}
		return a.Date.Before(b.Date)
	})

	for i := range stats.Rows {
		if d := stats.Rows[i].Date; d.After(stats.Final) {
			stats.Final = d
		}
		if i == 0 || stats.Rows[i-1].County != stats.Rows[i].County {
			continue
		}
		prev, cur := stats.Rows[i-1], &stats.Rows[i]
		cur.NewCases = Delta{Value: cur.Cases - prev.Cases, Valid: true}
		cur.NewDeaths = Delta{Value: cur.Deaths - prev.Deaths, Valid: true}
	}

	for i := range stats.Rows {
		if r := stats.Rows[i]; r.Date.Equal(stats.Final) {
			stats.TotalCases += r.Cases
			stats.TotalDeaths += r.Deaths
		}
	}

	stats.AvgNewCases = meanOfDailySums(stats.Rows, func(r DailyRow) Delta { return r.NewCases })
	stats.AvgNewDeaths = meanOfDailySums(stats.Rows, func(r DailyRow) Delta { return r.NewDeaths })
	return stats
}

// DailySum is the per-date total of defined increments.
type DailySum struct {
	Date  time.Time
	Value int64
}

// dailySums sums defined deltas per date, skipping dates with none, and
// returns them in date order.
func dailySums(rows []DailyRow, pick func(DailyRow) Delta) []DailySum {
	byDate := make(map[int64]*DailySum)
	for _, r := range rows {
		d := pick(r)
		if !d.Valid {
			continue
		}
		k := r.Date.Unix()
		s, ok := byDate[k]
		if !ok {
			s = &DailySum{Date: r.Date}
			byDate[k] = s
		}
		s.Value += d.Value
	}
	out := make([]DailySum, 0, len(byDate))
	for _, s := range byDate {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func meanOfDailySums(rows []DailyRow, pick func(DailyRow) Delta) float64 {
	sums := dailySums(rows, pick)
	if len(sums) == 0 {
		return math.NaN()
	}
	var total float64
	for _, s := range sums {
		total += float64(s.Value)
	}
	return total / float64(len(sums))
}

// Day0 returns the first date on which state recorded a positive case count.
func Day0(table *MergedTable, state string) (time.Time, bool) {
	var first time.Time
	found := false
	if table == nil {
		return first, false
	}
	for i := range table.Observations {
		o := table.Observations[i]
		if o.State != state || o.Cases <= 0 {
			continue
		}
		if !found || o.Date.Before(first) {
			first = o.Date
			found = true
		}
	}
	return first, found
}
