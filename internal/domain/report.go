package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultYears are the calendar years reported when none are configured.
var DefaultYears = []int{2020, 2021}

// Selection is the user's input: a display name and a state.
type Selection struct {
	Name  string `json:"name"`
	State string `json:"state" validate:"required"`
}

// Report is the computed summary for one selection.
type Report struct {
	Name        string
	State       string
	Title       string
	Day0        time.Time
	HasDay0     bool
	AsOf        time.Time
	Years       []YearStats
	TotalCases  int64
	TotalDeaths int64
}

// BuildReport computes per-year statistics for the selected state plus their
// sum. A state with no observations at all fails with ErrEmptySelection; a
// year without observations yields an empty YearStats.
func BuildReport(table *MergedTable, sel Selection, years []int) (Report, error) {
	if len(years) == 0 {
		years = DefaultYears
	}
	if table == nil || !table.HasState(sel.State) {
		return Report{}, AtStage(StageStats, fmt.Errorf("build report for %q: %w", sel.State, ErrEmptySelection))
	}

	r := Report{
		Name:  sel.Name,
		State: sel.State,
		Title: fmt.Sprintf("%s COVID-19 Report for %s", sel.State, sel.Name),
		Years: make([]YearStats, 0, len(years)),
	}
	r.Day0, r.HasDay0 = Day0(table, sel.State)
	r.AsOf, _ = table.AsOf()
	for _, y := range years {
		ys := ComputeYearStats(table, sel.State, y)
		r.TotalCases += ys.TotalCases
		r.TotalDeaths += ys.TotalDeaths
		r.Years = append(r.Years, ys)
	}
	return r, nil
}

// TrendPoint is one date of the combined trend series.
type TrendPoint struct {
	Date      time.Time `json:"date"`
	NewCases  int64     `json:"new_cases"`
	Cases     int64     `json:"cases"`
	NewDeaths int64     `json:"new_deaths"`
	Deaths    int64     `json:"deaths"`
}

// Trend sums the report's daily rows across all years per date. Undefined
// increments contribute nothing to a date's sum.
func (r Report) Trend() []TrendPoint {
	byDate := make(map[int64]*TrendPoint)
	for _, ys := range r.Years {
		for _, row := range ys.Rows {
			k := row.Date.Unix()
			p, ok := byDate[k]
			if !ok {
				p = &TrendPoint{Date: row.Date}
				byDate[k] = p
			}
			p.Cases += row.Cases
			p.Deaths += row.Deaths
			if row.NewCases.Valid {
				p.NewCases += row.NewCases.Value
			}
			if row.NewDeaths.Valid {
				p.NewDeaths += row.NewDeaths.Value
			}
		}
	}
	out := make([]TrendPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// YearSummary is the serialisable form of YearStats. Undefined averages are nil.
type YearSummary struct {
	Year         int      `json:"year"`
	Final        *string  `json:"final_date"`
	TotalCases   int64    `json:"total_cases"`
	TotalDeaths  int64    `json:"total_deaths"`
	AvgNewCases  *float64 `json:"avg_new_cases"`
	AvgNewDeaths *float64 `json:"avg_new_deaths"`
	Empty        bool     `json:"empty"`
}

// ReportSummary is the serialisable form of a Report without daily rows.
type ReportSummary struct {
	Name        string        `json:"name"`
	State       string        `json:"state"`
	Title       string        `json:"title"`
	Day0        *string       `json:"day_0"`
	AsOf        string        `json:"as_of"`
	Years       []YearSummary `json:"years"`
	TotalCases  int64         `json:"total_cases"`
	TotalDeaths int64         `json:"total_deaths"`
}

// Summary flattens the report for JSON encoding. Dates use YYYY-MM-DD.
func (r Report) Summary() ReportSummary {
	s := ReportSummary{
		Name:        r.Name,
		State:       r.State,
		Title:       r.Title,
		AsOf:        r.AsOf.Format(time.DateOnly),
		Years:       make([]YearSummary, 0, len(r.Years)),
		TotalCases:  r.TotalCases,
		TotalDeaths: r.TotalDeaths,
	}
	if r.HasDay0 {
		d := r.Day0.Format(time.DateOnly)
		s.Day0 = &d
	}
	for _, ys := range r.Years {
		y := YearSummary{
			Year:         ys.Year,
			TotalCases:   ys.TotalCases,
			TotalDeaths:  ys.TotalDeaths,
			AvgNewCases:  finite(ys.AvgNewCases),
			AvgNewDeaths: finite(ys.AvgNewDeaths),
			Empty:        ys.Empty(),
		}
		if !ys.Empty() {
			f := ys.Final.Format(time.DateOnly)
			y.Final = &f
		}
		s.Years = append(s.Years, y)
	}
	return s
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
