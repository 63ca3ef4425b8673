// Package render turns computed reports and choropleths into the artefacts
// the dashboard serves: metric cards, PNG trend charts, GeoJSON and XLSX.
package render

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

// DateLayout is the display format for report dates.
const DateLayout = "January 02, 2006"

// FormatCount renders a count with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatAverage renders an average with two decimals, or "n/a" when undefined.
func FormatAverage(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return humanize.CommafWithDigits(math.Round(f*100)/100, 2)
}

// FormatDate renders d as "March 01, 2020".
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Card is one headline metric.
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Cards lists the headline metrics of a report: four per year, then the
// totals across all years.
func Cards(r domain.Report) []Card {
	cards := make([]Card, 0, 4*len(r.Years)+2)
	for _, ys := range r.Years {
		cards = append(cards,
			Card{Label: fmt.Sprintf("%d Total Cases", ys.Year), Value: FormatCount(ys.TotalCases)},
			Card{Label: fmt.Sprintf("%d Avg Daily Cases", ys.Year), Value: FormatAverage(ys.AvgNewCases)},
			Card{Label: fmt.Sprintf("%d Total Deaths", ys.Year), Value: FormatCount(ys.TotalDeaths)},
			Card{Label: fmt.Sprintf("%d Avg Daily Deaths", ys.Year), Value: FormatAverage(ys.AvgNewDeaths)},
		)
	}
	span := yearSpan(r.Years)
	cards = append(cards,
		Card{Label: "Total Cases" + span, Value: FormatCount(r.TotalCases)},
		Card{Label: "Total Deaths" + span, Value: FormatCount(r.TotalDeaths)},
	)
	return cards
}

func yearSpan(years []domain.YearStats) string {
	switch len(years) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(" (%d)", years[0].Year)
	}
	return fmt.Sprintf(" (%d-%d)", years[0].Year, years[len(years)-1].Year)
}
