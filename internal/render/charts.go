package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

// ErrTooFewPoints is returned when a series cannot span an axis.
var ErrTooFewPoints = errors.New("trend chart needs at least two dates")

// ChartKind selects one of the four trend charts.
type ChartKind string

const (
	ChartNewCases  ChartKind = "new-cases"
	ChartCases     ChartKind = "cases"
	ChartNewDeaths ChartKind = "new-deaths"
	ChartDeaths    ChartKind = "deaths"
)

// ChartKinds lists the trend charts in dashboard order.
var ChartKinds = []ChartKind{ChartNewCases, ChartCases, ChartNewDeaths, ChartDeaths}

type chartDef struct {
	title string
	daily bool
	color drawing.Color
	value func(domain.TrendPoint) int64
}

var chartDefs = map[ChartKind]chartDef{
	ChartNewCases: {
		title: "Daily New Cases", daily: true, color: drawing.ColorFromHex("1f77b4"),
		value: func(p domain.TrendPoint) int64 { return p.NewCases },
	},
	ChartCases: {
		title: "Cumulative Cases", color: drawing.ColorFromHex("1f77b4"),
		value: func(p domain.TrendPoint) int64 { return p.Cases },
	},
	ChartNewDeaths: {
		title: "Daily New Deaths", daily: true, color: drawing.ColorFromHex("d62728"),
		value: func(p domain.TrendPoint) int64 { return p.NewDeaths },
	},
	ChartDeaths: {
		title: "Cumulative Deaths", color: drawing.ColorFromHex("d62728"),
		value: func(p domain.TrendPoint) int64 { return p.Deaths },
	},
}

// ParseChartKind validates a chart kind from a URL.
func ParseChartKind(s string) (ChartKind, bool) {
	k := ChartKind(s)
	_, ok := chartDefs[k]
	return k, ok
}

// Title returns the chart heading.
func (k ChartKind) Title() string {
	return chartDefs[k].title
}

// TrendChart renders one trend chart as PNG. Daily charts are filled to the
// axis; cumulative charts are drawn as lines.
func TrendChart(w io.Writer, kind ChartKind, points []domain.TrendPoint) error {
	def, ok := chartDefs[kind]
	if !ok {
		return fmt.Errorf("unknown chart kind %q", kind)
	}
	if len(points) < 2 {
		return ErrTooFewPoints
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	lo, hi := 0.0, 0.0
	for i, p := range points {
		xs[i] = p.Date
		ys[i] = float64(def.value(p))
		lo = min(lo, ys[i])
		hi = max(hi, ys[i])
	}
	if hi <= lo {
		hi = lo + 1
	}

	style := chart.Style{StrokeColor: def.color, StrokeWidth: 1.5}
	if def.daily {
		style.FillColor = def.color.WithAlpha(160)
		style.StrokeWidth = 0.5
	}

	ch := chart.Chart{
		Title:      def.title,
		TitleStyle: chart.Style{FontSize: 14},
		Width:      700,
		Height:     420,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 2006"),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi * 1.05},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatCount(int64(f))
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: def.title, XValues: xs, YValues: ys, Style: style},
		},
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", kind, err)
	}
	return nil
}
