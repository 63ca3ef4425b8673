package render

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

const (
	summarySheet = "Summary"
	dailySheet   = "Daily"
)

// Workbook writes the report as an XLSX file with a yearly summary sheet and
// a daily trend sheet.
func Workbook(w io.Writer, r domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, r); err != nil {
		return err
	}
	if _, err := f.NewSheet(dailySheet); err != nil {
		return fmt.Errorf("add daily sheet: %w", err)
	}
	if err := writeDaily(f, r.Trend()); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r domain.Report) error {
	rows := [][]any{
		{r.Title},
		{"As of", dateCell(r.AsOf, true)},
		{"Day 0", dateCell(r.Day0, r.HasDay0)},
		{},
		{"Year", "Final date", "Total cases", "Total deaths", "Avg new cases", "Avg new deaths"},
	}
	for _, ys := range r.Years {
		rows = append(rows, []any{
			ys.Year,
			dateCell(ys.Final, !ys.Empty()),
			ys.TotalCases,
			ys.TotalDeaths,
			averageCell(ys.AvgNewCases),
			averageCell(ys.AvgNewDeaths),
		})
	}
	rows = append(rows, []any{"Total", nil, r.TotalCases, r.TotalDeaths})
	return writeRows(f, summarySheet, rows)
}

func writeDaily(f *excelize.File, trend []domain.TrendPoint) error {
	rows := make([][]any, 0, len(trend)+1)
	rows = append(rows, []any{"Date", "New cases", "Cases", "New deaths", "Deaths"})
	for _, p := range trend {
		rows = append(rows, []any{p.Date.Format(time.DateOnly), p.NewCases, p.Cases, p.NewDeaths, p.Deaths})
	}
	return writeRows(f, dailySheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func dateCell(d time.Time, ok bool) any {
	if !ok || d.IsZero() {
		return nil
	}
	return d.Format(time.DateOnly)
}

func averageCell(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return math.Round(f*100) / 100
}
