package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/render"
)

func newStatesCmd(d deps, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List the selectable states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cmd, d, opts)
			if err != nil {
				return err
			}
			states, err := p.States()
			if err != nil {
				return err
			}
			for _, s := range states {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

type reportOptions struct {
	name      string
	state     string
	xlsx      string
	chartsDir string
}

func newReportCmd(d deps, opts *rootOptions) *cobra.Command {
	ro := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the yearly summary for one state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cmd, d, opts)
			if err != nil {
				return err
			}
			report, err := p.Compute(cmd.Context(), domain.Selection{Name: ro.name, State: ro.state})
			if err != nil {
				return err
			}
			if err := printReport(cmd, report); err != nil {
				return err
			}
			if ro.xlsx != "" {
				if err := writeFile(ro.xlsx, func(f *os.File) error { return render.Workbook(f, report) }); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "workbook written to", ro.xlsx)
			}
			if ro.chartsDir != "" {
				return writeCharts(cmd, ro.chartsDir, report)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ro.name, "name", "", "name shown in the report title")
	cmd.Flags().StringVar(&ro.state, "state", "", "state to report on")
	cmd.Flags().StringVar(&ro.xlsx, "xlsx", "", "also write the report workbook to this path")
	cmd.Flags().StringVar(&ro.chartsDir, "charts-dir", "", "also write the four trend charts as PNG into this directory")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func printReport(cmd *cobra.Command, r domain.Report) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, r.Title)
	fmt.Fprintln(out, "As of:", render.FormatDate(r.AsOf))
	if r.HasDay0 {
		fmt.Fprintln(out, "Day 0:", render.FormatDate(r.Day0))
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range render.Cards(r) {
		fmt.Fprintf(tw, "%s\t%s\n", c.Label, c.Value)
	}
	return tw.Flush()
}

func writeCharts(cmd *cobra.Command, dir string, r domain.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create charts dir: %w", err)
	}
	trend := r.Trend()
	for _, kind := range render.ChartKinds {
		path := filepath.Join(dir, string(kind)+".png")
		err := writeFile(path, func(f *os.File) error { return render.TrendChart(f, kind, trend) })
		if errors.Is(err, render.ErrTooFewPoints) {
			fmt.Fprintln(cmd.ErrOrStderr(), "skipping charts:", err)
			return os.Remove(path)
		}
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "charts written to", dir)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newValidateCmd(d deps, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load every input and report dataset coverage",
		Long: `Loads the case and death tables and the county geometry, merges them,
and prints row counts, the date range and how many counties join to geometry.
Exits non-zero when any stage fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cmd, d, opts)
			if err != nil {
				if stage, ok := domain.StageOf(err); ok {
					return fmt.Errorf("%s stage failed: %w", stage, err)
				}
				return err
			}
			ds, err := p.Dataset()
			if err != nil {
				return err
			}
			return printCoverage(cmd, ds)
		},
	}
}

func printCoverage(cmd *cobra.Command, ds *domain.Dataset) error {
	first, last := dateRange(ds.Table)
	counties := make(map[int64]struct{})
	for _, o := range ds.Table.Observations {
		if k, ok := domain.FIPSKey(o.FIPS); ok {
			counties[k] = struct{}{}
		}
	}
	joined := 0
	for _, g := range ds.Geometry {
		if k, ok := domain.FIPSKey(g.FIPS); ok {
			if _, hit := counties[k]; hit {
				joined++
			}
		}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "dataset\t%s\n", ds.ID)
	fmt.Fprintf(tw, "state column\t%s\n", ds.StateColumn)
	fmt.Fprintf(tw, "states\t%d\n", len(ds.States))
	fmt.Fprintf(tw, "observations\t%s\n", humanize.Comma(int64(ds.Table.Len())))
	fmt.Fprintf(tw, "dates\t%s to %s\n", first.Format(time.DateOnly), last.Format(time.DateOnly))
	fmt.Fprintf(tw, "counties with FIPS\t%s\n", humanize.Comma(int64(len(counties))))
	fmt.Fprintf(tw, "counties joined to geometry\t%s of %s shapes\n",
		humanize.Comma(int64(joined)), humanize.Comma(int64(len(ds.Geometry))))
	return tw.Flush()
}

func dateRange(t *domain.MergedTable) (time.Time, time.Time) {
	var first, last time.Time
	for i, o := range t.Observations {
		if i == 0 || o.Date.Before(first) {
			first = o.Date
		}
		if i == 0 || o.Date.After(last) {
			last = o.Date
		}
	}
	return first, last
}
