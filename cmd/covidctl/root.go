package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/covid-dashboard/internal/adapter/shapefile"
	"github.com/couchcryptid/covid-dashboard/internal/adapter/source"
	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
)

// deps builds the collaborators a command loads through.
type deps struct {
	config   func() (*config.Config, error)
	fetcher  func(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) pipeline.TableFetcher
	geometry func(logger *slog.Logger) pipeline.GeometryReader
}

func defaultDeps() deps {
	return deps{
		config: config.Load,
		fetcher: func(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) pipeline.TableFetcher {
			return source.NewFetcher(cfg.FetchTimeout, logger, metrics)
		},
		geometry: func(logger *slog.Logger) pipeline.GeometryReader {
			return shapefile.NewReader(logger)
		},
	}
}

type rootOptions struct {
	verbose bool
}

func newRootCmd(d deps) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "covidctl",
		Short:         "Inspect the COVID-19 county dataset from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	cmd.AddCommand(
		newStatesCmd(d, opts),
		newReportCmd(d, opts),
		newValidateCmd(d, opts),
	)
	return cmd
}

// loadPipeline reads the environment config and loads the dataset once.
func loadPipeline(cmd *cobra.Command, d deps, opts *rootOptions) (*pipeline.Pipeline, error) {
	cfg, err := d.config()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(
		d.fetcher(cfg, logger, metrics),
		d.geometry(logger),
		pipeline.Sources{CasesURL: cfg.CasesURL, DeathsURL: cfg.DeathsURL, GeometryPath: cfg.GeometryPath},
		logger,
		metrics,
		pipeline.WithYears(cfg.ReportYears...),
	)
	if _, err := p.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return p, nil
}
