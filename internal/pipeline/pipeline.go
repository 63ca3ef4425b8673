// Package pipeline loads the case, death and geometry inputs into a merged
// dataset and serves reports and map views from it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
)

// ErrNotLoaded is returned by queries issued before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// TableFetcher retrieves one wide CSV table.
type TableFetcher interface {
	FetchTable(ctx context.Context, name, url string) (dataframe.DataFrame, error)
}

// GeometryReader reads county boundaries from a local archive.
type GeometryReader interface {
	ReadGeometry(ctx context.Context, path string) ([]domain.CountyGeometry, error)
}

// SummaryPublisher forwards computed reports to downstream consumers.
type SummaryPublisher interface {
	PublishReport(ctx context.Context, report domain.Report) error
}

// Sources locates the three inputs of a load.
type Sources struct {
	CasesURL     string
	DeathsURL    string
	GeometryPath string
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithPublisher publishes every computed report.
func WithPublisher(pub SummaryPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithGeocoder centres maps on the geocoded state when no county matched.
func WithGeocoder(g domain.Geocoder) Option {
	return func(p *Pipeline) { p.geocoder = g }
}

// WithYears sets the calendar years each report covers.
func WithYears(years ...int) Option {
	return func(p *Pipeline) {
		if len(years) > 0 {
			p.years = years
		}
	}
}

// Pipeline owns the loaded dataset. Loads are serialized; queries read the
// current dataset without locking.
type Pipeline struct {
	fetcher   TableFetcher
	geometry  GeometryReader
	sources   Sources
	publisher SummaryPublisher
	geocoder  domain.Geocoder
	years     []int
	logger    *slog.Logger
	metrics   *observability.Metrics

	loadMu  sync.Mutex
	dataset atomic.Pointer[domain.Dataset]
}

// New creates a Pipeline reading from src.
func New(f TableFetcher, g GeometryReader, src Sources, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  f,
		geometry: g,
		sources:  src,
		years:    domain.DefaultYears,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a dataset has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.dataset.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}

// Dataset returns the currently served dataset.
func (p *Pipeline) Dataset() (*domain.Dataset, error) {
	ds := p.dataset.Load()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	return ds, nil
}

// Years returns the configured report years.
func (p *Pipeline) Years() []int {
	return p.years
}

// Load fetches all inputs, reshapes and merges them, and publishes the result
// as the served dataset. On failure the previous dataset stays in place and
// the error carries the failing stage.
func (p *Pipeline) Load(ctx context.Context) (*domain.Dataset, error) {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	start := time.Now()
	ds, err := p.load(ctx)
	p.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		stage, _ := domain.StageOf(err)
		p.metrics.Loads.WithLabelValues("error").Inc()
		p.metrics.StageFailures.WithLabelValues(string(stage)).Inc()
		p.logger.Error("dataset load failed", "stage", stage, "error", err)
		return nil, err
	}

	p.dataset.Store(ds)
	p.metrics.Loads.WithLabelValues("success").Inc()
	p.metrics.MergedObservations.Set(float64(ds.Table.Len()))
	p.logger.Info("dataset loaded",
		"dataset_id", ds.ID,
		"observations", ds.Table.Len(),
		"states", len(ds.States),
		"counties_with_geometry", len(ds.Geometry),
		"duration", time.Since(start),
	)
	return ds, nil
}

func (p *Pipeline) load(ctx context.Context) (*domain.Dataset, error) {
	cases, err := p.fetchNormalized(ctx, string(domain.MetricCases), p.sources.CasesURL)
	if err != nil {
		return nil, domain.AtStage(domain.StageLoad, err)
	}
	stateCol, err := domain.DetectStateColumn(cases.Names())
	if err != nil {
		return nil, domain.AtStage(domain.StageLoad, fmt.Errorf("cases table: %w", err))
	}
	states, err := domain.DistinctStates(cases, stateCol)
	if err != nil {
		return nil, domain.AtStage(domain.StageLoad, err)
	}
	p.logger.Debug("cases table loaded", "state_column", stateCol, "rows", cases.Nrow(), "columns", cases.Ncol())

	deaths, err := p.fetchNormalized(ctx, string(domain.MetricDeaths), p.sources.DeathsURL)
	if err != nil {
		return nil, domain.AtStage(domain.StageLoad, err)
	}
	if !hasColumn(deaths.Names(), stateCol) {
		return nil, domain.AtStage(domain.StageLoad,
			fmt.Errorf("deaths table: %w: state column %q not found", domain.ErrSchema, stateCol))
	}

	geometry, err := p.geometry.ReadGeometry(ctx, p.sources.GeometryPath)
	if err != nil {
		return nil, domain.AtStage(domain.StageLoad, err)
	}

	longCases, err := domain.MeltCases(cases, stateCol)
	if err != nil {
		return nil, err
	}
	longDeaths, err := domain.MeltDeaths(deaths, stateCol)
	if err != nil {
		return nil, err
	}

	merged, err := domain.Merge(longCases, longDeaths)
	if err != nil {
		return nil, err
	}
	return domain.NewDataset(stateCol, states, merged, geometry), nil
}

func (p *Pipeline) fetchNormalized(ctx context.Context, name, url string) (dataframe.DataFrame, error) {
	df, err := p.fetcher.FetchTable(ctx, name, url)
	if err != nil {
		return df, err
	}
	return domain.NormalizeColumns(df)
}

// States returns the selectable states of the served dataset.
func (p *Pipeline) States() ([]string, error) {
	ds, err := p.Dataset()
	if err != nil {
		return nil, err
	}
	return ds.States, nil
}

// Report computes the yearly summary for sel and hands it to the publisher,
// if any. Publishing failures are logged and do not fail the report.
func (p *Pipeline) Report(ctx context.Context, sel domain.Selection) (domain.Report, error) {
	report, err := p.Compute(ctx, sel)
	if err != nil {
		return report, err
	}
	if p.publisher != nil {
		if err := p.publisher.PublishReport(ctx, report); err != nil {
			p.logger.Warn("publish report summary failed", "state", sel.State, "error", err)
		}
	}
	return report, nil
}

// Compute builds the report for sel without publishing it. Charts and
// exports derived from an already published report use this.
func (p *Pipeline) Compute(_ context.Context, sel domain.Selection) (domain.Report, error) {
	ds, err := p.Dataset()
	if err != nil {
		return domain.Report{}, err
	}

	start := time.Now()
	report, err := domain.BuildReport(ds.Table, sel, p.years)
	if err != nil {
		if !errors.Is(err, domain.ErrEmptySelection) {
			p.metrics.StageFailures.WithLabelValues(string(domain.StageStats)).Inc()
		}
		return domain.Report{}, err
	}
	p.metrics.Reports.Inc()
	p.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	return report, nil
}

// Choropleth builds the latest-date map of state and picks its viewport.
func (p *Pipeline) Choropleth(ctx context.Context, state string) (domain.Choropleth, domain.MapView, error) {
	ds, err := p.Dataset()
	if err != nil {
		return domain.Choropleth{}, domain.MapView{}, err
	}
	if !ds.Table.HasState(state) {
		return domain.Choropleth{}, domain.MapView{}, domain.AtStage(domain.StageStats,
			fmt.Errorf("choropleth for %q: %w", state, domain.ErrEmptySelection))
	}

	c := domain.BuildChoropleth(ds.Table, ds.Geometry, state, domain.DefaultClasses)
	if len(c.Regions) == 0 {
		p.logger.Info("no counties matched geometry", "state", state)
	}
	return c, domain.CenterMap(ctx, c, p.geocoder, p.logger), nil
}

func hasColumn(names []string, col string) bool {
	for _, n := range names {
		if n == col {
			return true
		}
	}
	return false
}
