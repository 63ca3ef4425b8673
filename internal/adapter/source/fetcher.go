// Package source fetches the published case and death tables over HTTP.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
)

const (
	breakerFailureThreshold = 3
	breakerOpenTimeout      = 30 * time.Second
)

// Fetcher downloads CSV tables and decodes them into wide DataFrames. Each
// named source sits behind its own circuit breaker.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[dataframe.DataFrame]
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[dataframe.DataFrame]),
	}
}

// FetchTable GETs url and parses the body as a CSV table with a header row.
// Every cell is kept as text. Any failure wraps domain.ErrSourceUnavailable.
func (f *Fetcher) FetchTable(ctx context.Context, name, url string) (dataframe.DataFrame, error) {
	df, err := f.breaker(name).Execute(func() (dataframe.DataFrame, error) {
		return f.fetch(ctx, name, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			f.logger.Warn("source circuit open", "source", name, "error", err)
		}
		return dataframe.DataFrame{}, fmt.Errorf("fetch %s: %w: %w", name, domain.ErrSourceUnavailable, err)
	}
	f.logger.Debug("source fetched", "source", name, "rows", df.Nrow(), "columns", df.Ncol())
	return df, nil
}

func (f *Fetcher) fetch(ctx context.Context, name, url string) (dataframe.DataFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%s request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dataframe.DataFrame{}, fmt.Errorf("%s: status %d: %s", name, resp.StatusCode, body)
	}

	df := dataframe.ReadCSV(resp.Body,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("decode %s csv: %w", name, df.Err)
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("decode %s csv: no rows", name)
	}
	return df, nil
}

func (f *Fetcher) breaker(name string) *gobreaker.CircuitBreaker[dataframe.DataFrame] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[name]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[dataframe.DataFrame](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		// A caller giving up says nothing about the source.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Info("source circuit state changed", "source", name, "from", from.String(), "to", to.String())
			f.metrics.SourceBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	f.breakers[name] = cb
	f.metrics.SourceBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return cb
}
