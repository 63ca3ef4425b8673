package source

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
)

const casesCSV = `UID,Admin2,State,Combined_Key,1/22/20,1/23/20
84001001,Autauga,Alabama,"Autauga, Alabama, US",0,1
84016001,Ada,Idaho,"Ada, Idaho, US",2,NaN
`

func newTestFetcher() *Fetcher {
	return NewFetcher(2*time.Second, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())
}

func TestFetchTable_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cases.csv", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(casesCSV))
	}))
	defer srv.Close()

	df, err := newTestFetcher().FetchTable(context.Background(), "cases", srv.URL+"/cases.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"UID", "Admin2", "State", "Combined_Key", "1/22/20", "1/23/20"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []string{"Autauga, Alabama, US", "Ada, Idaho, US"}, df.Col("Combined_Key").Records())
	assert.Equal(t, "84001001", df.Col("UID").Records()[0], "cells stay text")
}

func TestFetchTable_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.NotFound(w, nil)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name: "header only",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("county,state,1/22/20\n"))
			},
		},
		{
			name: "ragged rows",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("county,state\nAda,Idaho,extra\n"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestFetcher().FetchTable(context.Background(), "cases", srv.URL)
			require.ErrorIs(t, err, domain.ErrSourceUnavailable)
		})
	}
}

func TestFetchTable_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestFetcher().FetchTable(context.Background(), "deaths", url)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetchTable_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher()
	for range breakerFailureThreshold {
		_, err := f.FetchTable(context.Background(), "cases", srv.URL)
		require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	}

	_, err := f.FetchTable(context.Background(), "cases", srv.URL)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(breakerFailureThreshold), hits.Load())
	assert.InDelta(t, float64(gobreaker.StateOpen), testutil.ToFloat64(f.metrics.SourceBreakerState.WithLabelValues("cases")), 0)

	// Other sources keep their own breaker.
	_, err = f.FetchTable(context.Background(), "deaths", srv.URL)
	require.NotErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestFetchTable_CancelledRequestsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(casesCSV))
	}))
	defer srv.Close()

	f := newTestFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range breakerFailureThreshold + 2 {
		_, err := f.FetchTable(ctx, "cases", srv.URL)
		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.InDelta(t, float64(gobreaker.StateClosed), testutil.ToFloat64(f.metrics.SourceBreakerState.WithLabelValues("cases")), 0)

	df, err := f.FetchTable(context.Background(), "cases", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, int32(1), hits.Load())
}
