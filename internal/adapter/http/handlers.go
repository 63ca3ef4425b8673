package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/render"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type statesResponse struct {
	States []string `json:"states"`
}

type reportResponse struct {
	Summary domain.ReportSummary `json:"summary"`
	Cards   []render.Card        `json:"cards"`
}

type trendResponse struct {
	State  string              `json:"state"`
	Points []domain.TrendPoint `json:"points"`
}

type reloadResponse struct {
	DatasetID    string    `json:"dataset_id"`
	LoadedAt     time.Time `json:"loaded_at"`
	Observations int       `json:"observations"`
	States       int       `json:"states"`
}

// selectionFrom reads and validates the name and state query parameters.
func selectionFrom(r *http.Request) (domain.Selection, error) {
	q := r.URL.Query()
	sel := domain.Selection{
		Name:  strings.TrimSpace(q.Get("name")),
		State: strings.TrimSpace(q.Get("state")),
	}
	if err := validate.Struct(sel); err != nil {
		return sel, err
	}
	return sel, nil
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.dashboard.States()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statesResponse{States: states})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.dashboard.Report(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Summary: report.Summary(), Cards: render.Cards(report)})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.dashboard.Compute(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trendResponse{State: report.State, Points: report.Trend()})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, ok := render.ParseChartKind(chi.URLParam(r, "kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	sel, err := selectionFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.dashboard.Compute(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.TrendChart(&buf, kind, report.Trend()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (s *Server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.dashboard.Compute(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.Workbook(&buf, report); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", workbookName(report.State)))
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, view, err := s.dashboard.Choropleth(r.Context(), sel.State)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := render.ChoroplethGeoJSON(c, view).MarshalJSON()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(body) //nolint:errcheck // client went away
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dashboard.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		DatasetID:    ds.ID.String(),
		LoadedAt:     ds.LoadedAt,
		Observations: ds.Table.Len(),
		States:       len(ds.States),
	})
}

func workbookName(state string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(state), "-"))
	return slug + "-covid-report.xlsx"
}
