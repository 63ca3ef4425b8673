package http

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/couchcryptid/covid-dashboard/internal/render"
)

const (
	viewTrend = "trend"
	viewMap   = "map"
)

//go:embed templates/dashboard.html
var dashboardHTML string

var dashboardPage = template.Must(template.New("dashboard").Parse(dashboardHTML))

type chartLink struct {
	Title string
	URL   string
}

type pageReport struct {
	Title    string
	AsOf     string
	Day0     string
	Cards    []render.Card
	Charts   []chartLink
	MapURL   string
	Workbook string
}

type pageData struct {
	States []string
	Name   string
	State  string
	View   string
	Error  string
	Report *pageReport
}

// handlePage renders the form and, once a state is chosen, the report in the
// requested view. Any failure replaces the report with the generic message.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{View: q.Get("view")}
	if data.View != viewMap {
		data.View = viewTrend
	}

	states, err := s.dashboard.States()
	if err != nil {
		s.logPageError(r, err)
		data.Error = GenericErrorMessage
		s.renderPage(w, r, http.StatusServiceUnavailable, data)
		return
	}
	data.States = states

	sel, err := selectionFrom(r)
	data.Name, data.State = sel.Name, sel.State
	if sel.State == "" {
		s.renderPage(w, r, http.StatusOK, data)
		return
	}
	if err != nil {
		s.logPageError(r, err)
		data.Error = GenericErrorMessage
		s.renderPage(w, r, http.StatusBadRequest, data)
		return
	}

	report, err := s.dashboard.Report(r.Context(), sel)
	if err != nil {
		s.logPageError(r, err)
		data.Error = GenericErrorMessage
		status, _ := classify(err)
		s.renderPage(w, r, status, data)
		return
	}

	params := url.Values{"name": {sel.Name}, "state": {sel.State}}.Encode()
	pr := &pageReport{
		Title:    report.Title,
		AsOf:     render.FormatDate(report.AsOf),
		Cards:    render.Cards(report),
		Workbook: "/api/v1/report.xlsx?" + params,
	}
	if report.HasDay0 {
		pr.Day0 = render.FormatDate(report.Day0)
	}
	if data.View == viewMap {
		pr.MapURL = "/api/v1/choropleth.geojson?" + params
	} else {
		for _, kind := range render.ChartKinds {
			pr.Charts = append(pr.Charts, chartLink{
				Title: kind.Title(),
				URL:   "/api/v1/charts/" + string(kind) + "?" + params,
			})
		}
	}
	data.Report = pr
	s.renderPage(w, r, http.StatusOK, data)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.logger.ErrorContext(r.Context(), "render dashboard page", "error", err)
		http.Error(w, GenericErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (s *Server) logPageError(r *http.Request, err error) {
	status, code := classify(err)
	s.logger.ErrorContext(r.Context(), "dashboard page failed", "status", status, "code", code, "error", err)
}
