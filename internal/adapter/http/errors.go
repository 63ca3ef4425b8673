package http

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/couchcryptid/covid-dashboard/internal/render"
)

// GenericErrorMessage is the only failure text users ever see.
const GenericErrorMessage = "An unexpected error occurred while loading the dashboard. Please try again later."

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Stage  string   `json:"stage,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// classify maps a failure to its status and machine-readable code.
func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "invalid_selection"
	case errors.Is(err, pipeline.ErrNotLoaded):
		return http.StatusServiceUnavailable, "not_loaded"
	case errors.Is(err, domain.ErrEmptySelection):
		return http.StatusNotFound, "empty_selection"
	case errors.Is(err, render.ErrTooFewPoints):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusBadGateway, "source_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	resp := errorResponse{Error: GenericErrorMessage, Code: code}
	if stage, ok := domain.StageOf(err); ok {
		resp.Stage = string(stage)
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, fe.Field()+": "+fe.Tag())
		}
	}

	attrs := []any{"path", r.URL.Path, "status", status, "code", code, "error", err}
	if resp.Stage != "" {
		attrs = append(attrs, "stage", resp.Stage)
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		s.logger.InfoContext(r.Context(), "request rejected", attrs...)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
