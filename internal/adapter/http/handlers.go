package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	"github.com/couchcryptid/covid-dashboard-service/internal/pipeline"
)

// Query parameters.
const (
	paramRegion   = "region"
	paramCaseType = "case_type"
	paramStart    = "start"
	paramEnd      = "end"
	paramSmooth   = "smooth"
	paramLog      = "log"
	paramSearch   = "search"
	paramSelected = "selected"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	opts, err := s.dashboard.Options()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// handleSearch serves a dropdown search. An empty search means "no update".
func (s *Server) handleSearch(search func(string, []string) ([]string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		term := q.Get(paramSearch)
		if term == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		options, err := search(term, q[paramSelected])
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"options": options})
	}
}

func (s *Server) handleChart(build func(context.Context, pipeline.ChartRequest) (pipeline.Chart, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseChartRequest(r.URL.Query())
		if err != nil {
			s.writeError(w, err)
			return
		}

		chart, err := build(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newChartResponse(chart))
	}
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	caseType := q.Get(paramCaseType)
	if caseType == "" {
		caseType = pipeline.DefaultCaseTypes[0]
	}
	start, end, err := parseWindow(q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	frame, err := s.dashboard.Map(r.Context(), caseType, start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// parseChartRequest reads repeated region and case_type parameters. Region
// names may contain commas ("Korea, South"), so values are never split.
func parseChartRequest(q url.Values) (pipeline.ChartRequest, error) {
	req := pipeline.ChartRequest{
		Regions:   q[paramRegion],
		CaseTypes: q[paramCaseType],
	}
	if len(req.CaseTypes) == 0 {
		req.CaseTypes = pipeline.DefaultCaseTypes
	}

	var err error
	if req.Start, req.End, err = parseWindow(q); err != nil {
		return pipeline.ChartRequest{}, err
	}
	if req.Smooth, err = parseBool(q, paramSmooth); err != nil {
		return pipeline.ChartRequest{}, err
	}
	if req.Log, err = parseBool(q, paramLog); err != nil {
		return pipeline.ChartRequest{}, err
	}
	return req, nil
}

// parseWindow reads start and end. A missing end covers the whole axis.
func parseWindow(q url.Values) (int, int, error) {
	start, err := parseInt(q, paramStart, 0)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseInt(q, paramEnd, math.MaxInt)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseInt(q url.Values, key string, fallback int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadRequest, key, raw)
	}
	return v, nil
}

func parseBool(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", errBadRequest, key, raw)
	}
	return v, nil
}

// writeError maps pipeline and domain errors onto HTTP statuses. An empty
// region selection is not an error: it answers 204 so the client keeps its
// current chart.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrNoRegions):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrUnknownCaseType),
		errors.Is(err, domain.ErrInvalidFraction):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownRegion),
		errors.Is(err, pipeline.ErrMapDisabled):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
