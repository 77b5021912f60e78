package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/KaramelBytes/finlens/internal/analysis"
	"github.com/KaramelBytes/finlens/internal/assistant"
	"github.com/KaramelBytes/finlens/internal/chart"
	"github.com/KaramelBytes/finlens/internal/dashboard"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

const maxAskBody = 16 << 10

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: w.Header().Get(HeaderRequestID)})
}

// load fetches the dataset. It writes the 503 itself and returns nil on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request) *dataset.Dataset {
	ds, err := s.data.Load(r.Context())
	if err != nil {
		s.log.WithError(err).Error("dataset unavailable")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil
	}
	return ds
}

// view is load plus the request's filter params.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, *dataset.Dataset) {
	ds := s.load(w, r)
	if ds == nil {
		return nil, nil
	}
	return ds, analysis.Filter(ds, predicates(r))
}

func predicates(r *http.Request) analysis.Predicates {
	q := r.URL.Query()
	return analysis.NewPredicates(q["industry"], q["country"], q["size"])
}

func column(w http.ResponseWriter, name string, fallback dataset.Column) (dataset.Column, bool) {
	if name == "" {
		return fallback, true
	}
	col, err := dataset.ParseColumn(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return col, true
}

type healthResponse struct {
	Status     string    `json:"status"`
	SnapshotID string    `json:"snapshot_id"`
	Source     string    `json:"source"`
	Records    int       `json:"records"`
	LoadedAt   time.Time `json:"loaded_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ds := s.load(w, r)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		SnapshotID: ds.ID(),
		Source:     ds.Source(),
		Records:    ds.Len(),
		LoadedAt:   ds.LoadedAt(),
	})
}

type filtersResponse struct {
	Industry    []string `json:"industry"`
	Country     []string `json:"country"`
	CompanySize []string `json:"size"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	ds := s.load(w, r)
	if ds == nil {
		return
	}
	var resp filtersResponse
	for _, dim := range []struct {
		col dataset.Column
		dst *[]string
	}{
		{dataset.ColIndustry, &resp.Industry},
		{dataset.ColCountry, &resp.Country},
		{dataset.ColCompanySize, &resp.CompanySize},
	} {
		vals, err := analysis.Distinct(ds, dim.col)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		*dim.dst = vals
	}
	writeJSON(w, http.StatusOK, resp)
}

type companiesResponse struct {
	SnapshotID string              `json:"snapshot_id"`
	Predicates analysis.Predicates `json:"predicates"`
	Count      int                 `json:"count"`
	Companies  []dataset.Company   `json:"companies"`
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	ds, view := s.view(w, r)
	if view == nil {
		return
	}
	writeJSON(w, http.StatusOK, companiesResponse{
		SnapshotID: ds.ID(),
		Predicates: predicates(r),
		Count:      view.Len(),
		Companies:  view.Records(),
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	col, ok := column(w, q.Get("column"), dataset.ColTotalRevenueMillions)
	if !ok {
		return
	}
	n := dashboard.TopN
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = v
	}
	_, view := s.view(w, r)
	if view == nil {
		return
	}
	ranking, err := dashboard.BuildRanking(view, col, string(col), n)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

type breakdownResponse struct {
	Value  dataset.Column      `json:"value"`
	By     dataset.Column      `json:"by"`
	Total  dataset.Number      `json:"total"`
	Groups []analysis.GroupSum `json:"groups"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, ok := column(w, q.Get("value"), dataset.ColTotalRevenueMillions)
	if !ok {
		return
	}
	by, ok := column(w, q.Get("by"), dataset.ColIndustry)
	if !ok {
		return
	}
	_, view := s.view(w, r)
	if view == nil {
		return
	}
	groups, err := analysis.SumBy(view, by, value)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdownResponse{
		Value:  value,
		By:     by,
		Total:  dataset.Number(analysis.Total(groups)),
		Groups: groups,
	})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var cols []dataset.Column
	for _, name := range analysis.SplitValues(q["column"]) {
		col, ok := column(w, name, "")
		if !ok {
			return
		}
		cols = append(cols, col)
	}
	_, view := s.view(w, r)
	if view == nil {
		return
	}
	stats, err := analysis.Describe(view, cols, 0)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ds := s.load(w, r)
	if ds == nil {
		return
	}
	d, err := dashboard.Build(ds, predicates(r))
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleBarChart(w http.ResponseWriter, r *http.Request) {
	col, ok := column(w, mux.Vars(r)["column"], "")
	if !ok {
		return
	}
	_, view := s.view(w, r)
	if view == nil {
		return
	}
	series, err := dashboard.BuildBars(view, col)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	var buf bytes.Buffer
	skipped, err := chart.RenderBarSeries(&buf, series)
	if skipped > 0 {
		w.Header().Set("X-Skipped-Values", strconv.Itoa(skipped))
	}
	s.writePNG(w, &buf, err)
}

func (s *Server) handlePieChart(w http.ResponseWriter, r *http.Request) {
	col, ok := column(w, mux.Vars(r)["column"], "")
	if !ok {
		return
	}
	by, ok := column(w, r.URL.Query().Get("by"), dataset.ColIndustry)
	if !ok {
		return
	}
	_, view := s.view(w, r)
	if view == nil {
		return
	}
	pie, err := dashboard.BuildPie(view, col, by)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	var buf bytes.Buffer
	s.writePNG(w, &buf, chart.RenderPie(&buf, pie))
}

func (s *Server) writePNG(w http.ResponseWriter, buf *bytes.Buffer, err error) {
	switch {
	case errors.Is(err, chart.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		s.log.WithError(err).Error("chart render failed")
		writeError(w, http.StatusInternalServerError, "chart render failed")
	default:
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, buf)
	}
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	if errors.Is(err, dataset.ErrInvalidColumn) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.WithError(err).Error("analysis failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAskBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, assistant.EmptyPromptMessage)
		return
	}
	if s.asker == nil {
		writeError(w, http.StatusBadGateway, "el asistente no está disponible")
		return
	}
	answer, err := s.asker.Ask(r.Context(), req.Prompt)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, askResponse{Answer: answer})
	case errors.Is(err, assistant.ErrEmptyPrompt):
		writeError(w, http.StatusBadRequest, assistant.EmptyPromptMessage)
	case errors.Is(err, assistant.ErrPromptTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assistant.ErrAssistantUnavailable):
		writeError(w, http.StatusBadGateway, "el asistente no está disponible: "+err.Error())
	default:
		s.log.WithError(err).Error("ask failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
