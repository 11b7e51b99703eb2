package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
	"github.com/radiusdt/campaign-dashboard/internal/config"
	"github.com/radiusdt/campaign-dashboard/internal/dashboard"
	"github.com/radiusdt/campaign-dashboard/internal/metrics"
	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// errBadParam marks malformed query parameters.
var errBadParam = errors.New("invalid parameter")

// Dependencies holds everything the HTTP API needs.
type Dependencies struct {
	Service *dashboard.Service
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server serves dashboard data as JSON for a chart front end.
type Server struct {
	service *dashboard.Service
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewServer constructs an http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		service: deps.Service,
		config:  deps.Config,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle(deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/series", s.handleSeries)
	mux.HandleFunc("/api/table", s.handleTable)
	mux.HandleFunc("/api/histogram", s.handleHistogram)
	mux.HandleFunc("/api/reload", s.handleReload)

	return mux
}

// ---- Health ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if _, ok := s.service.Extent(); !ok {
		status = "empty"
	}
	s.jsonResponse(w, map[string]string{
		"status":     status,
		"session_id": s.service.SessionID(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.jsonResponse(w, s.service.Status())
}

// ---- Metrics ----

type summaryResponse struct {
	Window  models.TimeWindow         `json:"window"`
	Filters string                    `json:"filters"`
	Metrics analytics.ComputedMetrics `json:"metrics"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q, err := s.parseQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	m, err := s.service.Summary(r.Context(), q)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, summaryResponse{Window: q.Window, Filters: q.Filters.String(), Metrics: m})
}

type seriesResponse struct {
	Metric      analytics.Metric      `json:"metric"`
	Granularity analytics.Granularity `json:"granularity"`
	Filters     string                `json:"filters"`
	Points      []analytics.Point     `json:"points"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q, err := s.parseQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	metric, err := analytics.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	points, err := s.service.Series(r.Context(), q, metric)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, seriesResponse{
		Metric:      metric,
		Granularity: q.Granularity,
		Filters:     q.Filters.String(),
		Points:      points,
	})
}

type tableResponse struct {
	Granularity analytics.Granularity `json:"granularity"`
	Filters     string                `json:"filters"`
	Rows        []analytics.Row       `json:"rows"`
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q, err := s.parseQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	rows, err := s.service.Table(r.Context(), q)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, tableResponse{Granularity: q.Granularity, Filters: q.Filters.String(), Rows: rows})
}

type histogramResponse struct {
	Filters string          `json:"filters"`
	NoData  bool            `json:"no_data"`
	Bins    []analytics.Bin `json:"bins"`
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q, err := s.parseQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	bins := s.config.Engine.DefaultBins
	if v := r.URL.Query().Get("bins"); v != "" {
		bins, err = strconv.Atoi(v)
		if err != nil {
			s.handleError(w, r, fmt.Errorf("%w: bins %q", errBadParam, v))
			return
		}
	}

	h, err := s.service.Histogram(r.Context(), q, bins)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, histogramResponse{Filters: q.Filters.String(), NoData: h.NoData(), Bins: h.Bins})
}

// ---- Reload ----

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, err := s.service.Reload(r.Context())
	if err != nil {
		s.logger.Error("reload failed", zap.Error(err))
		s.errorResponse(w, r, "reload failed", http.StatusBadGateway)
		return
	}
	s.jsonResponse(w, status)
}

// ---- Query parsing ----

// parseQuery reads start, end, granularity and filters from the URL.
// Missing bounds default to the extent of the loaded logs.
func (s *Server) parseQuery(r *http.Request) (dashboard.Query, error) {
	values := r.URL.Query()

	extent, _ := s.service.Extent()
	window, err := dashboard.ParseWindow(values.Get("start"), values.Get("end"), extent)
	if err != nil {
		return dashboard.Query{}, err
	}

	g := values.Get("granularity")
	if g == "" {
		g = s.config.Engine.DefaultGranularity
	}
	granularity, err := analytics.ParseGranularity(g)
	if err != nil {
		return dashboard.Query{}, err
	}

	filters, err := parseFilters(values)
	if err != nil {
		return dashboard.Query{}, err
	}

	return dashboard.Query{Window: window, Granularity: granularity, Filters: filters}, nil
}

// parseFilters accepts one parameter per attribute (gender=Male&gender=Female
// or gender=Male,Female) and generic filter=attr=v1,v2 parameters.
func parseFilters(values map[string][]string) (analytics.FilterSet, error) {
	var preds []analytics.Predicate

	for _, attr := range analytics.Attributes {
		raw, ok := values[string(attr)]
		if !ok {
			continue
		}
		var vals []string
		for _, v := range raw {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					vals = append(vals, part)
				}
			}
		}
		if len(vals) == 0 {
			return analytics.FilterSet{}, fmt.Errorf("%w: %s has no values", analytics.ErrInvalidFilter, attr)
		}
		preds = append(preds, analytics.NewAttributeFilter(attr, vals...))
	}

	for _, expr := range values["filter"] {
		f, err := analytics.ParseFilter(expr)
		if err != nil {
			return analytics.FilterSet{}, err
		}
		preds = append(preds, f)
	}

	return analytics.NewFilterSet(preds...), nil
}

// ---- Helpers ----

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, analytics.ErrInvalidRange),
		errors.Is(err, analytics.ErrInvalidBinCount),
		errors.Is(err, analytics.ErrUnknownGranularity),
		errors.Is(err, analytics.ErrUnknownMetric),
		errors.Is(err, analytics.ErrUnknownAttribute),
		errors.Is(err, analytics.ErrInvalidFilter),
		errors.Is(err, dashboard.ErrInvalidDate),
		errors.Is(err, errBadParam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.errorResponse(w, r, "internal error", code)
		return
	}
	s.errorResponse(w, r, err.Error(), code)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, message string, code int) {
	if s.metrics != nil {
		s.metrics.RecordRequestError(r.URL.Path, code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
