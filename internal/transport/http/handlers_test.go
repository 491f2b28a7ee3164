package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/analytics"
	"retailpulse/internal/config"
	apierrors "retailpulse/internal/errors"
	"retailpulse/internal/middleware"
	"retailpulse/internal/services"
	"retailpulse/internal/shared/testutil"
	"retailpulse/pkg/contracts/domain"
)

type testServer struct {
	router  chi.Router
	service *services.AnalyticsService
	cfg     *config.Config
}

func newTestServer(t *testing.T, load bool) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = dir
	cfg.Paths.ExportDir = filepath.Join(dir, "exports")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.OTel.Enabled = false

	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewAnalyticsService(cfg, logger)
	t.Cleanup(svc.Close)

	testutil.WriteRetailCSV(t, dir, "retail.csv")
	if load {
		_, err := svc.LoadDataset(context.Background(), filepath.Join(dir, "retail.csv"), services.LoadOptions{SkipOutlierFilter: true})
		require.NoError(t, err)
	}

	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidationMiddleware(logger, errorHandler)
	health := services.NewHealthService(cfg.Paths, svc, nil, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Mount("/api/analytics", NewAnalyticsHandler(svc, validator, errorHandler, logger).Routes())
	r.Mount("/api/dataset", NewDatasetHandler(svc, validator, errorHandler, logger).Routes())
	r.Post("/api/logs", NewClientLogHandler(validator, errorHandler, logger).Handle)
	hh := NewHealthHandler(health, logger)
	r.Get("/healthz", hh.HealthCheck)
	r.Get("/readyz", hh.ReadinessCheck)
	r.Get("/livez", hh.LivenessCheck)
	r.Get("/version", hh.Version)
	r.Get("/api/system/stats", hh.SystemStats)

	return &testServer{router: r, service: svc, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func problemType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p struct {
		Type string `json:"type"`
	}
	decode(t, rec, &p)
	return p.Type
}

func TestAnalyticsHandler_GetAnalysis(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get(HeaderCache))
	runID := rec.Header().Get(HeaderRunID)
	assert.NotEmpty(t, runID)

	var a domain.Analysis
	decode(t, rec, &a)
	assert.Equal(t, runID, a.RunID)
	assert.Equal(t, testutil.RetailSalesRevenue, a.KPIs.TotalRevenue.StringFixed(2))

	rec = s.do(t, http.MethodGet, "/api/analytics/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get(HeaderCache))
	assert.Equal(t, runID, rec.Header().Get(HeaderRunID))
}

func TestAnalyticsHandler_Views(t *testing.T) {
	s := newTestServer(t, true)

	for _, view := range []string{"kpis", "countries", "cancellations", "months", "trend", "seasonality", "rfm", "report"} {
		t.Run(view, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/analytics/"+view+"?granularity=W", "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct {
				Meta struct {
					RunID  string `json:"run_id"`
					Params struct {
						Granularity string `json:"granularity"`
					} `json:"params"`
				} `json:"meta"`
				Data json.RawMessage `json:"data"`
			}
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Meta.RunID)
			assert.Equal(t, "week", resp.Meta.Params.Granularity)
			assert.NotEmpty(t, resp.Data)
		})
	}
}

func TestAnalyticsHandler_CountryFilter(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodGet, "/api/analytics/countries?country=France&country=Germany", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data []domain.CountryRevenue `json:"data"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Germany", resp.Data[0].Country)
	assert.Equal(t, "26.25", resp.Data[0].Revenue.StringFixed(2))
	assert.Equal(t, "France", resp.Data[1].Country)
	assert.Equal(t, "18.70", resp.Data[1].Revenue.StringFixed(2))
}

func TestAnalyticsHandler_Cancellations(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodGet, "/api/analytics/cancellations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Invoices int    `json:"invoices"`
			Units    int64  `json:"units"`
			Value    string `json:"value"`
		} `json:"data"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.Data.Invoices)
	assert.Equal(t, int64(1), resp.Data.Units)
	assert.Equal(t, "27.50", resp.Data.Value)
}

func TestAnalyticsHandler_InvalidQuery(t *testing.T) {
	s := newTestServer(t, true)

	tests := []struct {
		name   string
		target string
	}{
		{"bad date", "/api/analytics/kpis?start=2011-13-01"},
		{"end before start", "/api/analytics/kpis?start=2011-02-01&end=2011-01-01"},
		{"bad granularity", "/api/analytics/trend?granularity=decade"},
		{"bad country", "/api/analytics/countries?country=a/b"},
		{"bad top fraction", "/api/analytics/pareto?top_fraction=2"},
		{"bad limit", "/api/analytics/countries/products?limit=abc"},
		{"bad export format", "/api/analytics/export?format=pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAnalyticsHandler_NoDataset(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/analytics/kpis", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.TypeNoDataset, problemType(t, rec))
}

func TestAnalyticsHandler_Pareto(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodGet, "/api/analytics/pareto?top_fraction=0.25", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data services.ParetoSummary `json:"data"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Data.Curve.Points, 8)
	assert.Equal(t, 2, resp.Data.TopShare.TopItems)

	rec = s.do(t, http.MethodGet, "/api/analytics/pareto?country=Narnia", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apierrors.TypeDivisionByZero, problemType(t, rec))
}

func TestAnalyticsHandler_CountryProducts(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodGet, "/api/analytics/countries/products?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data []domain.CountryProducts `json:"data"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "United Kingdom", resp.Data[0].Country)
	require.Len(t, resp.Data[0].Products, 1)

	rec = s.do(t, http.MethodGet, "/api/analytics/countries/products?max_countries=2", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apierrors.TypeCapacityExceeded, problemType(t, rec))

	rec = s.do(t, http.MethodGet, "/api/analytics/countries/products?country=Narnia", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.TypeEmptyPopulation, problemType(t, rec))
}

func TestAnalyticsHandler_Export(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodGet, "/api/analytics/export?format=csv&view=countries", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="retail_countries_all.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "United Kingdom")

	rec = s.do(t, http.MethodGet, "/api/analytics/export?start=2011-01-01&end=2011-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="retail_report_2011-01-01_2011-03-31.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

type mockAnalytics struct {
	mock.Mock
}

func (m *mockAnalytics) Analyze(ctx context.Context, q services.Query) (*services.AnalysisRun, error) {
	args := m.Called(ctx, q)
	run, _ := args.Get(0).(*services.AnalysisRun)
	return run, args.Error(1)
}

func (m *mockAnalytics) Pareto(ctx context.Context, q services.Query) (*services.ParetoSummary, error) {
	args := m.Called(ctx, q)
	summary, _ := args.Get(0).(*services.ParetoSummary)
	return summary, args.Error(1)
}

func (m *mockAnalytics) TopProductsByCountry(ctx context.Context, q services.Query) ([]domain.CountryProducts, error) {
	args := m.Called(ctx, q)
	breakdown, _ := args.Get(0).([]domain.CountryProducts)
	return breakdown, args.Error(1)
}

func (m *mockAnalytics) WriteReport(ctx context.Context, w io.Writer, q services.Query, format, view string) (*services.AnalysisRun, error) {
	args := m.Called(ctx, w, q, format, view)
	run, _ := args.Get(0).(*services.AnalysisRun)
	return run, args.Error(1)
}

func TestAnalyticsHandler_ServiceErrors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidationMiddleware(logger, errorHandler)

	svc := &mockAnalytics{}
	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(q services.Query) bool {
		return q.Granularity == domain.GranularityQuarter
	})).Return(nil, context.DeadlineExceeded)
	svc.On("WriteReport", mock.Anything, mock.Anything, mock.Anything, "json", "").
		Return(nil, &analytics.SchemaError{Missing: []string{"country"}})

	h := NewAnalyticsHandler(svc, validator, errorHandler, logger)
	router := chi.NewRouter()
	router.Mount("/", h.Routes())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kpis?granularity=Q", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderCache))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=json", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	svc.AssertExpectations(t)
}

func TestDatasetHandler(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/dataset", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/dataset/load", `{"path":"retail.csv","skip_outlier_filter":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary domain.DatasetSummary
	decode(t, rec, &summary)
	assert.Equal(t, testutil.RetailTransactions, summary.Transactions)

	rec = s.do(t, http.MethodGet, "/api/dataset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &summary)
	assert.Equal(t, []string{"France", "Germany", "United Kingdom"}, summary.Countries)

	rec = s.do(t, http.MethodGet, "/api/dataset/files", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Files []struct {
			Name   string `json:"name"`
			Format string `json:"format"`
		} `json:"files"`
		Count int `json:"count"`
	}
	decode(t, rec, &listing)
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "retail.csv", listing.Files[0].Name)

	rec = s.do(t, http.MethodPost, "/api/dataset/export", `{"format":"tsv"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var exported struct {
		Path   string `json:"path"`
		Format string `json:"format"`
	}
	decode(t, rec, &exported)
	assert.Equal(t, "tsv", exported.Format)
	assert.FileExists(t, exported.Path)

	rec = s.do(t, http.MethodGet, "/api/dataset/exports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listing)
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "retail_clean.tsv", listing.Files[0].Name)

	rec = s.do(t, http.MethodGet, "/api/dataset/exports/retail_clean.tsv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="retail_clean.tsv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, testutil.RetailTransactions+1)

	rec = s.do(t, http.MethodGet, "/api/dataset/exports/missing.csv", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/dataset/exports/..%2Fretail.csv", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDatasetHandler_LoadErrors(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing path", `{}`, http.StatusBadRequest},
		{"unsupported extension", `{"path":"retail.pdf"}`, http.StatusBadRequest},
		{"malformed body", `{"path":`, http.StatusBadRequest},
		{"outside data dir", `{"path":"../retail.csv"}`, http.StatusForbidden},
		{"missing file", `{"path":"nope.csv"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/dataset/load", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/dataset/load", strings.NewReader(`path=retail.csv`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := s.service.LoadDataset(context.Background(), filepath.Join(s.cfg.Paths.DataDir, "retail.csv"), services.LoadOptions{SkipOutlierFilter: true})
	require.NoError(t, err)

	rec = s.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, target := range []string{"/healthz", "/livez", "/version"} {
		rec := s.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}

	rec = s.do(t, http.MethodGet, "/api/system/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats services.SystemStats
	decode(t, rec, &stats)
	assert.True(t, stats.DatasetLoaded)
}

func TestClientLogHandler(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	h := NewClientLogHandler(middleware.NewValidationMiddleware(logger, errorHandler), errorHandler, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/logs",
		strings.NewReader(`{"level":"warn","message":"chart failed","source":"trend.js","data":{"view":"trend"}}`))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "chart failed")
	testutil.AssertLogAttr(t, handler, "client_source", "trend.js")

	req = httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(`{"level":"fatal","message":"x"}`))
	rec = httptest.NewRecorder()
	h.Handle(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", clientLevel("debug").String())
	assert.Equal(t, "WARN", clientLevel("warn").String())
	assert.Equal(t, "ERROR", clientLevel("error").String())
	assert.Equal(t, "INFO", clientLevel("").String())
}
