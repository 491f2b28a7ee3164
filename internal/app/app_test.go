package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/config"
	"retailpulse/internal/shared/testutil"
	"retailpulse/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ExportDir = filepath.Join(dir, "exports")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.Data.SkipOutlierFilter = true
	cfg.OTel.TracingEnabled = false
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.WebSocketHub.Stop()
		a.Services.Analytics.Close()
	})
	return a
}

func get(t *testing.T, a *Application, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewApplication_LoadsSourceDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.SourcePath = testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "retail.csv")
	a := newTestApp(t, cfg)

	assert.DirExists(t, cfg.Paths.ExportDir)
	assert.DirExists(t, cfg.Paths.LogsDir)

	rec := get(t, a, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = get(t, a, "/api/analytics/kpis")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var resp struct {
		Data struct {
			KPIs struct {
				Orders int `json:"orders"`
			} `json:"kpis"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testutil.RetailSaleOrders, resp.Data.KPIs.Orders)
}

func TestNewApplication_MissingSourceIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.SourcePath = filepath.Join(cfg.Paths.DataDir, "missing.csv")
	a := newTestApp(t, cfg)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, a, "/readyz").Code)
	assert.Equal(t, http.StatusConflict, get(t, a, "/api/analytics").Code)
	assert.Equal(t, http.StatusOK, get(t, a, "/healthz").Code)
}

func TestNewApplication_NilConfig(t *testing.T) {
	_, err := NewApplication(nil, nil)
	assert.Error(t, err)
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	for _, target := range []string{"/healthz", "/livez", "/version", "/api/health", "/api/system/stats"} {
		assert.Equal(t, http.StatusOK, get(t, a, target).Code, target)
	}

	rec := get(t, a, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/analytics/kpis", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestApplication_Metrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.SourcePath = testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "retail.csv")
	a := newTestApp(t, cfg)

	require.Equal(t, http.StatusOK, get(t, a, "/api/analytics/countries").Code)

	rec := get(t, a, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "analysis_runs_total")
	assert.Contains(t, body, "dataset_rows_loaded_total")
	assert.Contains(t, body, "http_requests_total")
}

func TestApplication_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.OTel.Enabled = false
	a := newTestApp(t, cfg)

	assert.Equal(t, http.StatusNotFound, get(t, a, "/metrics").Code)
}

func TestApplication_CORS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.AllowedOrigins = []string{"http://dashboard.local"}
	a := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Cache")
}

func TestApplication_WebSocketReceivesAnalysisEvents(t *testing.T) {
	cfg := testConfig(t)
	path := testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "retail.csv")
	a := newTestApp(t, cfg)

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() events.WebSocketMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg events.WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	assert.Equal(t, events.MessageTypeConnect, read().Type)

	resp, err := http.Post(srv.URL+"/api/dataset/load", "application/json",
		strings.NewReader(`{"path":"`+filepath.Base(path)+`","skip_outlier_filter":true}`))
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, events.MessageTypeDatasetLoaded, read().Type)

	resp, err = http.Get(srv.URL + "/api/analytics/report")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, events.MessageTypeAnalysisComplete, read().Type)
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Server.Port = l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	url := "http://" + l.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, a.Stop(context.Background()))
	assert.NoError(t, ctx.Err())
	_, err = http.Get(url)
	assert.Error(t, err)
}
