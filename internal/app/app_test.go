package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliverystats/internal/config"
	"deliverystats/internal/infrastructure"
	"deliverystats/internal/shared/testutil"
)

const shfeToSpot = `{
  "o_code": 0,
  "ExchangeDelivery": [
    {"MEMO": "", "TRADINGDAY": "20231205", "DELIVERYVOLUME": "1,200", "UNIT": "吨", "EFPVOLUME": 300, "INSTRUMENTID": "cu2312", "PRODUCTID": "cu", "ID": 1},
    {"MEMO": "", "TRADINGDAY": "", "DELIVERYVOLUME": 1200, "UNIT": "", "EFPVOLUME": 300, "INSTRUMENTID": "合计", "PRODUCTID": "", "ID": 2}
  ]
}`

func newTestApp(t *testing.T, exchangeURL string) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	cfg := config.Default()
	cfg.Tracing.Enabled = false
	cfg.Security.RateLimit.Enabled = false
	if exchangeURL != "" {
		cfg.Exchange.SHFEBaseURL = exchangeURL
		cfg.Exchange.DCEBaseURL = exchangeURL
		cfg.Exchange.CZCEBaseURL = exchangeURL
	}

	providers, err := infrastructure.InitializeOTel(cfg.Tracing, logger)
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	return New(cfg, logger, providers)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestApplication_HealthRoutes(t *testing.T) {
	a := newTestApp(t, "")

	for _, path := range []string{"/healthz", "/readyz", "/livez", "/version"} {
		t.Run(path, func(t *testing.T) {
			w := get(t, a.Router, path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestApplication_Catalogue(t *testing.T) {
	a := newTestApp(t, "")

	w := get(t, a.Router, "/api/reports")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 8, body.Count)
}

func TestApplication_ReportThroughExchange(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/instrument/ExchangeDelivery202312.dat" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, shfeToSpot)
	}))
	defer site.Close()

	a := newTestApp(t, site.URL)

	w := get(t, a.Router, "/api/reports/futures_to_spot_shfe?period=202312")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "cu2312")
	assert.NotContains(t, w.Body.String(), "合计")

	w = get(t, a.Router, "/api/reports/futures_to_spot_shfe?period=202311")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = get(t, a.Router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	metrics := w.Body.String()
	assert.Contains(t, metrics, "delivery_fetch_requests_total")
	assert.Contains(t, metrics, "delivery_report_requests_total")
	assert.Contains(t, metrics, "http_requests_total")
}

func TestApplication_NotFoundIsProblem(t *testing.T) {
	a := newTestApp(t, "")

	w := get(t, a.Router, "/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, float64(http.StatusNotFound), problem["status"])
	assert.NotEmpty(t, problem["trace_id"])
}

func TestApplication_ServeAndStop(t *testing.T) {
	a := newTestApp(t, "")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background(), l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestEndpoints(t *testing.T) {
	cfg := config.Default().Exchange
	e := Endpoints(cfg)
	assert.Equal(t, cfg.SHFEBaseURL, e.SHFE)
	assert.Equal(t, cfg.DCEBaseURL, e.DCE)
	assert.Equal(t, cfg.CZCEBaseURL, e.CZCE)
}
