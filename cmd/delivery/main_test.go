package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliverystats/internal/app"
	"deliverystats/internal/config"
	"deliverystats/internal/shared/testutil"
	"deliverystats/pkg/contracts/domain"
)

const shfeToSpot = `{
  "o_code": 0,
  "ExchangeDelivery": [
    {"MEMO": "", "TRADINGDAY": "20231205", "DELIVERYVOLUME": "1,200", "UNIT": "吨", "EFPVOLUME": 300, "INSTRUMENTID": "cu2312", "PRODUCTID": "cu", "ID": 1}
  ]
}`

// writeConfig points every exchange at baseURL and returns the config path
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`logging:
  level: error
  output: console
exchange:
  shfe_base_url: %[1]s
  dce_base_url: %[1]s
  czce_base_url: %[1]s
  concurrency: 2
`, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/instrument/ExchangeDelivery202312.dat" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, shfeToSpot)
	}))
	t.Cleanup(site.Close)
	return site
}

func TestRun_WritesFile(t *testing.T) {
	site := newSite(t)
	outDir := filepath.Join(t.TempDir(), "out")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-report", "futures_to_spot_shfe",
		"-period", "202312",
		"-out", outDir,
		"-config", writeConfig(t, site.URL),
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	path := filepath.Join(outDir, "futures_to_spot_shfe_202312.csv")
	assert.Equal(t, path, strings.TrimSpace(stdout.String()))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "cu2312")
}

func TestRun_Stdout(t *testing.T) {
	site := newSite(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-report", "FUTURES_TO_SPOT_SHFE",
		"-period", "202312",
		"-format", "json",
		"-out", "-",
		"-config", writeConfig(t, site.URL),
	}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `"futures_to_spot_volume": 300`)
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "deliverystats v"))
}

func TestRun_Errors(t *testing.T) {
	site := newSite(t)
	cfgPath := writeConfig(t, site.URL)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing report", []string{}, "-report is required"},
		{"bad format", []string{"-report", "futures_to_spot_shfe", "-format", "xls"}, "unknown export format"},
		{"missing config", []string{"-report", "futures_to_spot_shfe", "-config", filepath.Join(t.TempDir(), "none.yaml")}, "does not exist"},
		{"unknown report", []string{"-report", "nope", "-config", cfgPath}, "unknown report"},
		{"invalid period", []string{"-report", "futures_to_spot_shfe", "-period", "2023", "-out", t.TempDir(), "-config", cfgPath}, "invalid input"},
		{"upstream failure", []string{"-report", "futures_to_spot_shfe", "-period", "202301", "-out", t.TempDir(), "-config", cfgPath}, "status 404"},
		{"stdout with many reports", []string{"-report", "all", "-period", "202312", "-out", "-", "-config", cfgPath}, "exactly one report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_AllReportsCollectsFailures(t *testing.T) {
	site := newSite(t)
	outDir := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-report", "all",
		"-period", "202312",
		"-out", outDir,
		"-config", writeConfig(t, site.URL),
	}, &stdout, &stderr)

	// Only the SHFE futures-to-spot file exists on the test site
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(outDir, "futures_to_spot_shfe_202312.csv"))
	assert.Contains(t, err.Error(), string(domain.ReportFuturesDeliverySHFE))
}

func TestPlan(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := app.NewReportService(config.Default().Exchange, logger, nil)

	tests := []struct {
		name   string
		opts   options
		want   int
		hasErr bool
	}{
		{"single report", options{report: "futures_to_spot_czce", period: "20231228"}, 1, false},
		{"all by month", options{report: allReports, period: "202312"}, 4, false},
		{"all by day", options{report: allReports, period: "20231228"}, 7, false},
		{"all by day and symbol", options{report: allReports, period: "20231228", symbol: "a"}, 8, false},
		{"all by symbol", options{report: allReports, symbol: "a"}, 1, false},
		{"all without inputs", options{report: allReports}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := plan(svc, &tt.opts)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, jobs, tt.want)
		})
	}
}

func TestDeriveInput(t *testing.T) {
	month, ok := deriveInput(domain.ParamMonth, "20231228", "")
	assert.True(t, ok)
	assert.Equal(t, "202312", month)

	_, ok = deriveInput(domain.ParamDay, "202312", "")
	assert.False(t, ok)

	symbol, ok := deriveInput(domain.ParamSymbol, "202312", "m")
	assert.True(t, ok)
	assert.Equal(t, "m", symbol)
}
