package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "deliverystats/internal/errors"
	"deliverystats/internal/exchange"
	custommw "deliverystats/internal/middleware"
	"deliverystats/internal/services"
	"deliverystats/internal/shared/testutil"
	"deliverystats/pkg/contracts/domain"
)

var testCatalogue = []domain.ReportInfo{
	{ID: domain.ReportFuturesToSpotSHFE, Exchange: domain.ExchangeSHFE, Param: domain.ParamMonth, Example: "202312"},
	{ID: domain.ReportFuturesDeliveryMatchDCE, Exchange: domain.ExchangeDCE, Param: domain.ParamSymbol, Example: "a"},
	{ID: domain.ReportFuturesToSpotCZCE, Exchange: domain.ExchangeCZCE, Param: domain.ParamDay, Example: "20231228"},
}

// reportServiceStub serves a fixed catalogue and records report calls
type reportServiceStub struct {
	err    error
	calls  int
	lastID domain.ReportID
	last   domain.ReportParams
}

func (s *reportServiceStub) Reports() []domain.ReportInfo {
	return testCatalogue
}

func (s *reportServiceStub) Lookup(id domain.ReportID) (domain.ReportInfo, error) {
	for _, info := range testCatalogue {
		if info.ID == id {
			return info, nil
		}
	}
	return domain.ReportInfo{}, fmt.Errorf("%w: %q", services.ErrUnknownReport, id)
}

func (s *reportServiceStub) Report(ctx context.Context, id domain.ReportID, params domain.ReportParams) (*domain.ReportResult, error) {
	s.calls++
	s.lastID = id
	s.last = params
	if s.err != nil {
		return nil, s.err
	}
	info, _ := s.Lookup(id)

	table := domain.NewTable(
		domain.Column{Name: "date", Kind: domain.KindDate},
		domain.Column{Name: "variety", Kind: domain.KindString},
		domain.Column{Name: "futures_to_spot_volume", Kind: domain.KindNumber},
	)
	table.Rows = []domain.Row{
		{domain.DateValue(time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC)), domain.StringValue("铜"), domain.NumberValue(decimal.RequireFromString("1200"))},
		{domain.MissingDate(), domain.StringValue("铝"), domain.MissingNumber()},
	}
	return &domain.ReportResult{Report: info, Params: params, Table: table}, nil
}

func newReportRouter(t *testing.T, svc ReportServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	handler := NewReportHandler(svc, custommw.NewQueryValidator(logger), logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/reports", handler.Routes())
	return r
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestReportHandler_ListReports(t *testing.T) {
	w := serve(newReportRouter(t, &reportServiceStub{}), "/api/reports")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string              `json:"status"`
		Count  int                 `json:"count"`
		Data   []domain.ReportInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, domain.ReportFuturesToSpotSHFE, body.Data[0].ID)
}

func TestReportHandler_GetReportJSON(t *testing.T) {
	svc := &reportServiceStub{}
	w := serve(newReportRouter(t, svc), "/api/reports/futures_to_spot_shfe?period=202312&symbol=ignored")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, domain.ReportFuturesToSpotSHFE, svc.lastID)
	assert.Equal(t, domain.ReportParams{Period: "202312"}, svc.last)

	var body struct {
		Report domain.ReportInfo `json:"report"`
		Table  struct {
			Rows []map[string]interface{} `json:"rows"`
		} `json:"table"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ReportFuturesToSpotSHFE, body.Report.ID)
	require.Len(t, body.Table.Rows, 2)
	assert.Equal(t, "2023-12-05", body.Table.Rows[0]["date"])
	assert.Nil(t, body.Table.Rows[1]["futures_to_spot_volume"])
}

func TestReportHandler_GetReportCSV(t *testing.T) {
	svc := &reportServiceStub{}
	w := serve(newReportRouter(t, svc), "/api/reports/futures_delivery_match_dce?symbol=A&format=CSV")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=futures_delivery_match_dce_a.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, domain.ReportParams{Symbol: "A"}, svc.last)

	body := bytes.TrimPrefix(w.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF})
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"date", "variety", "futures_to_spot_volume"},
		{"2023-12-05", "铜", "1200"},
		{"", "铝", ""},
	}, records)
}

func TestReportHandler_GetReportXLSX(t *testing.T) {
	w := serve(newReportRouter(t, &reportServiceStub{}), "/api/reports/futures_to_spot_czce?period=20231228&format=xlsx")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "attachment; filename=futures_to_spot_czce_20231228.xlsx", w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{string(domain.ReportFuturesToSpotCZCE)}, f.GetSheetList())
}

func TestReportHandler_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		field  string
	}{
		{"missing period", "/api/reports/futures_to_spot_shfe", "period"},
		{"month with day form", "/api/reports/futures_to_spot_shfe?period=20231201", "period"},
		{"invalid month", "/api/reports/futures_to_spot_shfe?period=202313", "period"},
		{"day with month form", "/api/reports/futures_to_spot_czce?period=202312", "period"},
		{"missing symbol", "/api/reports/futures_delivery_match_dce?period=202312", "symbol"},
		{"symbol with digits", "/api/reports/futures_delivery_match_dce?symbol=a2401", "symbol"},
		{"unknown format", "/api/reports/futures_to_spot_shfe?period=202312&format=xls", "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &reportServiceStub{}
			w := serve(newReportRouter(t, svc), tt.target)

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Zero(t, svc.calls, "invalid requests never reach the service")

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
			assert.Equal(t, apierrors.TypeValidation, problem["type"])
			assert.Contains(t, w.Body.String(), tt.field)
		})
	}
}

func TestReportHandler_UnknownReport(t *testing.T) {
	svc := &reportServiceStub{}
	w := serve(newReportRouter(t, svc), "/api/reports/nope?period=202312")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), apierrors.TypeReportNotFound)
	assert.Zero(t, svc.calls)
}

func TestReportHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "transport failure",
			err:        fmt.Errorf("futures_to_spot_shfe: %w", &exchange.TransportError{Exchange: domain.ExchangeSHFE, URL: "http://x", StatusCode: 503}),
			wantStatus: http.StatusBadGateway,
			wantType:   apierrors.TypeUpstreamTransport,
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   apierrors.TypeTimeout,
		},
		{
			name:       "invalid input from service",
			err:        fmt.Errorf("%w: period out of range", services.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newReportRouter(t, &reportServiceStub{err: tt.err}), "/api/reports/futures_to_spot_shfe?period=202312&format=csv")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Empty(t, w.Header().Get("Content-Disposition"))
			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}
}
