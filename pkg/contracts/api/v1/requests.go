// Package api contains the HTTP contract of the delivery statistics service.
// Version v1 represents the current stable API version.
package api

import (
	"deliverystats/pkg/contracts/domain"
)

// Report API Requests

// ReportRequest carries the query parameters of GET /api/reports/{report}.
// Period and Symbol are checked per report once the catalogue entry is
// known: yyyymm, yyyymmdd or variety.
type ReportRequest struct {
	Period string `json:"period,omitempty" query:"period"`
	Symbol string `json:"symbol,omitempty" query:"symbol"`
	Format string `json:"format,omitempty" query:"format" validate:"omitempty,oneof=csv xlsx json"`
}

// Params returns the inputs a report of the given kind reads
func (r ReportRequest) Params(kind domain.ParamKind) domain.ReportParams {
	if kind == domain.ParamSymbol {
		return domain.ReportParams{Symbol: r.Symbol}
	}
	return domain.ReportParams{Period: r.Period}
}

// Report API Responses

// ReportListResponse is the body of GET /api/reports
type ReportListResponse struct {
	Status string              `json:"status"`
	Data   []domain.ReportInfo `json:"data"`
	Count  int                 `json:"count"`
}
