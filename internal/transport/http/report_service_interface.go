package http

import (
	"context"

	"deliverystats/pkg/contracts/domain"
)

// ReportServiceInterface defines the report operations the handlers need
type ReportServiceInterface interface {
	Reports() []domain.ReportInfo
	Lookup(id domain.ReportID) (domain.ReportInfo, error)
	Report(ctx context.Context, id domain.ReportID, params domain.ReportParams) (*domain.ReportResult, error)
}
