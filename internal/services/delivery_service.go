package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"deliverystats/internal/exchange"
	"deliverystats/pkg/contracts/domain"
)

// Fetcher issues one exchange request
type Fetcher interface {
	Fetch(ctx context.Context, req exchange.Request) (*exchange.Payload, error)
}

// ReportRecorder receives one observation per report run
type ReportRecorder interface {
	ObserveReport(report, outcome string, rows int)
}

// DeliveryService runs the report pipelines. Each call fetches one payload,
// parses it and normalizes it; the service holds no per-call state and is
// safe for concurrent use.
type DeliveryService struct {
	fetcher   Fetcher
	endpoints Endpoints
	logger    *slog.Logger
	recorder  ReportRecorder
	reports   map[domain.ReportID]definition
}

// Option configures a DeliveryService
type Option func(*DeliveryService)

// WithReportRecorder sets the report metrics recorder
func WithReportRecorder(r ReportRecorder) Option {
	return func(s *DeliveryService) {
		s.recorder = r
	}
}

// NewDeliveryService creates a report service reading from the given hosts
func NewDeliveryService(fetcher Fetcher, endpoints Endpoints, logger *slog.Logger, opts ...Option) *DeliveryService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &DeliveryService{
		fetcher:   fetcher,
		endpoints: endpoints,
		logger:    logger.With(slog.String("service", "delivery")),
		reports:   make(map[domain.ReportID]definition, len(catalogue)),
	}
	for _, def := range catalogue {
		s.reports[def.info.ID] = def
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reports returns the report catalogue in presentation order
func (s *DeliveryService) Reports() []domain.ReportInfo {
	infos := make([]domain.ReportInfo, len(catalogue))
	for i, def := range catalogue {
		infos[i] = def.info
	}
	return infos
}

// Lookup returns the catalogue entry of a report
func (s *DeliveryService) Lookup(id domain.ReportID) (domain.ReportInfo, error) {
	def, ok := s.reports[id]
	if !ok {
		return domain.ReportInfo{}, fmt.Errorf("%w: %q", ErrUnknownReport, id)
	}
	return def.info, nil
}

// Report runs the pipeline of the named report
func (s *DeliveryService) Report(ctx context.Context, id domain.ReportID, params domain.ReportParams) (*domain.ReportResult, error) {
	def, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, id)
	}

	table, err := s.run(ctx, def, params)
	if err != nil {
		return nil, err
	}
	return &domain.ReportResult{Report: def.info, Params: params, Table: table}, nil
}

// FuturesToSpotSHFE returns SHFE futures-to-spot volumes for a YYYYMM month
func (s *DeliveryService) FuturesToSpotSHFE(ctx context.Context, month string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesToSpotSHFE, domain.ReportParams{Period: month})
}

// FuturesDeliverySHFE returns the SHFE per-variety delivery summary for a YYYYMM month
func (s *DeliveryService) FuturesDeliverySHFE(ctx context.Context, month string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesDeliverySHFE, domain.ReportParams{Period: month})
}

// FuturesDeliveryDCE returns DCE delivery statistics for a YYYYMM month
func (s *DeliveryService) FuturesDeliveryDCE(ctx context.Context, month string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesDeliveryDCE, domain.ReportParams{Period: month})
}

// FuturesToSpotDCE returns DCE futures-to-spot deals for a YYYYMM month
func (s *DeliveryService) FuturesToSpotDCE(ctx context.Context, month string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesToSpotDCE, domain.ReportParams{Period: month})
}

// FuturesDeliveryMatchDCE returns the DCE delivery matching table of a variety
func (s *DeliveryService) FuturesDeliveryMatchDCE(ctx context.Context, symbol string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesDeliveryMatchDCE, domain.ReportParams{Symbol: symbol})
}

// FuturesToSpotCZCE returns CZCE futures-to-spot volumes for a YYYYMMDD day
func (s *DeliveryService) FuturesToSpotCZCE(ctx context.Context, day string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesToSpotCZCE, domain.ReportParams{Period: day})
}

// FuturesDeliveryMatchCZCE returns CZCE delivery matching for a YYYYMMDD day,
// each row tagged with the match date and contract of its block.
func (s *DeliveryService) FuturesDeliveryMatchCZCE(ctx context.Context, day string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesDeliveryMatchCZCE, domain.ReportParams{Period: day})
}

// FuturesDeliveryCZCE returns CZCE monthly delivery by variety for a YYYYMMDD day
func (s *DeliveryService) FuturesDeliveryCZCE(ctx context.Context, day string) (*domain.Table, error) {
	return s.table(ctx, domain.ReportFuturesDeliveryCZCE, domain.ReportParams{Period: day})
}

func (s *DeliveryService) table(ctx context.Context, id domain.ReportID, params domain.ReportParams) (*domain.Table, error) {
	return s.run(ctx, s.reports[id], params)
}

// run executes request, fetch, parse and normalize for one report
func (s *DeliveryService) run(ctx context.Context, def definition, params domain.ReportParams) (*domain.Table, error) {
	id := string(def.info.ID)
	input := paramValue(def.info.Param, params)

	ctx, span := otel.Tracer("deliverystats/services").Start(ctx, "report.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("report", id),
		attribute.String("param", input),
	)

	start := time.Now()
	table, err := s.execute(ctx, def, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observe(id, "error", 0)
		s.logger.ErrorContext(ctx, "report failed",
			slog.String("report", id),
			slog.String("param", input),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.Int("rows", table.Len()))
	s.observe(id, "ok", table.Len())
	s.logger.InfoContext(ctx, "report fetched",
		slog.String("report", id),
		slog.String("param", input),
		slog.Int("rows", table.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return table, nil
}

func (s *DeliveryService) execute(ctx context.Context, def definition, params domain.ReportParams) (*domain.Table, error) {
	req, err := def.request(s.endpoints, params)
	if err != nil {
		return nil, err
	}

	payload, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.info.ID, err)
	}

	table, err := def.parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.info.ID, err)
	}
	return table, nil
}

func (s *DeliveryService) observe(report, outcome string, rows int) {
	if s.recorder != nil {
		s.recorder.ObserveReport(report, outcome, rows)
	}
}
