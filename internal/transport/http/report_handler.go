package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "deliverystats/internal/errors"
	"deliverystats/internal/exporter"
	custommw "deliverystats/internal/middleware"
	"deliverystats/internal/services"
	api "deliverystats/pkg/contracts/api/v1"
	"deliverystats/pkg/contracts/domain"
)

type reportCtxKey struct{}

// ReportHandler serves the report catalogue and report downloads
type ReportHandler struct {
	service      ReportServiceInterface
	validator    *custommw.QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, validator *custommw.QueryValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListReports)
	r.Route("/{report}", func(r chi.Router) {
		r.Use(h.ReportCtx) // Load catalogue entry into context
		r.Get("/", h.GetReport)
	})

	return r
}

// ReportCtx resolves the {report} URL parameter against the catalogue
func (h *ReportHandler) ReportCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := domain.ReportID(strings.ToLower(chi.URLParam(r, "report")))

		info, err := h.service.Lookup(id)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), reportCtxKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports := h.service.Reports()
	render.JSON(w, r, api.ReportListResponse{
		Status: "success",
		Data:   reports,
		Count:  len(reports),
	})
}

// GetReport handles GET /api/reports/{report}. The response is JSON unless
// format asks for a csv or xlsx attachment.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	info, ok := r.Context().Value(reportCtxKey{}).(domain.ReportInfo)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrReportNotFound)
		return
	}

	values := r.URL.Query()
	query := api.ReportRequest{
		Period: strings.TrimSpace(values.Get("period")),
		Symbol: strings.TrimSpace(values.Get("symbol")),
		Format: strings.ToLower(strings.TrimSpace(values.Get("format"))),
	}
	if err := h.validator.ValidateStruct(&query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	name := services.ParamName(info.Param)
	value := query.Period
	if info.Param == domain.ParamSymbol {
		value = query.Symbol
	}
	if err := h.validator.Var(name, value, "required,"+paramTag(info.Param)); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	format := exporter.FormatJSON
	if query.Format != "" {
		format = exporter.Format(query.Format)
	}

	result, err := h.service.Report(r.Context(), info.ID, query.Params(info.Param))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "report served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("report", string(info.ID)),
		slog.String(name, value),
		slog.String("format", string(format)),
		slog.Int("rows", result.Table.Len()))

	if format == exporter.FormatJSON {
		render.JSON(w, r, result)
		return
	}

	// Encode fully before writing headers so a failure still gets a problem response
	var buf bytes.Buffer
	if err := exporter.Encode(&buf, format, result); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("encode %s: %w", format, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": exporter.FileName(result, format),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write report body",
			slog.String("report", string(info.ID)),
			slog.String("error", err.Error()))
	}
}

// paramTag maps a report parameter kind to its validation tag
func paramTag(kind domain.ParamKind) string {
	if kind == domain.ParamSymbol {
		return "variety"
	}
	return string(kind)
}
