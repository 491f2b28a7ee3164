package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "retailpulse/internal/errors"
	"retailpulse/internal/exporter"
	"retailpulse/internal/middleware"
	"retailpulse/internal/services"
	api "retailpulse/pkg/contracts/api/v1"
	"retailpulse/pkg/contracts/domain"
)

// Response headers describing how an analysis was served
const (
	HeaderCache = "X-Cache"
	HeaderRunID = "X-Run-ID"
)

// AnalyticsHandler serves the dashboard views over the active dataset
type AnalyticsHandler struct {
	service      AnalyticsService
	validator    *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAnalyticsHandler creates the analytics handler
func NewAnalyticsHandler(service AnalyticsService, validator *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "analytics")),
	}
}

// Routes returns the analytics routes. Every view accepts start, end,
// country (repeatable) and granularity query parameters.
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetAnalysis)
	r.Get("/kpis", h.GetKPIs)
	r.Get("/countries", h.GetCountries)
	r.Get("/countries/products", h.GetCountryProducts)
	r.Get("/cancellations", h.GetCancellations)
	r.Get("/pareto", h.GetPareto)
	r.Get("/months", h.GetMonths)
	r.Get("/trend", h.GetTrend)
	r.Get("/seasonality", h.GetSeasonality)
	r.Get("/rfm", h.GetRFM)
	r.Get("/report", h.GetReport)
	r.Get("/export", h.Export)

	return r
}

// GetAnalysis handles GET /api/analytics with every view in one document
func (h *AnalyticsHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	run, ok := h.analyze(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, run.Analysis)
}

// GetKPIs handles GET /api/analytics/kpis
func (h *AnalyticsHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} {
		return api.KPIView{KPIs: a.KPIs, ReturnRates: a.ReturnRates, Partition: a.Partition}
	})
}

// GetCountries handles GET /api/analytics/countries
func (h *AnalyticsHandler) GetCountries(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} { return a.CountryRevenue })
}

// GetCancellations handles GET /api/analytics/cancellations
func (h *AnalyticsHandler) GetCancellations(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} {
		return api.CancellationView{
			Invoices:  a.KPIs.Cancellations,
			Units:     a.KPIs.CancelledUnits,
			Value:     a.KPIs.CancelledValue.StringFixed(2),
			ByCountry: a.CancellationsByCountry,
		}
	})
}

// GetMonths handles GET /api/analytics/months
func (h *AnalyticsHandler) GetMonths(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} {
		return api.MonthsView{Months: a.Months, Temporal: a.Temporal}
	})
}

// GetTrend handles GET /api/analytics/trend?granularity=W|M|Q|Y
func (h *AnalyticsHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} { return a.Trend })
}

// GetSeasonality handles GET /api/analytics/seasonality
func (h *AnalyticsHandler) GetSeasonality(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} { return a.Seasonality })
}

// GetRFM handles GET /api/analytics/rfm
func (h *AnalyticsHandler) GetRFM(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} { return a.RFM })
}

// GetReport handles GET /api/analytics/report
func (h *AnalyticsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(a *domain.Analysis) interface{} { return a.Report })
}

// GetCountryProducts handles GET /api/analytics/countries/products. It fails
// when the selection has no sales or spans more countries than allowed.
func (h *AnalyticsHandler) GetCountryProducts(w http.ResponseWriter, r *http.Request) {
	var req api.TopProductsRequest
	if err := h.validator.BindQuery(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, ok := h.query(w, r, req.AnalysisRequest)
	if !ok {
		return
	}
	q.TopProductsPerCountry = req.Limit
	q.MaxCountryBreakdown = req.MaxCountries

	breakdown, err := h.service.TopProductsByCountry(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.ViewResponse{Data: breakdown})
}

// GetPareto handles GET /api/analytics/pareto. It fails when the selection
// has no revenue.
func (h *AnalyticsHandler) GetPareto(w http.ResponseWriter, r *http.Request) {
	var req api.ParetoRequest
	if err := h.validator.BindQuery(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, ok := h.query(w, r, req.AnalysisRequest)
	if !ok {
		return
	}
	q.TopFraction = req.TopFraction

	summary, err := h.service.Pareto(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.ViewResponse{Data: summary})
}

// Export handles GET /api/analytics/export?format=xlsx|csv|json&view=
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req api.ExportRequest
	if err := h.validator.BindQuery(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, ok := h.query(w, r, req.AnalysisRequest)
	if !ok {
		return
	}

	var buf bytes.Buffer
	run, err := h.service.WriteReport(r.Context(), &buf, q, req.Format, req.View)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	name := exporter.ReportFileName(run.Analysis, req.Format, req.View)
	h.logger.InfoContext(r.Context(), "report exported",
		slog.String("run_id", run.Analysis.RunID),
		slog.String("file", name),
		slog.Int("bytes", buf.Len()))

	setRunHeaders(w, run)
	w.Header().Set("Content-Type", exporter.ReportContentType(req.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// view analyzes the request and renders one projection of the result
func (h *AnalyticsHandler) view(w http.ResponseWriter, r *http.Request, project func(*domain.Analysis) interface{}) {
	run, ok := h.analyze(w, r)
	if !ok {
		return
	}
	a := run.Analysis
	render.JSON(w, r, api.ViewResponse{
		Meta: &api.AnalysisMeta{
			RunID:       a.RunID,
			GeneratedAt: a.GeneratedAt,
			Cached:      run.Cached,
			Params:      a.Params,
			Warnings:    a.Warnings,
		},
		Data: project(a),
	})
}

func (h *AnalyticsHandler) analyze(w http.ResponseWriter, r *http.Request) (*services.AnalysisRun, bool) {
	var req api.AnalysisRequest
	if err := h.validator.BindQuery(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	q, ok := h.query(w, r, req)
	if !ok {
		return nil, false
	}
	run, err := h.service.Analyze(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	setRunHeaders(w, run)
	return run, true
}

func (h *AnalyticsHandler) query(w http.ResponseWriter, r *http.Request, req api.AnalysisRequest) (services.Query, bool) {
	q, err := services.NewQuery(req)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return services.Query{}, false
	}
	return q, true
}

func setRunHeaders(w http.ResponseWriter, run *services.AnalysisRun) {
	cache := "MISS"
	if run.Cached {
		cache = "HIT"
	}
	w.Header().Set(HeaderCache, cache)
	w.Header().Set(HeaderRunID, run.Analysis.RunID)
}
