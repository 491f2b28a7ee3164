package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "retailpulse/internal/errors"
	"retailpulse/internal/middleware"
	"retailpulse/internal/services"
	api "retailpulse/pkg/contracts/api/v1"
)

// DatasetHandler manages the active dataset
type DatasetHandler struct {
	service      DatasetService
	validator    *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDatasetHandler creates the dataset handler
func NewDatasetHandler(service DatasetService, validator *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "dataset")),
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetSummary)
	r.Get("/files", h.ListFiles)
	r.Get("/exports", h.ListExports)
	r.Get("/exports/{name}", h.DownloadExport)
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator("application/json"))
		r.Post("/load", h.Load)
		r.Post("/export", h.ExportClean)
	})

	return r
}

// GetSummary handles GET /api/dataset
func (h *DatasetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Load handles POST /api/dataset/load. The path is resolved inside the data
// directory; the previous dataset stays active when loading fails.
func (h *DatasetHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req api.DatasetLoadRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	path, err := h.service.ResolveDataPath(req.Path)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.LoadDataset(r.Context(), path, services.LoadOptions{SkipOutlierFilter: req.SkipOutlier})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset loaded via API",
		slog.String("path", path),
		slog.Int("transactions", summary.Transactions))
	render.JSON(w, r, summary)
}

// ExportClean handles POST /api/dataset/export
func (h *DatasetHandler) ExportClean(w http.ResponseWriter, r *http.Request) {
	var req api.CleanExportRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	path, err := h.service.ExportCleanDataset(r.Context(), req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.CleanExportResponse{Path: path, Format: req.Format})
}

// ListFiles handles GET /api/dataset/files with the loadable files of the data directory
func (h *DatasetHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	available, err := h.service.ListDataFiles(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.FileListResponse{Files: available, Count: len(available)})
}

// ListExports handles GET /api/dataset/exports
func (h *DatasetHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	exports, err := h.service.ListExports(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.FileListResponse{Files: exports, Count: len(exports)})
}

// DownloadExport handles GET /api/dataset/exports/{name}
func (h *DatasetHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("name", err))
		return
	}
	info, err := h.service.ExportFile(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	f, err := os.Open(info.Path)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	http.ServeContent(w, r, info.Name, info.ModTime, f)
}
