package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"retailpulse/internal/analytics"
	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/files"
	"retailpulse/internal/services"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypeConflict         = "/errors/conflict"
)

// Domain-specific error types
const (
	TypeSchema                 = "/errors/data/schema"
	TypeUnsupportedFormat      = "/errors/data/unsupported-format"
	TypeEmptyFile              = "/errors/data/empty"
	TypeFileTooLarge           = "/errors/data/too-large"
	TypeForbiddenPath          = "/errors/data/forbidden-path"
	TypeNoDataset              = "/errors/data/no-dataset"
	TypeEmptyPopulation        = "/errors/analytics/empty-population"
	TypeDivisionByZero         = "/errors/analytics/division-by-zero"
	TypeInsufficientPopulation = "/errors/analytics/insufficient-population"
	TypeCapacityExceeded       = "/errors/analytics/capacity-exceeded"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var schemaErr *analytics.SchemaError
	if errors.As(err, &schemaErr) {
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeSchema, "Schema Error",
			schemaErr.Error(), path).
			WithExtension("missing", schemaErr.Missing).
			WithExtension("found", schemaErr.Found)
	}

	switch {
	case errors.Is(err, analytics.ErrEmptyPopulation):
		return NewProblemDetails(http.StatusNotFound, TypeEmptyPopulation, "Empty Population",
			"No transactions match the selected filters", path)

	case errors.Is(err, analytics.ErrDivisionByZero):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeDivisionByZero, "Division By Zero",
			err.Error(), path)

	case errors.Is(err, analytics.ErrInsufficientPopulation):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeInsufficientPopulation, "Insufficient Population",
			err.Error(), path)

	case errors.Is(err, analytics.ErrCapacityExceeded):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeCapacityExceeded, "Capacity Exceeded",
			err.Error(), path)

	case errors.Is(err, dataprocessing.ErrUnsupportedFormat):
		return NewProblemDetails(http.StatusUnsupportedMediaType, TypeUnsupportedFormat, "Unsupported Format",
			err.Error(), path)

	case errors.Is(err, dataprocessing.ErrFileTooLarge):
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypeFileTooLarge, "File Too Large",
			err.Error(), path)

	case errors.Is(err, services.ErrPathOutsideDataDir), errors.Is(err, files.ErrOutsideRoot):
		return NewProblemDetails(http.StatusForbidden, TypeForbiddenPath, "Forbidden Path",
			err.Error(), path)

	case errors.Is(err, services.ErrNoDataset):
		return NewProblemDetails(http.StatusConflict, TypeNoDataset, "No Dataset",
			"No dataset is loaded; load one with POST /api/dataset/load", path)

	case errors.Is(err, dataprocessing.ErrEmptyFile), errors.Is(err, dataprocessing.ErrNoDataSheet):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeEmptyFile, "No Data",
			err.Error(), path)

	case errors.Is(err, fs.ErrNotExist):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found",
			"The requested file does not exist", path)
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", path)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "INVALID_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "CONFLICT":
		problemType = TypeConflict
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
