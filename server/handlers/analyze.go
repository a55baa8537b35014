// Package handlers provides HTTP handlers for the textreflex server.
// It implements the analysis endpoint on top of the analysis package.
//
// The package follows these design principles:
// 1. Consistent error handling using the errors package
// 2. Structured logging with request IDs
// 3. Clear request validation before any upstream work
// 4. Exhaustive mapping of domain errors to HTTP statuses
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/191-iota/textreflex/analysis"
	"github.com/191-iota/textreflex/errors"
	"github.com/191-iota/textreflex/provider"
	"github.com/191-iota/textreflex/server/metrics"
	"github.com/191-iota/textreflex/server/middleware"
)

// maxBodyBytes bounds the request body. The text limit is 5000
// characters, so 1 MiB leaves generous room for JSON overhead.
const maxBodyBytes = 1 << 20

// AnalyzeRequest is the request body for the analysis endpoint.
type AnalyzeRequest struct {
	// Text is the raw text to analyze. The analysis layer enforces the
	// trimmed-length bounds; the validator catches the structural cases
	// before they reach it.
	Text string `json:"text" validate:"required,max=5000"`
}

// TextAnalyzer is the part of analysis.Analyzer the handler needs.
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) (*analysis.Result, error)
}

// AnalyzeHandler handles analysis requests.
type AnalyzeHandler struct {
	analyzer TextAnalyzer
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewAnalyzeHandler creates an analysis handler. The metrics argument
// may be nil.
func NewAnalyzeHandler(analyzer TextAnalyzer, logger *zap.Logger, m *metrics.Metrics) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
	}
}

// ServeHTTP implements http.Handler.
// It handles analysis requests by:
// 1. Checking method and content type
// 2. Decoding and validating the request body
// 3. Running the analysis
// 4. Mapping every failure to a typed error response
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		errors.WriteError(w, errors.NewValidationError(
			requestID,
			"Method not allowed",
			map[string]interface{}{
				"method":          r.Method,
				"allowed_methods": []string{"POST"},
			},
		))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		errors.WriteError(w, errors.NewValidationError(
			requestID,
			"Content-Type header required",
			map[string]interface{}{
				"required_content_type": "application/json",
			},
		))
		return
	}

	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	var req AnalyzeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.NewValidationError(
			requestID,
			"Invalid request body",
			map[string]interface{}{"error": err.Error()},
		))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		details := map[string]interface{}{}
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		errors.WriteError(w, errors.NewValidationError(
			requestID,
			"Text must be between 1 and 5000 characters",
			details,
		))
		return
	}

	start := time.Now()
	result, err := h.analyzer.Analyze(r.Context(), req.Text)
	if h.metrics != nil {
		h.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.writeAnalysisError(w, r, logger, err)
		return
	}

	h.countOutcome("ok")
	logger.Info("analysis completed",
		zap.Int("findings", len(result.Findings)),
		zap.Int("claims", len(result.Claims)),
		zap.Duration("duration", time.Since(start)),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeAnalysisError maps analysis and provider errors to the typed
// HTTP error taxonomy. The default branch catches anything a future
// sentinel might add, as an internal error.
func (h *AnalyzeHandler) writeAnalysisError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var apiErr *errors.APIError
	switch {
	case stderrors.Is(err, analysis.ErrEmptyText):
		apiErr = errors.NewValidationError(requestID, "Text must not be empty", nil)
	case stderrors.Is(err, analysis.ErrTextTooLong):
		apiErr = errors.NewValidationError(requestID, "Text must be at most 5000 characters", nil)
	case stderrors.Is(err, provider.ErrTimeout):
		apiErr = errors.NewUpstreamTimeoutError(requestID, err)
	case stderrors.Is(err, provider.ErrUnavailable):
		apiErr = errors.NewUpstreamUnavailableError(requestID, err)
	case stderrors.Is(err, analysis.ErrNoAnalysis):
		apiErr = errors.NewMalformedResponseError(requestID, err)
	case stderrors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		logger.Info("request canceled by client")
		h.countOutcome("canceled")
		return
	default:
		logger.Error("analysis failed", zap.Error(err))
		apiErr = errors.NewInternalError(requestID, err)
	}

	h.countOutcome(string(apiErr.Type))
	logger.Warn("analysis request failed",
		zap.String("error_type", string(apiErr.Type)),
		zap.Int("status", apiErr.Code),
		zap.Error(err),
	)
	errors.WriteError(w, apiErr)
}

func (h *AnalyzeHandler) countOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	}
}
