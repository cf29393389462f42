package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meysamhadeli/repoaudit/pipeline"
	"github.com/meysamhadeli/repoaudit/report"
	"github.com/meysamhadeli/repoaudit/source_acquirer"
	"github.com/meysamhadeli/repoaudit/utils"
)

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	URL      string `json:"url"`
	Token    string `json:"token,omitempty"`
	Revision string `json:"revision,omitempty"`
}

// AnalyzeResponse is the success body of POST /analyze.
type AnalyzeResponse struct {
	*report.AnalysisReport
	Coverage Coverage `json:"coverage"`
}

// Coverage summarises the manifest for API callers.
type Coverage struct {
	Included        int      `json:"included"`
	Truncated       []string `json:"truncated"`
	Omitted         int      `json:"omitted"`
	Skipped         int      `json:"skipped"`
	Warnings        int      `json:"warnings"`
	BudgetExhausted bool     `json:"budget_exhausted"`
	Consumed        int      `json:"consumed"`
	Budget          int      `json:"budget"`
	EstimatedTokens int      `json:"estimated_tokens"`
	PayloadDigest   string   `json:"payload_digest"`
	Revision        string   `json:"revision,omitempty"`
	Cached          bool     `json:"cached"`
}

type AnalyzeHandler struct {
	auditor      Auditor
	defaultToken string
	timeout      time.Duration
	logger       *slog.Logger
}

func NewAnalyzeHandler(auditor Auditor, defaultToken string, timeout time.Duration, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeHandler{auditor: auditor, defaultToken: defaultToken, timeout: timeout, logger: logger}
}

func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	token := req.Token
	if token == "" && source_acquirer.Host(req.URL) == "github.com" {
		token = h.defaultToken
	}
	cred := source_acquirer.NewCredential(token)

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.auditor.Run(ctx, source_acquirer.RepositoryReference{URL: req.URL, Revision: req.Revision}, cred)
	if err != nil {
		status, body := errorResponse(err, token)
		h.logger.WarnContext(ctx, "audit failed", "status", status, "stage", body["stage"], "error", body["error"])
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		AnalysisReport: result.Report,
		Coverage: Coverage{
			Included:        len(result.Manifest.Included),
			Truncated:       result.Manifest.Truncated,
			Omitted:         len(result.Manifest.Omitted),
			Skipped:         len(result.Manifest.Skipped),
			Warnings:        len(result.Manifest.Warnings),
			BudgetExhausted: result.Manifest.BudgetExhausted,
			Consumed:        result.Manifest.Consumed,
			Budget:          result.Manifest.Budget,
			EstimatedTokens: result.EstimatedTokens,
			PayloadDigest:   result.PayloadDigest,
			Revision:        result.Revision,
			Cached:          result.Cached,
		},
	})
}

// errorResponse maps a pipeline failure to a status code and body. The
// message is scrubbed of the request token.
func errorResponse(err error, token string) (int, gin.H) {
	body := gin.H{"error": utils.ScrubSecret(err.Error(), token)}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		body["stage"] = string(stageErr.Stage)
	}

	var reportErr *report.ReportError
	switch {
	case errors.As(err, &reportErr):
		body["kind"] = reportErr.KindName()
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, body
	case errors.Is(err, source_acquirer.ErrInvalidReference):
		return http.StatusBadRequest, body
	case errors.Is(err, source_acquirer.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, source_acquirer.ErrAuth):
		return http.StatusForbidden, body
	case errors.Is(err, source_acquirer.ErrNetwork):
		return http.StatusBadGateway, body
	case stageErr != nil && stageErr.Stage == pipeline.StageGenerate:
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}
