package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wildfireranch/commandcenter/internal/domain/auth"
	"github.com/wildfireranch/commandcenter/internal/domain/conversation"
	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
	"github.com/wildfireranch/commandcenter/internal/domain/health"
	"github.com/wildfireranch/commandcenter/internal/domain/kb"
	"github.com/wildfireranch/commandcenter/internal/domain/router"
	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
	"github.com/wildfireranch/commandcenter/pkg/metrics"
)

// queryEmbedder is the single-text embedding dependency /kb/search
// uses to turn a query string into a vector. It is satisfied by
// *embedder.Single.
type queryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Handler wires the HTTP transport (C11 Query API) to the domain
// services it fronts.
type Handler struct {
	routerSvc     *router.Service
	docsyncSvc    *docsync.Orchestrator
	kbSvc         *kb.Service
	queryEmbedder queryEmbedder
	telemetry     *telemetry.Service
	convo         *conversation.Service
	health        *health.Monitor
	authSvc       auth.Service
	source        string
	logger        *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(
	routerSvc *router.Service,
	docsyncSvc *docsync.Orchestrator,
	kbSvc *kb.Service,
	queryEmbedder queryEmbedder,
	telemetrySvc *telemetry.Service,
	convo *conversation.Service,
	healthMonitor *health.Monitor,
	authSvc auth.Service,
	source string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		routerSvc:     routerSvc,
		docsyncSvc:    docsyncSvc,
		kbSvc:         kbSvc,
		queryEmbedder: queryEmbedder,
		telemetry:     telemetrySvc,
		convo:         convo,
		health:        healthMonitor,
		authSvc:       authSvc,
		source:        source,
		logger:        logger.With("component", "http.handler"),
	}
}

// Login implements POST /auth/login: exchanges the pre-shared
// operator key for a bearer token. There is no registration, refresh,
// or per-user profile endpoint — one principal, one credential.
func (h *Handler) Login(c *gin.Context) {
	var req auth.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.authSvc.IssueToken(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case apperrors.IsCode(err, "invalid_credentials"):
			status = http.StatusUnauthorized
		case apperrors.IsCode(err, "auth_disabled"):
			status = http.StatusNotFound
		}
		abortWithError(c, NewHTTPError(status, "login_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

type askRequest struct {
	Query     string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type askResponse struct {
	Response      string             `json:"response"`
	SessionID     string             `json:"session_id"`
	AgentRole     string             `json:"agent_role"`
	Duration      int64              `json:"duration_ms"`
	ContextTokens int                `json:"context_tokens"`
	CacheHit      bool               `json:"cache_hit"`
	QueryType     string             `json:"query_type"`
	Usage         metrics.TokenUsage `json:"usage,omitempty"`
}

// Ask implements POST /ask: the C10 Manager/Router contract.
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.routerSvc.Handle(c.Request.Context(), req.UserID, req.SessionID, req.Query)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "ask_failed", errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, askResponse{
		Response:      resp.ResponseText,
		SessionID:     resp.SessionID.String(),
		AgentRole:     resp.AgentRole,
		Duration:      resp.Duration.Milliseconds(),
		ContextTokens: resp.Tokens,
		CacheHit:      resp.CacheHit,
		QueryType:     resp.QueryType,
		Usage:         resp.Usage,
	})
}

// KBSync triggers POST /kb/sync: starts a sync run (full unless
// ?mode=incremental) and streams its progress as Server-Sent Events,
// following the teacher's SummarizeStream SSE-writer pattern.
func (h *Handler) KBSync(c *gin.Context) {
	mode := docsync.ModeFull
	if c.Query("mode") == "incremental" {
		mode = docsync.ModeIncremental
	}

	events, err := h.docsyncSvc.Sync(c.Request.Context(), mode, "api")
	if err != nil {
		status := http.StatusInternalServerError
		code := "sync_failed"
		if apperrors.IsCode(err, "capacity") {
			status = http.StatusConflict
			code = "sync_in_progress"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("marshal sync event failed", "error", err)
			continue
		}
		c.Writer.Write([]byte("data: "))
		c.Writer.Write(payload)
		c.Writer.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// KBPreview implements POST /kb/preview: a dry-run summary of what a
// sync would touch.
func (h *Handler) KBPreview(c *gin.Context) {
	preview, err := h.docsyncSvc.Preview(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "preview_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, preview)
}

type kbSearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// KBSearch implements POST /kb/search: a direct similarity search
// against the Vector Store, independent of the /ask routing path.
func (h *Handler) KBSearch(c *gin.Context) {
	var req kbSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	k := req.K
	if k <= 0 {
		k = 5
	}

	embedding, err := h.queryEmbedder.Embed(c.Request.Context(), req.Query)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadGateway, "embedding_failed", errMessage(err), err))
		return
	}
	results, err := h.kbSvc.Search(c.Request.Context(), embedding, k, kb.ListFilter{})
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "search_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// EnergyLatest implements GET /energy/latest.
func (h *Handler) EnergyLatest(c *gin.Context) {
	record, ok, err := h.telemetry.Latest(c.Request.Context(), h.source)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "fetch_failed", errMessage(err), err))
		return
	}
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "no_data", "no telemetry recorded yet", nil))
		return
	}
	c.JSON(http.StatusOK, record)
}

// EnergyStats implements GET /energy/stats?hours=N.
func (h *Handler) EnergyStats(c *gin.Context) {
	hours := telemetry.ClampHours(parseIntQuery(c, "hours", 24))
	stats, err := h.telemetry.Stats(c.Request.Context(), h.source, time.Duration(hours)*time.Hour)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "fetch_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Conversations implements GET /conversations.
func (h *Handler) Conversations(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20)
	sessions, err := h.convo.ListSessions(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "fetch_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ConversationByID implements GET /conversations/{id}.
func (h *Handler) ConversationByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid session id", err))
		return
	}
	session, messages, err := h.convo.GetSession(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "fetch_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "messages": messages})
}

// Health implements GET /health: a minimal liveness check.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthMonitoringStatus implements GET /health/monitoring/status: the
// aggregated DB/poller/cache/record-count health snapshot (C-health).
func (h *Handler) HealthMonitoringStatus(c *gin.Context) {
	status := h.health.Status()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	out, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return out
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
