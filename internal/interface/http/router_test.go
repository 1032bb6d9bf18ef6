package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/agents"
	"github.com/wildfireranch/commandcenter/internal/domain/agenttools"
	"github.com/wildfireranch/commandcenter/internal/domain/auth"
	"github.com/wildfireranch/commandcenter/internal/domain/classifier"
	"github.com/wildfireranch/commandcenter/internal/domain/contextcache"
	"github.com/wildfireranch/commandcenter/internal/domain/contextmgr"
	"github.com/wildfireranch/commandcenter/internal/domain/conversation"
	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
	"github.com/wildfireranch/commandcenter/internal/domain/health"
	"github.com/wildfireranch/commandcenter/internal/domain/kb"
	"github.com/wildfireranch/commandcenter/internal/domain/router"
	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
	"github.com/wildfireranch/commandcenter/internal/infra/cachestore"
	"github.com/wildfireranch/commandcenter/internal/infra/config"
	"github.com/wildfireranch/commandcenter/internal/infra/convrepo"
	"github.com/wildfireranch/commandcenter/internal/infra/docsource"
	"github.com/wildfireranch/commandcenter/internal/infra/embedder"
	"github.com/wildfireranch/commandcenter/internal/infra/kbrepo"
	"github.com/wildfireranch/commandcenter/internal/infra/telemetryrepo"
	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const defaultAuthToken = "valid-token"

type stubAuth struct{}

func (stubAuth) IssueToken(ctx context.Context, req auth.TokenRequest) (auth.TokenResponse, error) {
	return auth.TokenResponse{Token: defaultAuthToken, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (stubAuth) ValidateToken(ctx context.Context, token string) (auth.Claims, error) {
	if token != defaultAuthToken {
		return auth.Claims{}, apperrors.Wrap("invalid_token", "invalid token", nil)
	}
	return auth.Claims{Subject: "operator", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type emptySource struct{}

func (emptySource) Enumerate(context.Context) ([]docsync.SourceFile, error) { return nil, nil }
func (emptySource) Fetch(context.Context, docsync.SourceFile) (string, error) {
	return "", nil
}
func (emptySource) Preview(context.Context) (docsync.Preview, error) {
	return docsync.Preview{}, nil
}

type echoReasoner struct{ role, answer string }

func (e echoReasoner) Run(ctx context.Context, contextText, query string, tools agenttools.Registry, maxIter int) (agents.Output, error) {
	return agents.Output{Answer: e.answer, AgentRole: e.role}, nil
}

type testStack struct {
	handler *Handler
	cfg     *config.Config
}

func newTestStack(t *testing.T) testStack {
	t.Helper()

	kbStore := kbrepo.NewMemoryStore()
	kbSvc := kb.NewService(kbStore, 8, newTestLogger())
	convSvc := conversation.NewService(convrepo.NewMemoryStore(), newTestLogger())
	cache := contextcache.NewService(cachestore.NewMemoryCache(), 0, time.Hour, newTestLogger())
	contextSvc := contextmgr.NewService(classifier.New(nil), kbSvc, convSvc, cache, nil, nil, nil, newTestLogger())

	tools := agenttools.Registry{
		agenttools.KBSearch: agenttools.Tool{
			Name: agenttools.KBSearch,
			Invoke: func(ctx context.Context, args json.RawMessage) agenttools.Result {
				return agenttools.Ok([]agenttools.Citation{{Title: "Battery Policy", Text: "floor is 40%"}})
			},
		},
	}
	kbDirect := agents.NewKBDirect(tools[agenttools.KBSearch])
	manager := echoReasoner{role: agents.RoleManager, answer: "hello from manager"}

	routerSvc := router.NewService(convSvc, contextSvc, tools, manager, manager, manager, manager, kbDirect, time.Second, newTestLogger())

	counter := tokenizer.New()
	chunker := docsource.NewFixedChunker(400, 40, counter)
	single := embedder.NewSingle(embedder.NewDeterministicEmbedder(8))
	orchestrator := docsync.NewOrchestrator(emptySource{}, kbStore, chunker, embedder.NewDeterministicEmbedder(8), kbrepo.NewMemoryRunStore(), counter, docsync.Config{}, newTestLogger())

	telemetrySvc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, newTestLogger())
	require.NoError(t, telemetrySvc.Append(context.Background(), telemetry.Record{
		Source: "ranch", Timestamp: time.Now(), BatterySOC: 62, BatteryPower: 100, PVPower: 500, LoadPower: 400,
	}))

	monitor := health.NewMonitor([]health.Checker{
		health.CheckerFunc{CheckerName: "cache", Fn: func(ctx context.Context) error {
			if cache.Enabled() {
				return nil
			}
			return apperrors.Wrap("cache_disabled", "context cache disabled", nil)
		}},
	}, time.Hour, newTestLogger())

	handler := NewHandler(routerSvc, orchestrator, kbSvc, single, telemetrySvc, convSvc, monitor, stubAuth{}, "ranch", newTestLogger())

	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:        ":0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit:      config.RateLimitConfig{Enabled: false},
			Retry:          config.RetryConfig{Enabled: false},
		},
	}
	return testStack{handler: handler, cfg: cfg}
}

func performJSONRequest(method, path, body string, server *http.Server, auth bool) *httptest.ResponseRecorder {
	var payload io.Reader
	if body != "" {
		payload = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, payload)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	req.RemoteAddr = "203.0.113.1:1234"
	if auth {
		req.Header.Set("Authorization", "Bearer "+defaultAuthToken)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestRouter_HealthIsUnauthenticated(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodGet, "/api/v1/health", "", server, false)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AskRequiresAuth(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodPost, "/api/v1/ask", `{"message":"hi"}`, server, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AskSuccess(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodPost, "/api/v1/ask", `{"message":"hello"}`, server, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Response  string `json:"response"`
		AgentRole string `json:"agent_role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "hello from manager", body.Response)
	require.Equal(t, agents.RoleManager, body.AgentRole)
}

func TestRouter_AskInvalidJSON(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodPost, "/api/v1/ask", `{"message":123}`, server, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_KBPreview(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodPost, "/api/v1/kb/preview", "", server, true)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_KBSearch(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodPost, "/api/v1/kb/search", `{"query":"battery floor"}`, server, true)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_EnergyLatest(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodGet, "/api/v1/energy/latest", "", server, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var record telemetry.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.Equal(t, 62.0, record.BatterySOC)
}

func TestRouter_EnergyStats(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodGet, "/api/v1/energy/stats?hours=24", "", server, true)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ConversationsRoundTrip(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	askRec := performJSONRequest(http.MethodPost, "/api/v1/ask", `{"message":"hello"}`, server, true)
	require.Equal(t, http.StatusOK, askRec.Code)
	var askBody struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(askRec.Body.Bytes(), &askBody))

	listRec := performJSONRequest(http.MethodGet, "/api/v1/conversations", "", server, true)
	require.Equal(t, http.StatusOK, listRec.Code)

	getRec := performJSONRequest(http.MethodGet, "/api/v1/conversations/"+askBody.SessionID, "", server, true)
	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestRouter_ConversationByIDInvalidUUID(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodGet, "/api/v1/conversations/not-a-uuid", "", server, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_HealthMonitoringStatus(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodGet, "/api/v1/health/monitoring/status", "", server, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var status health.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.Healthy)
}

func TestRouter_LoginIssuesToken(t *testing.T) {
	stack := newTestStack(t)
	server := NewRouter(stack.cfg, stack.handler)

	rec := performJSONRequest(http.MethodPost, "/api/v1/auth/login", `{"operatorKey":"whatever"}`, server, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, defaultAuthToken, resp.Token)
}

func TestRouter_RateLimitExceeded(t *testing.T) {
	stack := newTestStack(t)
	stack.cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(stack.cfg, stack.handler)
	router := server.Handler

	rec1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req1.RemoteAddr = "203.0.113.1:1234"
	router.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req2.RemoteAddr = "203.0.113.1:1234"
	router.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
}
