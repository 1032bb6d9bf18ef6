package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

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
	"github.com/wildfireranch/commandcenter/internal/infra/blobstore"
	"github.com/wildfireranch/commandcenter/internal/infra/cachestore"
	"github.com/wildfireranch/commandcenter/internal/infra/config"
	"github.com/wildfireranch/commandcenter/internal/infra/convrepo"
	"github.com/wildfireranch/commandcenter/internal/infra/docsource"
	"github.com/wildfireranch/commandcenter/internal/infra/embedder"
	"github.com/wildfireranch/commandcenter/internal/infra/kbrepo"
	"github.com/wildfireranch/commandcenter/internal/infra/llm/chatgpt"
	"github.com/wildfireranch/commandcenter/internal/infra/pollers"
	"github.com/wildfireranch/commandcenter/internal/infra/telemetryapi"
	"github.com/wildfireranch/commandcenter/internal/infra/telemetryrepo"
	"github.com/wildfireranch/commandcenter/internal/infra/websearch"
	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

// providePostgresPool lazily dials the shared Postgres pool, registers
// the pgvector codec, and pings once before handing it back, mirroring
// the teacher's providers.go connectivity-gate idiom (ParseConfig ->
// NewWithConfig -> context.WithTimeout-bounded Ping). A nil return
// means the caller should fall back to its in-memory store.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using in-memory stores")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using in-memory stores", "error", err)
		return nil
	}
	registerPgVector(poolConfig, logger)
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using in-memory stores", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using in-memory stores", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres pool enabled")
	return pool
}

func registerPgVector(poolConfig *pgxpool.Config, logger *slog.Logger) {
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		var oid uint32
		if err := conn.QueryRow(ctx, "SELECT 'vector'::regtype::oid").Scan(&oid); err != nil {
			logger.Error("failed to lookup pgvector oid", "error", err)
			return err
		}
		conn.TypeMap().RegisterType(&pgtype.Type{
			Name:  "vector",
			OID:   oid,
			Codec: pgtype.TextCodec{},
		})
		return nil
	}
}

func provideKBStore(pool *pgxpool.Pool) kb.Store {
	if pool != nil {
		return kbrepo.NewPostgresStore(pool)
	}
	return kbrepo.NewMemoryStore()
}

func provideSyncRunStore(pool *pgxpool.Pool) docsync.RunStore {
	if pool != nil {
		return kbrepo.NewPostgresRunStore(pool)
	}
	return kbrepo.NewMemoryRunStore()
}

func provideConversationStore(pool *pgxpool.Pool) conversation.Store {
	if pool != nil {
		return convrepo.NewPostgresStore(pool)
	}
	return convrepo.NewMemoryStore()
}

func provideTelemetryStore(pool *pgxpool.Pool) telemetry.Store {
	if pool != nil {
		return telemetryrepo.NewPostgresStore(pool)
	}
	return telemetryrepo.NewMemoryStore()
}

// provideCache builds the Context Cache's backend: a Valkey-backed
// cache when configured and reachable, otherwise an in-process LRU
// fallback, mirroring the teacher's FAQ cache gate (ping, then
// fallback on any failure).
func provideCache(cfg *config.Config, logger *slog.Logger) contextcache.Cache {
	if !cfg.Cache.Enabled {
		return cachestore.NewMemoryCache()
	}
	opt, err := buildValkeyOptions(cfg.Cache.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return cachestore.NewMemoryCache()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return cachestore.NewMemoryCache()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		return cachestore.NewMemoryCache()
	}
	logger.Info("context cache valkey backend enabled", "addr", cfg.Cache.Addr)
	return cachestore.NewValkeyCache(client, "ctxcache")
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideTokenizer() *tokenizer.Counter {
	return tokenizer.New()
}

// provideChatGPTClient returns a nil client rather than an error when
// no API key is configured, so a from-scratch checkout still wires a
// full (degraded, deterministic-embedding-only) app instead of failing
// to start.
func provideChatGPTClient(cfg *config.Config, logger *slog.Logger) *chatgpt.Client {
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		logger.Warn("chatgpt client unavailable, reasoners will fail tool calls", "error", err)
		return nil
	}
	return client
}

// provideBatchEmbedder prefers the live ChatGPT embeddings API and
// falls back to the deterministic hash embedder when no API key is
// configured, so a from-scratch checkout still starts and syncs.
func provideBatchEmbedder(client *chatgpt.Client, cfg *config.Config, counter *tokenizer.Counter, logger *slog.Logger) docsync.Embedder {
	if client != nil && strings.TrimSpace(cfg.LLM.APIKey) != "" {
		return embedder.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, counter, logger)
	}
	logger.Warn("llm api key not set, using deterministic embedder")
	return embedder.NewDeterministicEmbedder(cfg.KB.VectorDim)
}

func provideQueryEmbedder(batch docsync.Embedder) *embedder.Single {
	return embedder.NewSingle(batch)
}

// provideDocSource builds the local source tree walker and, when the
// object storage block is configured, wraps it so oversized documents
// are also mirrored to S3-compatible storage.
func provideDocSource(cfg *config.Config, logger *slog.Logger) docsync.Source {
	local := docsource.NewLocalSource(cfg.DocSync.SourceRoot, cfg.DocSync.IncludeGlobs, cfg.DocSync.ExcludeGlobs, cfg.DocSync.MaxFileMB, logger)

	storageCfg := cfg.DocSync.Storage
	if !storageCfg.Enabled {
		return local
	}
	store, err := blobstore.NewStore(storageCfg.Endpoint, storageCfg.AccessKey, storageCfg.SecretKey, storageCfg.Bucket, storageCfg.Region, logger)
	if err != nil {
		logger.Error("failed to init blob store, skipping raw-document archival", "error", err)
		return local
	}
	return docsource.NewArchivingSource(local, store, docArchiveThresholdBytes, logger)
}

// docArchiveThresholdBytes is the size above which a synced document's
// raw text is also mirrored to object storage, independent of its
// chunked/embedded copy in the Vector Store.
const docArchiveThresholdBytes = 1 << 20

func provideChunker(cfg *config.Config, counter *tokenizer.Counter) docsync.Chunker {
	return docsource.NewFixedChunker(cfg.KB.ChunkSize.MaxTokens, cfg.KB.ChunkSize.Overlap, counter)
}

func provideDocSyncOrchestrator(source docsync.Source, store kb.Store, chunker docsync.Chunker, batchEmbedder docsync.Embedder, runs docsync.RunStore, counter *tokenizer.Counter, logger *slog.Logger) *docsync.Orchestrator {
	return docsync.NewOrchestrator(source, store, chunker, batchEmbedder, runs, counter, docsync.Config{MaxTokensPerDocument: 0}, logger)
}

func provideKBService(store kb.Store, cfg *config.Config, logger *slog.Logger) *kb.Service {
	return kb.NewService(store, cfg.KB.VectorDim, logger)
}

func provideConversationService(store conversation.Store, logger *slog.Logger) *conversation.Service {
	return conversation.NewService(store, logger)
}

func provideTelemetryService(store telemetry.Store, logger *slog.Logger) *telemetry.Service {
	return telemetry.NewService(store, 0, logger)
}

func provideContextCacheService(cache contextcache.Cache, cfg *config.Config, logger *slog.Logger) *contextcache.Service {
	return contextcache.NewService(cache, cfg.ContextCache.LocalCacheSize, cfg.ContextCache.RecoveryProbe, logger)
}

func provideClassifier(counter *tokenizer.Counter) *classifier.Classifier {
	return classifier.New(counter)
}

func provideContextMgrEmbedder(single *embedder.Single) contextmgr.Embedder {
	return single
}

func provideContextMgrService(cls *classifier.Classifier, kbSvc *kb.Service, convo *conversation.Service, cache *contextcache.Service, queryEmbedder contextmgr.Embedder, counter *tokenizer.Counter, logger *slog.Logger) *contextmgr.Service {
	return contextmgr.NewService(cls, kbSvc, convo, cache, queryEmbedder, contextmgr.NoPreferences, counter, logger)
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Enabled:      cfg.Auth.Enabled,
		Secret:       cfg.Auth.JWTSecret,
		TokenTTL:     cfg.Auth.TokenTTL,
		IssuerURL:    cfg.Auth.IssuerURL,
		OIDCClientID: cfg.Auth.OIDCClientID,
		AllowedEmail: cfg.Auth.AllowedEmail,
	}
}

func provideWebSearchClient(cfg *config.Config) *websearch.Client {
	return websearch.NewClient(cfg.WebSearch.RequestTimeout)
}

// provideWebFetcher returns nil when the Research Agent's outbound
// web tool is disabled, so NewRegistry omits web_fetch entirely.
func provideWebFetcher(client *websearch.Client, cfg *config.Config) agenttools.WebFetcher {
	if !cfg.WebSearch.Enabled {
		return nil
	}
	return websearch.NewToolAdapter(client)
}

func provideAgentToolRegistry(telemetrySvc *telemetry.Service, cfg *config.Config, kbSvc *kb.Service, queryEmbedder contextmgr.Embedder, webFetcher agenttools.WebFetcher) agenttools.Registry {
	source := telemetrySourceTag
	return agenttools.NewRegistry(telemetrySvc, source, kbSvc, queryEmbedder, agenttools.DefaultPolicy(), webFetcher)
}

func provideKBDirect(tools agenttools.Registry) *agents.KBDirect {
	return agents.NewKBDirect(tools[agenttools.KBSearch])
}

// unavailableChatClient stands in for a missing LLM credential: every
// reasoner call fails cleanly with an error the router already knows
// how to turn into an apology response, instead of dereferencing a nil
// *chatgpt.Client.
type unavailableChatClient struct{}

func (unavailableChatClient) CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	return chatgpt.ChatCompletionResponse{}, errChatClientUnavailable
}

var errChatClientUnavailable = errors.New("llm client unavailable: no api key configured")

// reasonerClient returns client if present, otherwise a client stub
// that fails every call.
func reasonerClient(client *chatgpt.Client) interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
} {
	if client == nil {
		return unavailableChatClient{}
	}
	return client
}

func provideManagerReasoner(client *chatgpt.Client, cfg *config.Config) agents.Reasoner {
	return agents.NewManager(reasonerClient(client), cfg.LLM.Model)
}

func provideSolarControllerReasoner(client *chatgpt.Client, cfg *config.Config) agents.Reasoner {
	return agents.NewSolarController(reasonerClient(client), cfg.LLM.Model)
}

func provideEnergyOrchestratorReasoner(client *chatgpt.Client, cfg *config.Config) agents.Reasoner {
	return agents.NewEnergyOrchestrator(reasonerClient(client), cfg.LLM.Model)
}

func provideResearchReasoner(client *chatgpt.Client, cfg *config.Config) agents.Reasoner {
	return agents.NewResearch(reasonerClient(client), cfg.LLM.Model)
}

func provideRouterService(
	convo *conversation.Service,
	contextMgr *contextmgr.Service,
	tools agenttools.Registry,
	manager, solarController, energyOrchestrator, research agents.Reasoner,
	kbDirect *agents.KBDirect,
	logger *slog.Logger,
) *router.Service {
	return router.NewService(convo, contextMgr, tools, manager, solarController, energyOrchestrator, research, kbDirect, 0, logger)
}

// providePollers builds the inverter/battery poller loops from config,
// leaving a poller out of the returned slice when its config disables
// it, so bootstrap never starts it.
func providePollers(cfg *config.Config, telemetrySvc *telemetry.Service, logger *slog.Logger) []*pollers.Poller {
	var built []*pollers.Poller
	if cfg.Pollers.Solar.Enabled {
		client := telemetryapi.NewClient("inverter", cfg.Pollers.Solar.Endpoint)
		limiter := pollers.NewHourlyLimiter(0)
		built = append(built, pollers.NewPoller("inverter", client, telemetrySvc, limiter, pollers.Config{
			Interval:         cfg.Pollers.Solar.Interval,
			MaxBackoff:       cfg.Pollers.Solar.MaxBackoff,
			FailureThreshold: cfg.Pollers.Solar.FailureThreshold,
		}, logger))
	}
	if cfg.Pollers.Battery.Enabled {
		client := telemetryapi.NewClient("battery", cfg.Pollers.Battery.Endpoint)
		limiter := pollers.NewHourlyLimiter(0)
		built = append(built, pollers.NewPoller("battery", client, telemetrySvc, limiter, pollers.Config{
			Interval:         cfg.Pollers.Battery.Interval,
			MaxBackoff:       cfg.Pollers.Battery.MaxBackoff,
			FailureThreshold: cfg.Pollers.Battery.FailureThreshold,
		}, logger))
	}
	return built
}

// telemetrySourceTag is the single ranch site tag every telemetry
// record and agent tool is scoped to; SPEC_FULL.md's non-goals rule
// out multi-site support.
const telemetrySourceTag = "ranch"

func provideSourceTag() string { return telemetrySourceTag }

func provideHealthMonitor(pool *pgxpool.Pool, cache contextcache.Cache, cacheSvc *contextcache.Service, builtPollers []*pollers.Poller, logger *slog.Logger) *health.Monitor {
	var checkers []health.Checker
	if pool != nil {
		checkers = append(checkers, health.CheckerFunc{CheckerName: "postgres", Fn: func(ctx context.Context) error {
			return pool.Ping(ctx)
		}})
	}
	checkers = append(checkers, health.CheckerFunc{CheckerName: "cache", Fn: func(ctx context.Context) error {
		if !cacheSvc.Enabled() {
			return nil
		}
		_, _, err := cache.Get(ctx, "healthcheck")
		return err
	}})
	for _, p := range builtPollers {
		checkers = append(checkers, p)
	}
	return health.NewMonitor(checkers, 300*time.Second, logger)
}
