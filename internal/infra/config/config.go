package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	LLM          LLMConfig          `yaml:"llm"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Cache        RedisConfig        `yaml:"cache"`
	Auth         AuthConfig         `yaml:"auth"`
	KB           KBConfig           `yaml:"kb"`
	DocSync      DocSyncConfig      `yaml:"docSync"`
	Conversation ConversationConfig `yaml:"conversation"`
	ContextCache ContextCacheConfig `yaml:"contextCache"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	ContextMgr   ContextMgrConfig   `yaml:"contextManager"`
	Agents       AgentsConfig       `yaml:"agents"`
	WebSearch    WebSearchConfig    `yaml:"webSearch"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Pollers      PollersConfig      `yaml:"pollers"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains ChatGPT/OpenAI-compatible settings.
// TODO: support routing different agent roles to different models/providers.
type LLMConfig struct {
	APIKey         string  `yaml:"apiKey"`
	BaseURL        string  `yaml:"baseUrl"`
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embeddingModel"`
	Temperature    float32 `yaml:"temperature"`
}

// PostgresConfig contains DSN and pooling settings for the shared pool.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// RedisConfig contains connection information for the Valkey-compatible cache.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AuthConfig gates mutating endpoints behind a single allow-listed principal.
type AuthConfig struct {
	Enabled       bool          `yaml:"enabled"`
	JWTSecret     string        `yaml:"jwtSecret"`
	TokenTTL      time.Duration `yaml:"tokenTtl"`
	IssuerURL     string        `yaml:"issuerUrl"`
	OIDCClientID  string        `yaml:"oidcClientId"`
	AllowedEmail  string        `yaml:"allowedEmail"`
}

// KBConfig controls chunking and vector search.
type KBConfig struct {
	VectorDim int `yaml:"vectorDim"`
	ChunkSize KBChunkConfig `yaml:"chunk"`
	SearchTopK int `yaml:"searchTopK"`
}

// KBChunkConfig bounds chunk size during document sync.
type KBChunkConfig struct {
	MaxTokens int `yaml:"maxTokens"`
	Overlap   int `yaml:"overlap"`
}

// DocSyncConfig controls the knowledge base sync pipeline.
type DocSyncConfig struct {
	SourceRoot      string              `yaml:"sourceRoot"`
	IncludeGlobs    []string            `yaml:"includeGlobs"`
	ExcludeGlobs    []string            `yaml:"excludeGlobs"`
	MaxFileMB       int                 `yaml:"maxFileMb"`
	FullSyncEvery   time.Duration       `yaml:"fullSyncEvery"`
	Storage         DocStorageConfig    `yaml:"storage"`
}

// DocStorageConfig configures the object storage used for raw document blobs.
type DocStorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// ConversationConfig controls session/message retention.
type ConversationConfig struct {
	MaxHistoryTokens   int `yaml:"maxHistoryTokens"`
	MaxHistoryMessages int `yaml:"maxHistoryMessages"`
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout"`
}

// ContextCacheConfig controls the shared-bundle cache.
type ContextCacheConfig struct {
	TTL                 time.Duration `yaml:"ttl"`
	DegradeAfterFailures int          `yaml:"degradeAfterFailures"`
	RecoveryProbe       time.Duration `yaml:"recoveryProbe"`
	LocalCacheSize      int           `yaml:"localCacheSize"`
}

// ClassifierConfig tunes the query classifier's heuristics.
type ClassifierConfig struct {
	MinConfidence float64 `yaml:"minConfidence"`
}

// ContextMgrConfig bounds the assembled context sent to a reasoner.
type ContextMgrConfig struct {
	MaxTotalTokens       int `yaml:"maxTotalTokens"`
	MaxDocTokens         int `yaml:"maxDocTokens"`
	MaxTelemetryTokens   int `yaml:"maxTelemetryTokens"`
	MaxConversationTokens int `yaml:"maxConversationTokens"`
}

// AgentsConfig controls reasoner loop limits.
type AgentsConfig struct {
	MaxToolIterations int `yaml:"maxToolIterations"`
}

// WebSearchConfig controls the Research Agent's external web tool.
type WebSearchConfig struct {
	Enabled        bool          `yaml:"enabled"`
	UserAgent      string        `yaml:"userAgent"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	MaxResultBytes int64         `yaml:"maxResultBytes"`
}

// TelemetryConfig controls time-series retention and degradation thresholds.
type TelemetryConfig struct {
	RetentionDays     int `yaml:"retentionDays"`
	LowConfidenceGapMinutes int `yaml:"lowConfidenceGapMinutes"`
}

// PollersConfig controls the background polling loops.
type PollersConfig struct {
	Solar   PollerConfig `yaml:"solar"`
	Battery PollerConfig `yaml:"battery"`
}

// PollerConfig controls a single background poller's cadence and backoff.
type PollerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Endpoint         string        `yaml:"endpoint"`
	Interval         time.Duration `yaml:"interval"`
	MaxBackoff       time.Duration `yaml:"maxBackoff"`
	FailureThreshold int           `yaml:"failureThreshold"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				*dst = parsed
			}
		}
	}
	num32 := func(key string, dst *int32) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				*dst = int32(parsed)
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "1" || strings.EqualFold(v, "true")
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				*dst = parsed
			}
		}
	}

	str("HTTP_ADDRESS", &cfg.HTTP.Address)
	duration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	duration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}
	boolean("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	num("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	num("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	boolean("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	num("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	duration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)

	str("LLM_API_KEY", &cfg.LLM.APIKey)
	str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("LLM_EMBEDDING_MODEL", &cfg.LLM.EmbeddingModel)
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}

	str("POSTGRES_DSN", &cfg.Postgres.DSN)
	num32("POSTGRES_MAX_CONNS", &cfg.Postgres.MaxConns)
	num32("POSTGRES_MIN_CONNS", &cfg.Postgres.MinConns)

	boolean("CACHE_ENABLED", &cfg.Cache.Enabled)
	str("CACHE_ADDR", &cfg.Cache.Addr)

	boolean("AUTH_ENABLED", &cfg.Auth.Enabled)
	str("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	duration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
	str("AUTH_ISSUER_URL", &cfg.Auth.IssuerURL)
	str("AUTH_OIDC_CLIENT_ID", &cfg.Auth.OIDCClientID)
	str("AUTH_ALLOWED_EMAIL", &cfg.Auth.AllowedEmail)

	num("KB_VECTOR_DIM", &cfg.KB.VectorDim)
	num("KB_CHUNK_MAX_TOKENS", &cfg.KB.ChunkSize.MaxTokens)
	num("KB_CHUNK_OVERLAP", &cfg.KB.ChunkSize.Overlap)
	num("KB_SEARCH_TOP_K", &cfg.KB.SearchTopK)

	str("DOCSYNC_SOURCE_ROOT", &cfg.DocSync.SourceRoot)
	if v := os.Getenv("DOCSYNC_INCLUDE_GLOBS"); v != "" {
		cfg.DocSync.IncludeGlobs = splitAndTrim(v)
	}
	if v := os.Getenv("DOCSYNC_EXCLUDE_GLOBS"); v != "" {
		cfg.DocSync.ExcludeGlobs = splitAndTrim(v)
	}
	num("DOCSYNC_MAX_FILE_MB", &cfg.DocSync.MaxFileMB)
	duration("DOCSYNC_FULL_SYNC_EVERY", &cfg.DocSync.FullSyncEvery)
	boolean("DOCSYNC_STORAGE_ENABLED", &cfg.DocSync.Storage.Enabled)
	str("DOCSYNC_STORAGE_ENDPOINT", &cfg.DocSync.Storage.Endpoint)
	str("DOCSYNC_STORAGE_ACCESS_KEY", &cfg.DocSync.Storage.AccessKey)
	str("DOCSYNC_STORAGE_SECRET_KEY", &cfg.DocSync.Storage.SecretKey)
	str("DOCSYNC_STORAGE_BUCKET", &cfg.DocSync.Storage.Bucket)
	str("DOCSYNC_STORAGE_REGION", &cfg.DocSync.Storage.Region)

	num("CONVERSATION_MAX_HISTORY_TOKENS", &cfg.Conversation.MaxHistoryTokens)
	num("CONVERSATION_MAX_HISTORY_MESSAGES", &cfg.Conversation.MaxHistoryMessages)
	duration("CONVERSATION_SESSION_IDLE_TIMEOUT", &cfg.Conversation.SessionIdleTimeout)

	duration("CONTEXT_CACHE_TTL", &cfg.ContextCache.TTL)
	num("CONTEXT_CACHE_DEGRADE_AFTER_FAILURES", &cfg.ContextCache.DegradeAfterFailures)
	duration("CONTEXT_CACHE_RECOVERY_PROBE", &cfg.ContextCache.RecoveryProbe)
	num("CONTEXT_CACHE_LOCAL_SIZE", &cfg.ContextCache.LocalCacheSize)

	if v := os.Getenv("CLASSIFIER_MIN_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Classifier.MinConfidence = parsed
		}
	}

	num("CONTEXT_MGR_MAX_TOTAL_TOKENS", &cfg.ContextMgr.MaxTotalTokens)
	num("CONTEXT_MGR_MAX_DOC_TOKENS", &cfg.ContextMgr.MaxDocTokens)
	num("CONTEXT_MGR_MAX_TELEMETRY_TOKENS", &cfg.ContextMgr.MaxTelemetryTokens)
	num("CONTEXT_MGR_MAX_CONVERSATION_TOKENS", &cfg.ContextMgr.MaxConversationTokens)

	num("AGENTS_MAX_TOOL_ITERATIONS", &cfg.Agents.MaxToolIterations)

	boolean("WEBSEARCH_ENABLED", &cfg.WebSearch.Enabled)
	str("WEBSEARCH_USER_AGENT", &cfg.WebSearch.UserAgent)
	duration("WEBSEARCH_REQUEST_TIMEOUT", &cfg.WebSearch.RequestTimeout)

	num("TELEMETRY_RETENTION_DAYS", &cfg.Telemetry.RetentionDays)
	num("TELEMETRY_LOW_CONFIDENCE_GAP_MINUTES", &cfg.Telemetry.LowConfidenceGapMinutes)

	boolean("POLLERS_SOLAR_ENABLED", &cfg.Pollers.Solar.Enabled)
	str("POLLERS_SOLAR_ENDPOINT", &cfg.Pollers.Solar.Endpoint)
	duration("POLLERS_SOLAR_INTERVAL", &cfg.Pollers.Solar.Interval)
	duration("POLLERS_SOLAR_MAX_BACKOFF", &cfg.Pollers.Solar.MaxBackoff)
	num("POLLERS_SOLAR_FAILURE_THRESHOLD", &cfg.Pollers.Solar.FailureThreshold)
	boolean("POLLERS_BATTERY_ENABLED", &cfg.Pollers.Battery.Enabled)
	str("POLLERS_BATTERY_ENDPOINT", &cfg.Pollers.Battery.Endpoint)
	duration("POLLERS_BATTERY_INTERVAL", &cfg.Pollers.Battery.Interval)
	duration("POLLERS_BATTERY_MAX_BACKOFF", &cfg.Pollers.Battery.MaxBackoff)
	num("POLLERS_BATTERY_FAILURE_THRESHOLD", &cfg.Pollers.Battery.FailureThreshold)
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/ask/stream",
					"/api/v1/kb/sync",
				},
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
		},
		Postgres: PostgresConfig{MaxConns: 10, MinConns: 2},
		Cache:    RedisConfig{Enabled: false},
		Auth: AuthConfig{
			Enabled:  false,
			TokenTTL: 12 * time.Hour,
		},
		KB: KBConfig{
			VectorDim:  1536,
			ChunkSize:  KBChunkConfig{MaxTokens: 800, Overlap: 80},
			SearchTopK: 8,
		},
		DocSync: DocSyncConfig{
			SourceRoot:    "./knowledge",
			IncludeGlobs:  []string{"*.md", "*.txt"},
			MaxFileMB:     20,
			FullSyncEvery: 24 * time.Hour,
		},
		Conversation: ConversationConfig{
			MaxHistoryTokens:   1500,
			MaxHistoryMessages: 20,
			SessionIdleTimeout: 30 * time.Minute,
		},
		ContextCache: ContextCacheConfig{
			TTL:                  10 * time.Minute,
			DegradeAfterFailures: 3,
			RecoveryProbe:        30 * time.Second,
			LocalCacheSize:       256,
		},
		Classifier: ClassifierConfig{MinConfidence: 0.35},
		ContextMgr: ContextMgrConfig{
			MaxTotalTokens:        6000,
			MaxDocTokens:          3000,
			MaxTelemetryTokens:    1200,
			MaxConversationTokens: 1200,
		},
		Agents: AgentsConfig{MaxToolIterations: 6},
		WebSearch: WebSearchConfig{
			Enabled:        false,
			UserAgent:      "commandcenter-research-agent/1.0",
			RequestTimeout: 10 * time.Second,
			MaxResultBytes: 1 << 20,
		},
		Telemetry: TelemetryConfig{
			RetentionDays:           90,
			LowConfidenceGapMinutes: 15,
		},
		Pollers: PollersConfig{
			Solar: PollerConfig{
				Enabled:          true,
				Endpoint:         "http://inverter.local/api/status",
				Interval:         1 * time.Minute,
				MaxBackoff:       10 * time.Minute,
				FailureThreshold: 5,
			},
			Battery: PollerConfig{
				Enabled:          true,
				Endpoint:         "http://battery-monitor.local/api/status",
				Interval:         5 * time.Minute,
				MaxBackoff:       30 * time.Minute,
				FailureThreshold: 5,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret cannot be empty when auth is enabled")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return errors.New("cache.addr cannot be empty when cache is enabled")
	}
	if c.KB.VectorDim <= 0 {
		return errors.New("kb.vectorDim must be positive")
	}
	if c.KB.ChunkSize.MaxTokens <= 0 {
		return errors.New("kb.chunk.maxTokens must be positive")
	}
	if c.KB.ChunkSize.Overlap < 0 {
		return errors.New("kb.chunk.overlap cannot be negative")
	}
	if c.DocSync.SourceRoot == "" {
		return errors.New("docSync.sourceRoot cannot be empty")
	}
	if c.DocSync.MaxFileMB <= 0 {
		return errors.New("docSync.maxFileMb must be positive")
	}
	if c.DocSync.Storage.Enabled && strings.TrimSpace(c.DocSync.Storage.Bucket) == "" {
		return errors.New("docSync.storage.bucket cannot be empty when storage is enabled")
	}
	if c.Conversation.MaxHistoryTokens < 0 {
		return errors.New("conversation.maxHistoryTokens cannot be negative")
	}
	if c.ContextCache.TTL < 0 {
		return errors.New("contextCache.ttl cannot be negative")
	}
	if c.ContextCache.DegradeAfterFailures <= 0 {
		return errors.New("contextCache.degradeAfterFailures must be positive")
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return errors.New("classifier.minConfidence must be between 0 and 1")
	}
	if c.ContextMgr.MaxTotalTokens <= 0 {
		return errors.New("contextManager.maxTotalTokens must be positive")
	}
	if c.Agents.MaxToolIterations <= 0 {
		return errors.New("agents.maxToolIterations must be positive")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var result []string
	for _, part := range parts {
		val := strings.TrimSpace(part)
		if val != "" {
			result = append(result, val)
		}
	}
	return result
}
