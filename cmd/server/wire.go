//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/wildfireranch/commandcenter/internal/bootstrap"
	"github.com/wildfireranch/commandcenter/internal/domain/auth"
	"github.com/wildfireranch/commandcenter/internal/infra/config"
	httpiface "github.com/wildfireranch/commandcenter/internal/interface/http"
	"github.com/wildfireranch/commandcenter/pkg/logger"
)

// initializeApp wires the full dependency graph. Run `go generate
// ./cmd/server` to regenerate wire_gen.go after changing a provider's
// signature here; wire_gen.go is committed so the module builds
// without the wire binary installed.
func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,

		providePostgresPool,
		provideTokenizer,
		provideCache,
		provideChatGPTClient,
		provideWebSearchClient,
		provideWebFetcher,

		provideKBStore,
		provideSyncRunStore,
		provideConversationStore,
		provideTelemetryStore,

		provideKBService,
		provideConversationService,
		provideTelemetryService,
		provideContextCacheService,
		provideClassifier,

		provideBatchEmbedder,
		provideQueryEmbedder,
		provideContextMgrEmbedder,
		provideDocSource,
		provideChunker,
		provideDocSyncOrchestrator,
		provideContextMgrService,

		provideAgentToolRegistry,
		provideKBDirect,
		provideManagerReasoner,
		provideSolarControllerReasoner,
		provideEnergyOrchestratorReasoner,
		provideResearchReasoner,
		provideRouterService,

		provideAuthConfig,
		auth.NewService,

		providePollers,
		provideHealthMonitor,
		provideSourceTag,

		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
