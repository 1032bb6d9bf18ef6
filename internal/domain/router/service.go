package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildfireranch/commandcenter/internal/domain/agents"
	"github.com/wildfireranch/commandcenter/internal/domain/agenttools"
	"github.com/wildfireranch/commandcenter/internal/domain/classifier"
	"github.com/wildfireranch/commandcenter/internal/domain/contextcache"
	"github.com/wildfireranch/commandcenter/internal/domain/contextmgr"
	"github.com/wildfireranch/commandcenter/internal/domain/conversation"
)

// defaultReasonerTimeout bounds a single reasoner run, mirroring the
// teacher's context.WithTimeout-around-a-ping idiom (providers.go) but
// sized for a multi-turn tool-calling loop rather than a connectivity
// check.
const defaultReasonerTimeout = 45 * time.Second

// Service is the Manager/Router (C10): it owns no state of its own
// beyond its collaborators, and never retries — a failure at any step
// degrades to a direct answer rather than propagating as a 5xx.
type Service struct {
	convo      *conversation.Service
	contextMgr *contextmgr.Service
	tools      agenttools.Registry

	manager            agents.Reasoner
	solarController    agents.Reasoner
	energyOrchestrator agents.Reasoner
	research           agents.Reasoner
	kbDirect           *agents.KBDirect

	reasonerTimeout time.Duration
	log             *slog.Logger
}

// NewService wires the router's collaborators. reasonerTimeout <= 0
// uses defaultReasonerTimeout.
func NewService(
	convo *conversation.Service,
	contextMgr *contextmgr.Service,
	tools agenttools.Registry,
	manager, solarController, energyOrchestrator, research agents.Reasoner,
	kbDirect *agents.KBDirect,
	reasonerTimeout time.Duration,
	log *slog.Logger,
) *Service {
	if reasonerTimeout <= 0 {
		reasonerTimeout = defaultReasonerTimeout
	}
	return &Service{
		convo: convo, contextMgr: contextMgr, tools: tools,
		manager: manager, solarController: solarController,
		energyOrchestrator: energyOrchestrator, research: research,
		kbDirect:        kbDirect,
		reasonerTimeout: reasonerTimeout,
		log:             log.With("component", "router.service"),
	}
}

// Handle implements the C10 contract: resolve session, fast-path or
// classify+assemble+delegate, run the selected agent, persist both
// turns, and return a response. It never returns an error for
// reasoner/persistence failures — those degrade in place, per spec;
// it only returns an error when session resolution itself fails
// (a storage outage, not a malformed id).
func (s *Service) Handle(ctx context.Context, userID, rawSessionID, query string) (Response, error) {
	session, err := s.convo.ResolveSession(ctx, rawSessionID)
	if err != nil {
		return Response{}, fmt.Errorf("resolve session: %w", err)
	}

	s.persist(ctx, session.ID, conversation.RoleUser, query, "", "", 0)

	var out agents.Output
	var queryType string
	var cacheHit bool
	var tokens int

	if matchesFastPath(query) {
		out = s.kbDirect.Answer(ctx, query)
		queryType = classifier.General.String()
	} else {
		bundle, hit := s.contextMgr.Assemble(ctx, userID, session.ID, query)
		cacheHit = hit
		queryType = bundle.QueryType
		tokens = bundle.TotalTokens
		contextText := buildContextText(bundle)

		reasoner, toolSet := s.selectSpecialist(classifier.QueryType(bundle.QueryType))

		runCtx, cancel := context.WithTimeout(ctx, s.reasonerTimeout)
		result, runErr := reasoner.Run(runCtx, contextText, query, toolSet, 0)
		cancel()
		if runErr != nil {
			s.log.Warn("reasoner run failed, returning apology", "error", runErr, "query_type", queryType)
			result = agents.Output{
				Answer:    "Sorry, I wasn't able to put together an answer just now. Please try again.",
				AgentRole: agents.RoleManager,
			}
		}
		out = result
	}

	s.persist(ctx, session.ID, conversation.RoleAssistant, out.Answer, agentSlug(out.AgentRole), out.AgentRole, out.Duration)

	return Response{
		SessionID:    session.ID,
		ResponseText: out.Answer,
		AgentRole:    out.AgentRole,
		Duration:     out.Duration,
		Tokens:       tokens,
		CacheHit:     cacheHit,
		QueryType:    queryType,
		Usage:        out.Usage,
	}, nil
}

// selectSpecialist implements step 3's category -> specialist mapping.
// SYSTEM is routed to the Solar Controller unconditionally: the
// classifier's SYSTEM vocabulary (rules.go) is itself the "real-time
// vocabulary" signal, so no separate heuristic-verb layer is needed on
// top of it.
func (s *Service) selectSpecialist(qt classifier.QueryType) (agents.Reasoner, agenttools.Registry) {
	switch qt {
	case classifier.Research:
		return s.research, s.tools.Subset(agenttools.ResearchTools...)
	case classifier.Planning:
		return s.energyOrchestrator, s.tools.Subset(agenttools.EnergyOrchestratorTools...)
	case classifier.System:
		return s.solarController, s.tools.Subset(agenttools.SolarControllerTools...)
	default:
		return s.manager, agenttools.Registry{}
	}
}

func (s *Service) persist(ctx context.Context, sessionID uuid.UUID, role conversation.Role, content, agentUsed, agentRole string, duration time.Duration) {
	_, err := s.convo.AppendMessage(ctx, conversation.NewMessageInput{
		SessionID: sessionID, Role: role, Content: content,
		AgentUsed: agentUsed, AgentRole: agentRole, Duration: duration,
	})
	if err != nil {
		s.log.Error("failed to persist conversation message", "error", err, "session_id", sessionID)
	}
}

func matchesFastPath(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range fastPathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// agentSlug renders a display role ("Solar Controller") into the
// short machine-readable form conversation.Message.AgentUsed stores.
func agentSlug(role string) string {
	return strings.ReplaceAll(strings.ToLower(role), " ", "_")
}

// buildContextText flattens a ContextBundle's sections into the single
// text block a reasoner's system prompt is built from.
func buildContextText(bundle contextcache.Bundle) string {
	var parts []string
	if bundle.SystemText != "" {
		parts = append(parts, "# System context\n"+bundle.SystemText)
	}
	if bundle.KBText != "" {
		parts = append(parts, "# Knowledge base\n"+bundle.KBText)
	}
	if bundle.ConversationText != "" {
		parts = append(parts, "# Recent conversation\n"+bundle.ConversationText)
	}
	if bundle.UserText != "" {
		parts = append(parts, "# User preferences\n"+bundle.UserText)
	}
	return strings.Join(parts, "\n\n")
}
