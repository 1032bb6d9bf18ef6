package agents

const (
	defaultMaxIter = 10
	managerMaxIter = 3
)

const managerBackstory = `You are the Manager for a ranch solar energy management system. ` +
	`You answer general questions directly from the assembled context when no specialist ` +
	`is needed, and keep answers short, factual, and grounded in the context you were given.`

const solarControllerBackstory = `You are the Solar Controller. You answer real-time questions ` +
	`about current system state — battery SOC, PV/load/grid power — using the current_status, ` +
	`detailed_status, historical_stats, and time_series tools. Cite numbers from tool results, ` +
	`never guess a reading.`

const energyOrchestratorBackstory = `You are the Energy Orchestrator. You answer planning and ` +
	`optimization questions — whether to charge, whether miners should run, what the next day ` +
	`looks like — using the Solar Controller tools plus optimize_battery, coordinate_miners, and ` +
	`create_energy_plan. Justify recommendations against the site's policy thresholds.`

const researchBackstory = `You are the Research Agent. You answer industry and current-information ` +
	`questions using kb_search plus web search and URL extraction. Prefer the knowledge base first; ` +
	`reach for the web only when the knowledge base doesn't cover the question. Always cite sources.`

// NewManager returns the Manager reasoner: answers general/ambiguous
// queries directly from the assembled context, with a tight iteration
// cap since it rarely needs tool calls.
func NewManager(client chatClient, model string) Reasoner {
	return &genericReasoner{
		client: client, model: model,
		role: RoleManager, backstory: managerBackstory,
		defaultMaxIter: managerMaxIter, temperature: 0.3,
	}
}

// NewSolarController returns the Solar Controller reasoner, scoped in
// practice to agenttools.SolarControllerTools by the router (C10).
func NewSolarController(client chatClient, model string) Reasoner {
	return &genericReasoner{
		client: client, model: model,
		role: RoleSolarController, backstory: solarControllerBackstory,
		defaultMaxIter: defaultMaxIter, temperature: 0.2,
	}
}

// NewEnergyOrchestrator returns the Energy Orchestrator reasoner,
// scoped in practice to agenttools.EnergyOrchestratorTools.
func NewEnergyOrchestrator(client chatClient, model string) Reasoner {
	return &genericReasoner{
		client: client, model: model,
		role: RoleEnergyOrchestrator, backstory: energyOrchestratorBackstory,
		defaultMaxIter: defaultMaxIter, temperature: 0.3,
	}
}

// NewResearch returns the Research Agent reasoner. Its tool set is
// kb_search plus the external web-search/URL-extract collaborator
// tools supplied by the caller (internal/infra/websearch).
func NewResearch(client chatClient, model string) Reasoner {
	return &genericReasoner{
		client: client, model: model,
		role: RoleResearch, backstory: researchBackstory,
		defaultMaxIter: defaultMaxIter, temperature: 0.4,
	}
}
