package classifier

// rule maps one vocabulary phrase to the category it votes for and the
// weight that vote carries. Longer, more specific phrases carry more
// weight than single common words so a multi-word match dominates a
// coincidental single-word overlap.
type rule struct {
	phrase string
	weight float64
	qtype  QueryType
}

// defaultRules implements the heuristics from the category-routing
// table: hardware/possessive vocabulary votes SYSTEM, comparative/
// industry vocabulary votes RESEARCH, imperative/planning vocabulary
// votes PLANNING. Anything left unmatched falls through to GENERAL.
//
// The set is deliberately documented here, not scattered across code,
// so it can be extended without hunting for every call site (see the
// fast-path keyword list in router/types.go for the same reasoning).
var defaultRules = []rule{
	// SYSTEM: first-person possessives over hardware state.
	{"my battery", 2.0, System},
	{"my soc", 2.0, System},
	{"my panels", 2.0, System},
	{"my inverter", 2.0, System},
	{"the miners", 1.5, System},
	{"state of charge", 1.5, System},
	{"battery level", 1.5, System},
	{"battery soc", 1.5, System},
	{"current status", 1.5, System},
	{"current power", 1.5, System},
	{"grid power", 1.0, System},
	{"pv power", 1.0, System},
	{"solar output", 1.0, System},
	{"how much power", 1.0, System},
	{"how full", 1.0, System},
	{"battery", 0.5, System},
	{"inverter", 0.5, System},
	{"miner", 0.5, System},
	{"soc", 0.5, System},

	// RESEARCH: comparative / industry / market vocabulary.
	{"best practices", 2.0, Research},
	{"industry trend", 2.0, Research},
	{"latest trends", 2.0, Research},
	{"market price", 1.5, Research},
	{"compare", 1.0, Research},
	{"comparison", 1.0, Research},
	{"trends", 1.0, Research},
	{"latest", 1.0, Research},
	{"current market", 1.5, Research},
	{"industry", 0.5, Research},
	{"research", 0.5, Research},
	{"article", 0.5, Research},
	{"study", 0.5, Research},

	// PLANNING: imperative/optimization vocabulary. "should we" outweighs
	// a bare System hardware-noun mention (e.g. "should we run the
	// miners") since an explicit plan question takes priority over an
	// incidental equipment reference.
	{"should we", 2.5, Planning},
	{"when should", 2.0, Planning},
	{"what if we", 1.5, Planning},
	{"create a plan", 2.0, Planning},
	{"energy plan", 1.5, Planning},
	{"optimize", 1.5, Planning},
	{"optimization", 1.5, Planning},
	{"schedule", 1.0, Planning},
	{"plan", 1.0, Planning},
	{"strategy", 1.0, Planning},
	{"coordinate", 1.0, Planning},
}
