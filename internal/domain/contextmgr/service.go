package contextmgr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/wildfireranch/commandcenter/internal/domain/classifier"
	"github.com/wildfireranch/commandcenter/internal/domain/contextcache"
	"github.com/wildfireranch/commandcenter/internal/domain/conversation"
	"github.com/wildfireranch/commandcenter/internal/domain/kb"
	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

// truncationPriority lists section names from lowest to highest
// priority: the first name is the first one trimmed when a bundle is
// over budget, per SPEC_FULL.md's user -> conversation -> KB -> system
// order.
var truncationPriority = []string{"user", "conversation", "kb", "system"}

// Service assembles budgeted ContextBundles per the classifier's
// category, caching the result through contextcache.Service.
type Service struct {
	classifier *classifier.Classifier
	kb         *kb.Service
	convo      *conversation.Service
	cache      *contextcache.Service
	embedder   Embedder
	prefs      PreferenceProvider
	counter    *tokenizer.Counter
	log        *slog.Logger
}

// NewService constructs a Service. prefs/counter may be nil to use
// their defaults.
func NewService(cls *classifier.Classifier, kbSvc *kb.Service, convo *conversation.Service, cache *contextcache.Service, embedder Embedder, prefs PreferenceProvider, counter *tokenizer.Counter, log *slog.Logger) *Service {
	if prefs == nil {
		prefs = NoPreferences
	}
	if counter == nil {
		counter = tokenizer.New()
	}
	return &Service{
		classifier: cls,
		kb:         kbSvc,
		convo:      convo,
		cache:      cache,
		embedder:   embedder,
		prefs:      prefs,
		counter:    counter,
		log:        log.With("component", "contextmgr.service"),
	}
}

// Assemble implements the C7 contract: classify, check the cache, and
// on a miss build a fresh bundle from the category's sources, enforce
// its token budget, cache it, and return it. sessionID may be uuid.Nil
// when the caller has no conversation to draw history from.
func (s *Service) Assemble(ctx context.Context, userID string, sessionID uuid.UUID, text string) (contextcache.Bundle, bool) {
	queryType, _ := s.classifier.Classify(text)
	key := contextcache.Key(userID, text, string(queryType))

	if bundle, ok := s.cache.Get(ctx, key); ok {
		bundle.CacheHit = true
		return bundle, true
	}

	kbChunks, kbDegraded := s.kbChunks(ctx, queryType, text)
	convChunks, convDegraded := s.conversationChunks(ctx, sessionID)
	sections := map[string][]string{
		"system":       s.systemChunks(ctx, queryType),
		"kb":           kbChunks,
		"conversation": convChunks,
		"user":         s.userChunks(ctx, queryType, userID),
	}

	enforceBudget(sections, Budget(queryType), s.counter)

	bundle := contextcache.Bundle{
		SystemText:           strings.Join(sections["system"], "\n\n"),
		KBText:               strings.Join(sections["kb"], "\n\n"),
		ConversationText:     strings.Join(sections["conversation"], "\n"),
		UserText:             strings.Join(sections["user"], "\n"),
		QueryType:            string(queryType),
		CacheHit:             false,
		KBDegraded:           kbDegraded,
		ConversationDegraded: convDegraded,
	}
	bundle.TotalTokens = s.counter.Count(bundle.SystemText) +
		s.counter.Count(bundle.KBText) +
		s.counter.Count(bundle.ConversationText) +
		s.counter.Count(bundle.UserText)

	s.cache.Put(ctx, key, bundle, contextcache.DefaultTTL)
	return bundle, false
}

func (s *Service) systemChunks(ctx context.Context, qt classifier.QueryType) []string {
	var categories []string
	switch qt {
	case classifier.System:
		categories = []string{"system", "hardware"}
	case classifier.Research:
		categories = []string{"system", "docs"}
	case classifier.Planning:
		categories = nil // all tier-1
	default:
		categories = []string{"system"}
	}
	docs, err := s.kb.GetContextFiles(ctx, categories)
	if err != nil {
		s.log.Warn("failed to load tier-1 context files", "error", err)
		return nil
	}
	chunks := make([]string, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, fmt.Sprintf("## %s\n%s", d.Title, d.FullText))
	}
	return chunks
}

// kbChunks returns the KB search hits for RESEARCH/PLANNING queries and
// whether the KB source degraded (embedding or search failure) during
// this call — per the spec, a degraded KB source never fails assembly,
// it just proceeds without KB content and flags the bundle.
func (s *Service) kbChunks(ctx context.Context, qt classifier.QueryType, text string) ([]string, bool) {
	var topK int
	switch qt {
	case classifier.Research:
		topK = kbTopKResearch
	case classifier.Planning:
		topK = kbTopKPlanning
	default:
		return nil, false
	}
	if s.embedder == nil {
		return nil, false
	}
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.log.Warn("kb embedding failed, proceeding without kb context", "error", err)
		return nil, true
	}
	results, err := s.kb.Search(ctx, embedding, topK, kb.ListFilter{})
	if err != nil {
		s.log.Warn("kb search failed, proceeding without kb context", "error", err)
		return nil, true
	}
	chunks := make([]string, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, fmt.Sprintf("[%s] %s", r.Title, r.Text))
	}
	return chunks, false
}

// conversationChunks returns the session's recent messages and whether
// the conversation source degraded during this call.
func (s *Service) conversationChunks(ctx context.Context, sessionID uuid.UUID) ([]string, bool) {
	if sessionID == uuid.Nil || s.convo == nil {
		return nil, false
	}
	msgs, err := s.convo.RecentMessages(ctx, sessionID, defaultRecentMessages)
	if err != nil {
		s.log.Warn("conversation history read failed, proceeding without it", "error", err)
		return nil, true
	}
	chunks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		chunks = append(chunks, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return chunks, false
}

func (s *Service) userChunks(ctx context.Context, qt classifier.QueryType, userID string) []string {
	if qt != classifier.System && qt != classifier.Planning {
		return nil
	}
	if userID == "" {
		return nil
	}
	snapshot, err := s.prefs.Snapshot(ctx, userID)
	if err != nil || snapshot == "" {
		return nil
	}
	return []string{snapshot}
}

// enforceBudget trims chunks from the lowest-priority non-empty section
// first, popping one tail chunk at a time, until the combined token
// count fits budget or nothing is left to trim. It never splits a
// chunk: truncation always happens at chunk boundaries.
func enforceBudget(sections map[string][]string, budget int, counter *tokenizer.Counter) {
	total := func() int {
		sum := 0
		for _, chunks := range sections {
			for _, c := range chunks {
				sum += counter.Count(c)
			}
		}
		return sum
	}
	for total() > budget {
		trimmed := false
		for _, name := range truncationPriority {
			if len(sections[name]) == 0 {
				continue
			}
			sections[name] = sections[name][:len(sections[name])-1]
			trimmed = true
			break
		}
		if !trimmed {
			return
		}
	}
}
