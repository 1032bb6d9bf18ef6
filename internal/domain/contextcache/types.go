// Package contextcache caches assembled ContextBundles keyed by a
// stable hash of (user, normalized query text, query type), degrading
// to a disabled (always-miss) state on transport failure and
// recovering once a periodic probe succeeds.
package contextcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Bundle is the cached context payload assembled by the Context
// Manager (C7).
type Bundle struct {
	SystemText       string
	KBText           string
	ConversationText string
	UserText         string
	TotalTokens      int
	QueryType        string
	CacheHit         bool
	BuiltAt          time.Time

	// KBDegraded/ConversationDegraded record that a source failed during
	// assembly and the bundle proceeded without it, per the Context
	// Manager's failure semantics — surfaced to telemetry, never an
	// assembly error.
	KBDegraded           bool
	ConversationDegraded bool
}

// DefaultTTL is the cache entry lifetime per the spec's default.
const DefaultTTL = 5 * time.Minute

// Key computes a stable cache key from (userID, normalized query
// text, query type).
func Key(userID, queryText, queryType string) string {
	normalized := strings.ToLower(strings.TrimSpace(queryText))
	normalized = strings.Join(strings.Fields(normalized), " ")
	sum := sha256.Sum256([]byte(userID + "\x00" + normalized + "\x00" + queryType))
	return hex.EncodeToString(sum[:])
}
