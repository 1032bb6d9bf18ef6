package classifier

import (
	"strings"

	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

// Classifier assigns a QueryType and confidence to free-text queries
// using a fixed, deterministic rule-weight vocabulary match. It never
// errs and never calls out to a model: classification must stay cheap
// and instant on the request's hot path.
type Classifier struct {
	rules   []rule
	counter *tokenizer.Counter
}

// New constructs a Classifier using the default rule set.
func New(counter *tokenizer.Counter) *Classifier {
	if counter == nil {
		counter = tokenizer.New()
	}
	return &Classifier{rules: defaultRules, counter: counter}
}

// Classify returns the winning QueryType and a confidence in [0,1].
// Confidence is the ratio of matched vocabulary tokens to the query's
// total token count: a query dense with category vocabulary scores
// higher than one with a single passing mention. Classification is
// always committed, even at zero confidence — GENERAL is itself a
// valid, deliberate outcome, never an error.
func (c *Classifier) Classify(text string) (QueryType, float64) {
	lower := strings.ToLower(text)

	weights := map[QueryType]float64{System: 0, Research: 0, Planning: 0, General: 0}
	matchedTokens := map[QueryType]int{}

	for _, r := range c.rules {
		if strings.Contains(lower, r.phrase) {
			weights[r.qtype] += r.weight
			matchedTokens[r.qtype] += c.counter.Count(r.phrase)
		}
	}

	winner := General
	best := 0.0
	for _, qt := range []QueryType{System, Research, Planning} {
		if weights[qt] > best {
			best = weights[qt]
			winner = qt
		}
	}

	if winner == General {
		return General, 0
	}

	total := c.counter.Count(text)
	if total <= 0 {
		return winner, 0
	}
	confidence := float64(matchedTokens[winner]) / float64(total)
	if confidence > 1 {
		confidence = 1
	}
	return winner, confidence
}
