package agents

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/agenttools"
	"github.com/wildfireranch/commandcenter/internal/infra/llm/chatgpt"
	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
	"github.com/wildfireranch/commandcenter/pkg/metrics"
)

// Reasoner is the capability interface every specialist agent but
// KB-direct implements: given assembled context, a query, a permitted
// tool set, and an iteration cap, produce a textual answer plus
// metadata. Tagged role variants replace per-framework reasoner base
// classes (see redesign notes).
type Reasoner interface {
	Run(ctx context.Context, contextText, query string, tools agenttools.Registry, maxIter int) (Output, error)
}

// chatClient is the subset of chatgpt.Client a reasoner needs,
// following the teacher's faq/summarizer/uvadvisor pattern of
// depending on a small local interface rather than the concrete
// client, so tests can stub it.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// genericReasoner wraps chatgpt.Client's function-calling loop with a
// role, backstory, and default iteration cap. All four reasoner roles
// are this same shape; only the constructor parameters differ.
type genericReasoner struct {
	client         chatClient
	model          string
	role           string
	backstory      string
	defaultMaxIter int
	temperature    float32
}

// Run drives the function-calling loop: ask the model, execute any
// requested tool calls, feed the results back, repeat until the model
// stops calling tools or the iteration cap is hit.
func (r *genericReasoner) Run(ctx context.Context, contextText, query string, tools agenttools.Registry, maxIter int) (Output, error) {
	start := time.Now()
	if maxIter <= 0 {
		maxIter = r.defaultMaxIter
	}

	messages := []chatgpt.Message{
		{Role: "system", Content: r.backstory + "\n\nContext:\n" + contextText},
		{Role: "user", Content: query},
	}
	chatTools := toChatTools(tools)

	var lastContent string
	var usage metrics.TokenUsage
	capped := true
	for i := 0; i < maxIter; i++ {
		resp, err := r.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
			Model:       r.model,
			Messages:    messages,
			Temperature: r.temperature,
			Tools:       chatTools,
		})
		if err != nil {
			return Output{}, apperrors.Wrap("upstream", r.role+" reasoner call failed", err)
		}
		if len(resp.Choices) == 0 {
			return Output{}, apperrors.Wrap("upstream", r.role+" reasoner returned no choices", nil)
		}
		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		msg := resp.Choices[0].Message
		lastContent = msg.Content
		if len(msg.ToolCalls) == 0 {
			capped = false
			break
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result := tools.Call(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"ok":false,"reason":"failed to encode tool result"}`)
			}
			messages = append(messages, chatgpt.Message{
				Role:       "tool",
				Content:    string(payload),
				ToolCallID: call.ID,
			})
		}
	}

	return Output{
		Answer:    lastContent,
		AgentRole: r.role,
		Duration:  time.Since(start),
		Capped:    capped,
		Usage:     usage,
	}, nil
}

// toChatTools renders a tool registry into the teacher's chatgpt.Tool
// wire shape, sorted by name for deterministic request payloads.
func toChatTools(tools agenttools.Registry) []chatgpt.Tool {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]chatgpt.Tool, 0, len(names))
	for _, name := range names {
		tool := tools[name]
		out = append(out, chatgpt.Tool{
			Type: "function",
			Function: chatgpt.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}
