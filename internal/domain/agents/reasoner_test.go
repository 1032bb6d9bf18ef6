package agents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/agenttools"
	"github.com/wildfireranch/commandcenter/internal/infra/llm/chatgpt"
)

type stubChatClient struct {
	responses []chatgpt.ChatCompletionResponse
	err       error
	calls     int
}

func (s *stubChatClient) CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	if s.err != nil {
		return chatgpt.ChatCompletionResponse{}, s.err
	}
	if s.calls >= len(s.responses) {
		return chatgpt.ChatCompletionResponse{}, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func messageResponse(content string) chatgpt.ChatCompletionResponse {
	return chatgpt.ChatCompletionResponse{
		Choices: []struct {
			Message chatgpt.Message `json:"message"`
		}{{Message: chatgpt.Message{Role: "assistant", Content: content}}},
	}
}

func toolCallResponse(toolName, argsJSON string) chatgpt.ChatCompletionResponse {
	return chatgpt.ChatCompletionResponse{
		Choices: []struct {
			Message chatgpt.Message `json:"message"`
		}{{Message: chatgpt.Message{
			Role: "assistant",
			ToolCalls: []chatgpt.ToolCall{
				{ID: "call-1", Type: "function", Function: chatgpt.ToolCallDefinition{Name: toolName, Arguments: argsJSON}},
			},
		}}},
	}
}

func echoTool() agenttools.Tool {
	return agenttools.Tool{
		Name:        "current_status",
		Description: "stub",
		Parameters:  map[string]any{"type": "object"},
		Invoke: func(ctx context.Context, args json.RawMessage) agenttools.Result {
			return agenttools.Ok(map[string]any{"soc": 55})
		},
	}
}

func TestGenericReasoner_ReturnsDirectAnswerWithoutToolCalls(t *testing.T) {
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{messageResponse("SOC is 55%.")}}
	reasoner := NewManager(client, "gpt-4o-mini")

	out, err := reasoner.Run(context.Background(), "context", "what's the battery at", agenttools.Registry{}, 0)
	require.NoError(t, err)
	require.Equal(t, "SOC is 55%.", out.Answer)
	require.Equal(t, RoleManager, out.AgentRole)
	require.False(t, out.Capped)
}

func TestGenericReasoner_ExecutesToolCallThenAnswers(t *testing.T) {
	toolResp := toolCallResponse("current_status", `{}`)
	toolResp.Usage = chatgpt.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	finalResp := messageResponse("Battery is at 55% SOC.")
	finalResp.Usage = chatgpt.Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28}
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{toolResp, finalResp}}
	reasoner := NewSolarController(client, "gpt-4o-mini")
	tools := agenttools.Registry{"current_status": echoTool()}

	out, err := reasoner.Run(context.Background(), "context", "status?", tools, 5)
	require.NoError(t, err)
	require.Equal(t, "Battery is at 55% SOC.", out.Answer)
	require.False(t, out.Capped)
	require.Equal(t, 2, client.calls)
	require.Equal(t, 43, out.Usage.TotalTokens)
	require.Equal(t, 30, out.Usage.PromptTokens)
	require.Equal(t, 13, out.Usage.CompletionTokens)
}

func TestGenericReasoner_CapsIterationsAndMarksPartial(t *testing.T) {
	resp := toolCallResponse("current_status", `{}`)
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{resp, resp, resp}}
	reasoner := NewSolarController(client, "gpt-4o-mini")
	tools := agenttools.Registry{"current_status": echoTool()}

	out, err := reasoner.Run(context.Background(), "context", "status?", tools, 3)
	require.NoError(t, err)
	require.True(t, out.Capped)
	require.Equal(t, 3, client.calls)
}

func TestGenericReasoner_UpstreamErrorPropagates(t *testing.T) {
	client := &stubChatClient{err: errors.New("boom")}
	reasoner := NewManager(client, "gpt-4o-mini")

	_, err := reasoner.Run(context.Background(), "context", "hello", agenttools.Registry{}, 1)
	require.Error(t, err)
}

func TestKBDirect_FormatsCitations(t *testing.T) {
	tool := agenttools.Tool{
		Invoke: func(ctx context.Context, args json.RawMessage) agenttools.Result {
			return agenttools.Ok([]agenttools.Citation{
				{Title: "Battery Specs", FolderPath: "system/battery.md", Text: "min SOC is 40%"},
			})
		},
	}
	agent := NewKBDirect(tool)
	out := agent.Answer(context.Background(), "minimum soc")
	require.Equal(t, RoleDocumentationSearch, out.AgentRole)
	require.Contains(t, out.Answer, "Battery Specs")
	require.Contains(t, out.Answer, "min SOC is 40%")
}

func TestKBDirect_ToolFailureDegradesToApology(t *testing.T) {
	tool := agenttools.Tool{
		Invoke: func(ctx context.Context, args json.RawMessage) agenttools.Result {
			return agenttools.Fail("embedding failed")
		},
	}
	agent := NewKBDirect(tool)
	out := agent.Answer(context.Background(), "minimum soc")
	require.Contains(t, out.Answer, "embedding failed")
	require.Equal(t, RoleDocumentationSearch, out.AgentRole)
}

func TestKBDirect_NoCitationsSaysSo(t *testing.T) {
	tool := agenttools.Tool{
		Invoke: func(ctx context.Context, args json.RawMessage) agenttools.Result {
			return agenttools.Ok([]agenttools.Citation{})
		},
	}
	agent := NewKBDirect(tool)
	out := agent.Answer(context.Background(), "minimum soc")
	require.Contains(t, out.Answer, "didn't find anything")
}
