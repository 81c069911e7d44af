package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/tools"
)

const (
	// DefaultMaxRounds bounds the tool-calling loop.
	DefaultMaxRounds = 5

	// DefaultTimeout is the per-request model API timeout.
	DefaultTimeout = 60 * time.Second
)

// ModelClient issues one chat completion request.
type ModelClient interface {
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIClient is the production ModelClient backed by an
// OpenAI-compatible endpoint (OpenRouter by default).
type OpenAIClient struct {
	client openai.Client
	model  string
}

var _ ModelClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates the model client. baseURL "" means the
// OpenAI API itself.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}
}

// Complete implements ModelClient.
func (c *OpenAIClient) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	params.Model = shared.ChatModel(c.model)
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	return completion, nil
}

// Loop runs the tool-calling conversation cycle: send the assembled
// messages, execute any tool calls the model requests, feed the
// results back, and repeat until the model answers in text or the
// round limit is reached.
type Loop struct {
	model     ModelClient
	registry  *tools.Registry
	maxRounds int
	logger    *zap.Logger
}

// NewLoop creates the agent loop.
func NewLoop(model ModelClient, registry *tools.Registry, logger *zap.Logger) *Loop {
	return &Loop{model: model, registry: registry, maxRounds: DefaultMaxRounds, logger: logger}
}

// SetMaxRounds overrides the round limit. Used by tests.
func (l *Loop) SetMaxRounds(n int) { l.maxRounds = n }

// Run drives the loop for one user turn and returns the final answer
// text. The returned text is always non-empty on a nil error.
func (l *Loop) Run(ctx context.Context, chatID int64, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	defs := l.registry.Definitions()

	for round := 0; round < l.maxRounds; round++ {
		params := openai.ChatCompletionNewParams{Messages: messages}
		if len(defs) > 0 {
			params.Tools = defs
		}
		completion, err := l.model.Complete(ctx, params)
		if err != nil {
			return "", err
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("model returned no choices")
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			if msg.Content == "" {
				return FallbackMessage, nil
			}
			return msg.Content, nil
		}

		l.logger.Info("agent_tool_round",
			zap.Int64("chat_id", chatID),
			zap.Int("round", round+1),
			zap.Int("tool_calls", len(msg.ToolCalls)),
		)

		messages = append(messages, msg.ToParam())
		results, err := l.executeCalls(ctx, chatID, msg.ToolCalls)
		if err != nil {
			return "", err
		}
		messages = append(messages, results...)
	}

	// Round limit hit: one last request without tools forces a text
	// answer out of the model.
	completion, err := l.model.Complete(ctx, openai.ChatCompletionNewParams{Messages: messages})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return FallbackMessage, nil
	}
	return completion.Choices[0].Message.Content, nil
}

// executeCalls runs the requested tools in the order the model listed
// them and returns the tagged tool messages. An unknown tool name is a
// structural failure and aborts the whole round; an adapter returning
// an error has it encoded as the tool result instead.
func (l *Loop) executeCalls(ctx context.Context, chatID int64, calls []openai.ChatCompletionMessageToolCallUnion) ([]openai.ChatCompletionMessageParamUnion, error) {
	results := make([]openai.ChatCompletionMessageParamUnion, 0, len(calls))

	for _, call := range calls {
		tool, err := l.registry.Get(call.Function.Name)
		if err != nil {
			l.logger.Error("agent_unknown_tool",
				zap.Int64("chat_id", chatID),
				zap.String("tool", call.Function.Name),
			)
			return nil, err
		}

		args, err := parseToolArgs(call.Function.Arguments)
		if err != nil {
			results = append(results, openai.ToolMessage(
				fmt.Sprintf("Error: malformed arguments: %v", err), call.ID))
			continue
		}

		result, err := tool.Execute(ctx, chatID, args)
		if err != nil {
			l.logger.Warn("agent_tool_failed",
				zap.Int64("chat_id", chatID),
				zap.String("tool", tool.Name()),
				zap.Error(err),
			)
			result = fmt.Sprintf("Error: %s failed: %v", tool.Name(), err)
		}

		l.logger.Debug("agent_tool_result",
			zap.Int64("chat_id", chatID),
			zap.String("tool", tool.Name()),
			zap.Int("result_length", len(result)),
		)
		results = append(results, openai.ToolMessage(result, call.ID))
	}

	return results, nil
}

func parseToolArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}
