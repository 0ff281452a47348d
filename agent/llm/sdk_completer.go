package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// SDKCompleter calls the chat completions endpoint through openai-go. It
// serves text-only roles such as OpenRouter ":online" web search models,
// which reject tool definitions.
type SDKCompleter struct {
	name    string
	client  *openaisdk.Client
	model   string
	timeout time.Duration
}

var _ contractx.Completer = (*SDKCompleter)(nil)

func NewSDKCompleter(name string, client *openaisdk.Client, model string, timeout time.Duration) (*SDKCompleter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required for %s", contractx.ErrValidation, name)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: model is required for %s", contractx.ErrValidation, name)
	}
	return &SDKCompleter{name: name, client: client, model: strings.TrimSpace(model), timeout: timeout}, nil
}

func (c *SDKCompleter) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	if len(req.Tools) > 0 {
		return contractx.Completion{}, fmt.Errorf("%w: %s does not support tools", contractx.ErrValidation, c.name)
	}
	messages := toSDKMessages(req)
	if len(messages) == 0 {
		return contractx.Completion{}, fmt.Errorf("%w: completion needs at least one message", contractx.ErrValidation)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openaisdk.Float(float64(*req.Temperature))
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openaisdk.Int(int64(*req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return contractx.Completion{}, fmt.Errorf("%w: %s timed out after %s: %w", contractx.ErrModelInvoke, c.name, c.timeout, context.DeadlineExceeded)
		}
		return contractx.Completion{}, fmt.Errorf("%w: %s: %w", contractx.ErrModelInvoke, c.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return contractx.Completion{}, fmt.Errorf("%w: %s returned no choices", contractx.ErrSchemaViolation, c.name)
	}
	return contractx.Completion{Content: strings.TrimSpace(resp.Choices[0].Message.Content)}, nil
}

func toSDKMessages(req contractx.CompletionRequest) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
		out = append(out, openaisdk.SystemMessage(prompt))
	}
	for _, turn := range req.Messages {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case contractx.RoleUser:
			out = append(out, openaisdk.UserMessage(content))
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(content))
		default:
			out = append(out, openaisdk.AssistantMessage(content))
		}
	}
	return out
}
