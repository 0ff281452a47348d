package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// ChatCompleter adapts an eino chat model to contract.Completer.
type ChatCompleter struct {
	name    string
	model   einomodel.ToolCallingChatModel
	timeout time.Duration
}

var _ contractx.Completer = (*ChatCompleter)(nil)

func NewChatCompleter(name string, chatModel einomodel.ToolCallingChatModel, timeout time.Duration) (*ChatCompleter, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required for %s", contractx.ErrValidation, name)
	}
	return &ChatCompleter{name: name, model: chatModel, timeout: timeout}, nil
}

func (c *ChatCompleter) Name() string {
	return c.name
}

func (c *ChatCompleter) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	messages := toMessages(req)
	if len(messages) == 0 {
		return contractx.Completion{}, fmt.Errorf("%w: completion needs at least one message", contractx.ErrValidation)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var chatModel einomodel.BaseChatModel = c.model
	if len(req.Tools) > 0 {
		bound, err := c.model.WithTools(req.Tools)
		if err != nil {
			return contractx.Completion{}, fmt.Errorf("%w: bind tools for %s: %v", contractx.ErrModelInvoke, c.name, err)
		}
		chatModel = bound
	}

	var opts []einomodel.Option
	if req.Temperature != nil {
		opts = append(opts, einomodel.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, einomodel.WithMaxTokens(*req.MaxTokens))
	}

	msg, err := chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return contractx.Completion{}, fmt.Errorf("%w: %s timed out after %s: %w", contractx.ErrModelInvoke, c.name, c.timeout, context.DeadlineExceeded)
		}
		return contractx.Completion{}, fmt.Errorf("%w: %s: %w", contractx.ErrModelInvoke, c.name, err)
	}
	if msg == nil {
		return contractx.Completion{}, fmt.Errorf("%w: %s returned no message", contractx.ErrSchemaViolation, c.name)
	}

	out := contractx.Completion{Content: strings.TrimSpace(msg.Content)}
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		out.ToolCall = &contractx.ToolCall{
			ID:        call.ID,
			Name:      strings.TrimSpace(call.Function.Name),
			Arguments: strings.TrimSpace(call.Function.Arguments),
		}
	}
	return out, nil
}

func toMessages(req contractx.CompletionRequest) []*schema.Message {
	out := make([]*schema.Message, 0, len(req.Messages)+1)
	if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
		out = append(out, schema.SystemMessage(prompt))
	}
	for _, turn := range req.Messages {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case contractx.RoleUser:
			out = append(out, schema.UserMessage(content))
		case contractx.RoleSystem:
			out = append(out, schema.SystemMessage(content))
		default:
			// function_call turns are replayed as assistant text.
			out = append(out, schema.AssistantMessage(content, nil))
		}
	}
	return out
}

// Float32 and Int return pointers for CompletionRequest sampling fields.
func Float32(v float32) *float32 { return &v }

func Int(v int) *int { return &v }
