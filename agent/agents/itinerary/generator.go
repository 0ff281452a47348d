package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	promptx "github.com/tanpawarit/dikas-orlando/agent/prompt"
)

// Generator turns the collected fields into the final itinerary text.
type Generator interface {
	Generate(ctx context.Context, fields map[string]any) (string, error)
}

type LLMGenerator struct {
	completer   contractx.Completer
	template    string
	temperature float32
	maxTokens   int
}

var _ Generator = (*LLMGenerator)(nil)

func NewLLMGenerator(completer contractx.Completer, template string, temperature float32, maxTokens int) (*LLMGenerator, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: generator needs a completer", contractx.ErrValidation)
	}
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%w: generator template", contractx.ErrPromptMissing)
	}
	return &LLMGenerator{
		completer:   completer,
		template:    template,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (g *LLMGenerator) Generate(ctx context.Context, fields map[string]any) (string, error) {
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: marshal itinerary fields: %v", contractx.ErrValidation, err)
	}
	systemPrompt, err := promptx.Render(ctx, g.template, map[string]any{"data": string(data)})
	if err != nil {
		return "", err
	}

	temperature := g.temperature
	maxTokens := g.maxTokens
	out, err := g.completer.Complete(ctx, contractx.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []contractx.Turn{contractx.UserTurn("Gere o roteiro completo.")},
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: generate itinerary: %w", contractx.ErrUpstream, err)
	}
	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", fmt.Errorf("%w: generator returned an empty itinerary", contractx.ErrUpstream)
	}
	return text, nil
}
