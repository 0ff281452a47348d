package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	logx "github.com/tanpawarit/dikas-orlando/pkg/logger"
)

const (
	msgNoResults = "Não foi possível encontrar informações relevantes."
	msgEmpty     = "O que você gostaria de saber sobre Orlando?"

	defaultWindow = 6
)

type Options struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	// Window bounds how many trailing turns are forwarded for context.
	Window int
}

// Agent answers open questions about Orlando with a search-enabled model.
// It keeps no state of its own.
type Agent struct {
	completer contractx.Completer
	opts      Options
}

var _ contractx.Agent = (*Agent)(nil)

func New(completer contractx.Completer, opts Options) (*Agent, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: web search agent needs a completer", contractx.ErrValidation)
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		return nil, fmt.Errorf("%w: web search prompt", contractx.ErrPromptMissing)
	}
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	return &Agent{completer: completer, opts: opts}, nil
}

func (a *Agent) ID() contractx.AgentID { return contractx.AgentIDWebSearch }

func (a *Agent) Name() string { return "Agente_Web" }

func (a *Agent) Description() string {
	return "Pesquisa na internet informações atualizadas sobre Orlando: eventos, clima, preços, horários, restaurantes e novidades"
}

func (a *Agent) Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	query := contractx.LastUserMessage(req.Turns)
	if query == "" {
		return a.respond(contractx.StatusAskUser, msgEmpty, nil), nil
	}

	temperature := a.opts.Temperature
	maxTokens := a.opts.MaxTokens
	out, err := a.completer.Complete(ctx, contractx.CompletionRequest{
		SystemPrompt: a.opts.SystemPrompt,
		Messages:     window(req.Turns, a.opts.Window),
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrUpstream) {
			return contractx.AgentResponse{}, err
		}
		return contractx.AgentResponse{}, fmt.Errorf("%w: web search: %w", contractx.ErrUpstream, err)
	}

	answer := strings.TrimSpace(out.Content)
	if answer == "" {
		logx.Session(req.SessionKey, a.ID().String()).Warn().Str("query", query).Msg("web search returned no content")
		return a.respond(contractx.StatusOK, msgNoResults, map[string]any{"query": query}), nil
	}
	return a.respond(contractx.StatusOK, answer, map[string]any{"query": query}), nil
}

func (a *Agent) respond(status contractx.Status, msg string, payload map[string]any) contractx.AgentResponse {
	return contractx.AgentResponse{AgentID: a.ID(), Status: status, Message: msg, Payload: payload}
}

// window keeps the trailing user and assistant turns, ending at the latest
// user message.
func window(turns []contractx.Turn, size int) []contractx.Turn {
	end := len(turns)
	for end > 0 && turns[end-1].Role != contractx.RoleUser {
		end--
	}
	out := make([]contractx.Turn, 0, size)
	for i := end - 1; i >= 0 && len(out) < size; i-- {
		if turns[i].Role == contractx.RoleUser || turns[i].Role == contractx.RoleAssistant {
			out = append(out, turns[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
