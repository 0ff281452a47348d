package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	promptx "github.com/tanpawarit/dikas-orlando/agent/prompt"
	statex "github.com/tanpawarit/dikas-orlando/agent/state"
	toolx "github.com/tanpawarit/dikas-orlando/agent/tool"
	logx "github.com/tanpawarit/dikas-orlando/pkg/logger"
)

const (
	DocumentFilename = "roteiro.pdf"
	DocumentCaption  = "Seu roteiro personalizado!"

	msgDelivered = "Seu roteiro personalizado está pronto e foi enviado em PDF aqui no WhatsApp. Boa viagem!"
	msgAlready   = "Seu roteiro já foi gerado e enviado. Se quiser montar outro, é só mandar \"novo roteiro\"."
)

var resetPhrases = []string{"novo roteiro", "recomeçar", "recomecar", "reiniciar"}

type Options struct {
	Template    string
	Temperature float32
	MaxTokens   int
}

// Agent collects the roteiro fields across turns and, once the model emits
// a complete roteiro call, generates and delivers the itinerary once.
type Agent struct {
	machine   *statex.Machine
	completer contractx.Completer
	generator Generator
	renderer  Renderer
	messenger contractx.Messenger
	opts      Options
	now       func() time.Time
}

var _ contractx.Agent = (*Agent)(nil)

func New(
	store statex.Store,
	completer contractx.Completer,
	generator Generator,
	renderer Renderer,
	messenger contractx.Messenger,
	opts Options,
) (*Agent, error) {
	if store == nil || completer == nil || generator == nil || renderer == nil || messenger == nil {
		return nil, fmt.Errorf("%w: itinerary agent dependencies are incomplete", contractx.ErrValidation)
	}
	if strings.TrimSpace(opts.Template) == "" {
		return nil, fmt.Errorf("%w: itinerary template", contractx.ErrPromptMissing)
	}
	return &Agent{
		machine:   statex.NewMachine(store, contractx.AgentIDItinerary),
		completer: completer,
		generator: generator,
		renderer:  renderer,
		messenger: messenger,
		opts:      opts,
		now:       time.Now,
	}, nil
}

func (a *Agent) ID() contractx.AgentID { return contractx.AgentIDItinerary }

func (a *Agent) Name() string { return "Agente_Roteiro" }

func (a *Agent) Description() string {
	return "Cria roteiros de viagem personalizados para Orlando, coletando as informações do viajante e entregando o roteiro em PDF"
}

func (a *Agent) Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	text := contractx.LastUserMessage(req.Turns)
	if text == "" {
		return a.respond(contractx.StatusAskUser, fallbackQuestion, nil), nil
	}

	current, err := a.machine.Current(ctx, req.SessionKey)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("load itinerary state: %w", err)
	}

	if resetRequested(current, text) {
		if err := a.machine.Reset(ctx, req.SessionKey); err != nil {
			return contractx.AgentResponse{}, fmt.Errorf("reset itinerary state: %w", err)
		}
		current = statex.Init{}
	}

	var collecting statex.Collecting
	switch st := current.(type) {
	case statex.Done:
		return a.respond(contractx.StatusOK, msgAlready, map[string]any{"completed_at": st.CompletedAt}), nil
	case statex.Collecting:
		collecting = st
	}
	collecting.Append(contractx.Turn{Role: contractx.RoleUser, Content: text, CreatedAt: a.now().UTC()})

	systemPrompt, err := a.systemPrompt(ctx, req.User, collecting.KnownFields)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	temperature := a.opts.Temperature
	maxTokens := a.opts.MaxTokens
	out, err := a.completer.Complete(ctx, contractx.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     collecting.History,
		Tools:        toolx.ForAgent(a.ID()),
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
	})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: itinerary collection: %w", contractx.ErrUpstream, err)
	}

	switch result := Interpret(out).(type) {
	case Complete:
		return a.complete(ctx, req, current, collecting, result)
	case Partial:
		return a.partial(ctx, req.SessionKey, current, collecting, result)
	default:
		return contractx.AgentResponse{}, fmt.Errorf("%w: unexpected collection result %T", contractx.ErrSchemaViolation, result)
	}
}

func (a *Agent) partial(
	ctx context.Context,
	sessionKey string,
	current statex.State,
	collecting statex.Collecting,
	result Partial,
) (contractx.AgentResponse, error) {
	collecting.MergeFields(result.Fields)
	collecting.Append(contractx.Turn{Role: contractx.RoleAssistant, Content: result.Question, CreatedAt: a.now().UTC()})
	if err := a.machine.Transition(ctx, sessionKey, current, collecting); err != nil {
		return contractx.AgentResponse{}, err
	}

	payload := map[string]any{"known_fields": len(collecting.KnownFields)}
	if len(result.Missing) > 0 {
		payload["missing"] = result.Missing
	}
	return a.respond(contractx.StatusAskUser, result.Question, payload), nil
}

func (a *Agent) complete(
	ctx context.Context,
	req contractx.AgentRequest,
	current statex.State,
	collecting statex.Collecting,
	result Complete,
) (contractx.AgentResponse, error) {
	lg := logx.Session(req.SessionKey, a.ID().String())
	collecting.MergeFields(result.Fields)

	// Keep the answers if delivery fails so the next turn can retry.
	keep := func(cause error) (contractx.AgentResponse, error) {
		if err := a.machine.Transition(ctx, req.SessionKey, current, collecting); err != nil {
			lg.Error().Err(err).Msg("persist collecting state after failed delivery")
		}
		return contractx.AgentResponse{}, cause
	}

	itinerary, err := a.generator.Generate(ctx, result.Fields)
	if err != nil {
		return keep(err)
	}

	doc, err := a.renderer.Render("Seu roteiro em Orlando", itinerary)
	if err != nil {
		return keep(fmt.Errorf("%w: %v", contractx.ErrUpstream, err))
	}

	if err := a.messenger.SendDocument(ctx, req.Phone(), contractx.Document{
		Filename: DocumentFilename,
		Caption:  DocumentCaption,
		MIMEType: "application/pdf",
		Data:     doc,
	}); err != nil {
		return keep(fmt.Errorf("%w: send itinerary pdf: %v", contractx.ErrUpstream, err))
	}

	done := statex.Done{Result: itinerary, Fields: result.Fields, CompletedAt: a.now().UTC()}
	if err := a.machine.Transition(ctx, req.SessionKey, current, done); err != nil {
		return contractx.AgentResponse{}, err
	}
	lg.Info().Int("pdf_bytes", len(doc)).Msg("itinerary delivered")

	return a.respond(contractx.StatusFinalAnswer, msgDelivered, map[string]any{
		"action":    "tool_call",
		"tool_name": toolx.ToolRoteiro,
		"arguments": result.Fields,
	}), nil
}

func (a *Agent) systemPrompt(ctx context.Context, user *contractx.UserProfile, known map[string]any) (string, error) {
	name := "viajante"
	if user != nil && strings.TrimSpace(user.Name) != "" {
		name = strings.TrimSpace(user.Name)
	}
	if known == nil {
		known = map[string]any{}
	}
	knownJSON, err := json.Marshal(known)
	if err != nil {
		return "", fmt.Errorf("%w: marshal known fields: %v", contractx.ErrValidation, err)
	}
	return promptx.Render(ctx, a.opts.Template, map[string]any{
		"user_name":    name,
		"known_fields": string(knownJSON),
	})
}

func (a *Agent) respond(status contractx.Status, msg string, payload map[string]any) contractx.AgentResponse {
	return contractx.AgentResponse{AgentID: a.ID(), Status: status, Message: msg, Payload: payload}
}

// resetRequested reports whether text restarts the task. After delivery any
// message mentioning a reset phrase counts; while collecting only a message
// that is exactly a reset phrase does, so ordinary answers keep their slots.
func resetRequested(current statex.State, text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch current.Kind() {
	case statex.KindDone:
		for _, p := range resetPhrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
	case statex.KindCollecting:
		return slices.Contains(resetPhrases, strings.TrimRight(lower, " .!"))
	}
	return false
}
