package itinerary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	promptx "github.com/tanpawarit/dikas-orlando/agent/prompt"
	statex "github.com/tanpawarit/dikas-orlando/agent/state"
)

type scriptedCompleter struct {
	outputs []contractx.Completion
	reqs    []contractx.CompletionRequest
}

func (s *scriptedCompleter) Complete(_ context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	s.reqs = append(s.reqs, req)
	if len(s.reqs) > len(s.outputs) {
		return contractx.Completion{}, errors.New("no scripted completion left")
	}
	return s.outputs[len(s.reqs)-1], nil
}

type fakeGenerator struct {
	calls int
	got   map[string]any
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, fields map[string]any) (string, error) {
	f.calls++
	f.got = fields
	if f.err != nil {
		return "", f.err
	}
	return "**Dia 1: Chegada**\n- 10:00 Disney Springs", nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(title, body string) ([]byte, error) {
	return []byte("%PDF-" + title + body), nil
}

type fakeMessenger struct {
	docs  []contractx.Document
	phone string
}

func (f *fakeMessenger) SendText(context.Context, string, string) error { return nil }

func (f *fakeMessenger) SendDocument(_ context.Context, phone string, doc contractx.Document) error {
	f.phone = phone
	f.docs = append(f.docs, doc)
	return nil
}

const session = "session_5511988887777"

func fullArgs() map[string]any {
	return map[string]any{
		"data_chegada":                    "2026-12-20",
		"dias_completos_orlando":          7,
		"numero_viajantes":                4,
		"criancas":                        []int{6, 9},
		"ingressos_parques_comprados":     false,
		"parques_desejados":               []string{"Magic Kingdom", "Epcot"},
		"ritmo":                           "equilibrado",
		"horario_preferido_acordar":       "07:30",
		"disposicao_fisica":               "alta",
		"foco_viagem":                     "parques",
		"restricoes_alimentares":          "nenhuma",
		"reservas_restaurantes_tematicos": false,
		"interesse_gastronomico":          true,
		"cafe_manha_personagens":          true,
		"preferencia_refeicao":            "ambas",
		"meio_transporte":                 "carro alugado",
		"hotel_ou_regiao":                 "Lake Buena Vista",
		"usar_onibus_disney":              false,
		"programacao_noturna":             true,
		"passeios_externos":               []string{},
		"lojas_prioritarias":              []string{"Premium Outlets"},
		"dias_compras_inteligente":        "sim",
		"servicos_extras":                 []string{},
		"dia_livre":                       false,
		"motivo_viagem":                   "primeira vez",
	}
}

func toolCall(t *testing.T, name string, args map[string]any) contractx.Completion {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return contractx.Completion{ToolCall: &contractx.ToolCall{ID: "call_1", Name: name, Arguments: string(raw)}}
}

type harness struct {
	agent     *Agent
	store     *statex.MemoryStore
	completer *scriptedCompleter
	generator *fakeGenerator
	messenger *fakeMessenger
}

func newHarness(t *testing.T, outputs ...contractx.Completion) *harness {
	t.Helper()
	h := &harness{
		store:     statex.NewMemoryStore(),
		completer: &scriptedCompleter{outputs: outputs},
		generator: &fakeGenerator{},
		messenger: &fakeMessenger{},
	}
	a, err := New(h.store, h.completer, h.generator, fakeRenderer{}, h.messenger, Options{
		Template:    promptx.LoadPromptSet().Itinerary,
		Temperature: 0.5,
		MaxTokens:   2048,
	})
	require.NoError(t, err)
	h.agent = a
	return h
}

func (h *harness) send(t *testing.T, text string) contractx.AgentResponse {
	t.Helper()
	resp, err := h.agent.Execute(context.Background(), contractx.AgentRequest{
		Turns:      []contractx.Turn{contractx.UserTurn(text)},
		SessionKey: session,
		User:       &contractx.UserProfile{Name: "Ana", Phone: "5511988887777"},
	})
	require.NoError(t, err, "Execute(%q)", text)
	return resp
}

func (h *harness) state(t *testing.T) statex.State {
	t.Helper()
	st, err := statex.NewMachine(h.store, contractx.AgentIDItinerary).Current(context.Background(), session)
	require.NoError(t, err)
	return st
}

func TestItineraryCollectsUntilCompleteCall(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		contractx.Completion{Content: "1. Quando vocês chegam?\n2. Quantos viajantes?"},
		contractx.Completion{Content: "3. Qual o ritmo da viagem?"},
		toolCall(t, "roteiro", fullArgs()),
	)

	for i, msg := range []string{"quero um roteiro", "chego dia 20/12, somos 4"} {
		resp := h.send(t, msg)
		assert.Equal(t, contractx.StatusAskUser, resp.Status, "turn %d", i)
		assert.Equal(t, statex.KindCollecting, h.state(t).Kind(), "turn %d", i)
		assert.Zero(t, h.generator.calls, "turn %d: generator must not run yet", i)
	}

	resp := h.send(t, "ritmo equilibrado, e o resto já te falei")
	assert.Equal(t, contractx.StatusFinalAnswer, resp.Status)
	assert.Equal(t, "roteiro", resp.Payload["tool_name"])
	assert.Equal(t, 1, h.generator.calls)
	assert.Len(t, h.generator.got, 25)
	require.Len(t, h.messenger.docs, 1)
	assert.Equal(t, "roteiro.pdf", h.messenger.docs[0].Filename)
	assert.Equal(t, "Seu roteiro personalizado!", h.messenger.docs[0].Caption)
	assert.Equal(t, "5511988887777", h.messenger.phone)
	assert.IsType(t, statex.Done{}, h.state(t))

	// the model sees its own questions and the user's answers in order
	last := h.completer.reqs[2].Messages
	require.Len(t, last, 5)
	assert.Equal(t, contractx.RoleAssistant, last[1].Role)
	assert.Equal(t, "ritmo equilibrado, e o resto já te falei", last[4].Content)
	assert.Contains(t, h.completer.reqs[0].SystemPrompt, "Ana")
	require.Len(t, h.completer.reqs[0].Tools, 1)
	assert.Equal(t, "roteiro", h.completer.reqs[0].Tools[0].Name)
}

func TestItineraryDoneIsStickyUntilReset(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		toolCall(t, "roteiro", fullArgs()),
		contractx.Completion{Content: "Vamos lá! Quando vocês chegam?"},
	)
	h.send(t, "tudo pronto")

	resp := h.send(t, "obrigado!")
	assert.Equal(t, contractx.StatusOK, resp.Status)
	assert.Len(t, h.completer.reqs, 1)
	assert.Equal(t, statex.KindDone, h.state(t).Kind())

	resp = h.send(t, "quero um novo roteiro")
	assert.Equal(t, contractx.StatusAskUser, resp.Status)
	st, ok := h.state(t).(statex.Collecting)
	require.True(t, ok, "state after reset = %T", h.state(t))
	assert.Len(t, st.History, 2)
	assert.Equal(t, 1, h.generator.calls)
}

func TestItineraryAnswerMentioningResetKeepsSlots(t *testing.T) {
	t.Parallel()

	partial := fullArgs()
	delete(partial, "motivo_viagem")
	h := newHarness(t,
		toolCall(t, "roteiro", partial),
		contractx.Completion{Content: "Entendi! Mais alguma coisa?"},
	)

	h.send(t, "já te passei quase tudo")
	before, ok := h.state(t).(statex.Collecting)
	require.True(t, ok)
	require.Len(t, before.KnownFields, 24)

	resp := h.send(t, "motivo: recomeçar depois de um ano difícil")
	assert.Equal(t, contractx.StatusAskUser, resp.Status)
	after, ok := h.state(t).(statex.Collecting)
	require.True(t, ok)
	assert.Len(t, after.KnownFields, 24)
	assert.Len(t, after.History, 4)
}

func TestItineraryExactResetPhraseRestartsCollection(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		contractx.Completion{Content: "Quando vocês chegam?"},
		contractx.Completion{Content: "Sem problemas, vamos do zero. Quando vocês chegam?"},
	)

	h.send(t, "quero um roteiro")
	h.send(t, "Recomeçar!")

	st, ok := h.state(t).(statex.Collecting)
	require.True(t, ok)
	require.Len(t, st.History, 2)
	assert.Equal(t, "Recomeçar!", st.History[0].Content)
}

func TestItineraryRejectsMismatchedToolName(t *testing.T) {
	t.Parallel()

	h := newHarness(t, toolCall(t, "gerar_roteiro", fullArgs()))
	resp := h.send(t, "pode gerar")
	assert.Equal(t, contractx.StatusAskUser, resp.Status)
	assert.Zero(t, h.generator.calls)
	assert.Empty(t, h.messenger.docs)
}

func TestItineraryIncompleteCallAsksForMissing(t *testing.T) {
	t.Parallel()

	args := fullArgs()
	args["ritmo"] = nil
	delete(args, "motivo_viagem")
	h := newHarness(t, toolCall(t, "roteiro", args))

	resp := h.send(t, "acho que é isso")
	assert.Equal(t, contractx.StatusAskUser, resp.Status)
	assert.Equal(t, []string{"ritmo", "motivo_viagem"}, resp.Payload["missing"])
	assert.Contains(t, resp.Message, "ritmo")
	assert.Contains(t, resp.Message, "motivo viagem")

	st, ok := h.state(t).(statex.Collecting)
	require.True(t, ok)
	assert.Equal(t, "Lake Buena Vista", st.KnownFields["hotel_ou_regiao"])
	assert.Zero(t, h.generator.calls)
}

func TestItineraryGeneratorFailureKeepsCollecting(t *testing.T) {
	t.Parallel()

	h := newHarness(t, toolCall(t, "roteiro", fullArgs()))
	h.generator.err = contractx.ErrUpstream

	_, err := h.agent.Execute(context.Background(), contractx.AgentRequest{
		Turns:      []contractx.Turn{contractx.UserTurn("pronto")},
		SessionKey: session,
	})
	require.True(t, errors.Is(err, contractx.ErrUpstream), "Execute() error = %v", err)

	st, ok := h.state(t).(statex.Collecting)
	require.True(t, ok, "state = %T", h.state(t))
	assert.Len(t, st.KnownFields, 25)
}

func TestPDFRendererProducesDocument(t *testing.T) {
	t.Parallel()

	out, err := NewPDFRenderer().Render("Seu roteiro em Orlando 🎢", "**Dia 1: Chegada**\n• 10:00 café com personagens\n\n# Dicas\nReserve com antecedência.")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "output is not a pdf")
}
