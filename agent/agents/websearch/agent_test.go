package websearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

type fakeCompleter struct {
	out contractx.Completion
	err error
	got contractx.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	f.got = req
	return f.out, f.err
}

func newAgent(t *testing.T, c contractx.Completer, window int) *Agent {
	t.Helper()
	a, err := New(c, Options{SystemPrompt: "pesquise", Temperature: 0.3, MaxTokens: 1000, Window: window})
	require.NoError(t, err)
	return a
}

func TestWebSearchAnswers(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{out: contractx.Completion{Content: "Vai fazer 30°C amanhã."}}
	turns := []contractx.Turn{
		contractx.UserTurn("oi"),
		contractx.AssistantTurn("Olá!"),
		{Role: contractx.RoleFunctionCall, Content: `{"name":"roteiro"}`},
		contractx.UserTurn("como está o clima em Orlando?"),
	}
	resp, err := newAgent(t, fake, 2).Execute(context.Background(), contractx.AgentRequest{Turns: turns, SessionKey: "session_1"})
	require.NoError(t, err)
	assert.Equal(t, contractx.StatusOK, resp.Status)
	assert.Equal(t, "Vai fazer 30°C amanhã.", resp.Message)
	assert.Equal(t, contractx.AgentIDWebSearch, resp.AgentID)

	require.Len(t, fake.got.Messages, 2)
	assert.Equal(t, "Olá!", fake.got.Messages[0].Content)
	assert.Equal(t, "como está o clima em Orlando?", fake.got.Messages[1].Content)
	assert.Nil(t, fake.got.Tools)
	require.NotNil(t, fake.got.MaxTokens)
	assert.Equal(t, 1000, *fake.got.MaxTokens)
}

func TestWebSearchEmptyAnswer(t *testing.T) {
	t.Parallel()

	resp, err := newAgent(t, &fakeCompleter{}, 0).Execute(context.Background(), contractx.AgentRequest{
		Turns:      []contractx.Turn{contractx.UserTurn("novidades do Epic Universe")},
		SessionKey: "session_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Não foi possível encontrar informações relevantes.", resp.Message)
}

func TestWebSearchFailureIsUpstream(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{err: contractx.ErrModelInvoke}
	_, err := newAgent(t, fake, 0).Execute(context.Background(), contractx.AgentRequest{
		Turns: []contractx.Turn{contractx.UserTurn("ingressos")},
	})
	assert.ErrorIs(t, err, contractx.ErrUpstream)
	assert.ErrorIs(t, err, contractx.ErrModelInvoke)
}

func TestWebSearchRequiresPrompt(t *testing.T) {
	t.Parallel()

	_, err := New(&fakeCompleter{}, Options{})
	assert.ErrorIs(t, err, contractx.ErrPromptMissing)
}
