package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	sessionx "github.com/tanpawarit/dikas-orlando/agent/session"
)

type inboundCall struct {
	phone string
	text  string
}

type fakeInbound struct {
	mu    sync.Mutex
	calls []inboundCall
}

func (f *fakeInbound) HandleInbound(_ context.Context, phone, text string) (contractx.AgentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inboundCall{phone: phone, text: text})
	return contractx.AgentResponse{Status: contractx.StatusOK}, nil
}

type fixture struct {
	srv     *httptest.Server
	queue   *sessionx.Queue
	inbound *fakeInbound
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{queue: sessionx.NewQueue(ctx), inbound: &fakeInbound{}}
	h, err := NewHandler(f.inbound, f.queue, cfg)
	require.NoError(t, err)
	f.srv = httptest.NewServer(h.Router(ctx))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) post(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.srv.URL+"/webhook/zapi", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestWebhookQueuesMessagesInOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{RatePerMinute: 0})
	for _, text := range []string{"oi", "quero um roteiro", "dia 20"} {
		resp := f.post(t, `{"phone":"5511988887777","fromMe":false,"isGroup":false,"type":"ReceivedCallback","text":{"message":"`+text+`"}}`)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	}
	require.NoError(t, f.queue.Close(context.Background()))

	require.Len(t, f.inbound.calls, 3)
	assert.Equal(t, inboundCall{phone: "5511988887777", text: "oi"}, f.inbound.calls[0])
	assert.Equal(t, "dia 20", f.inbound.calls[2].text)
}

func TestWebhookIgnoresNonUserMessages(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	cases := []string{
		`{"phone":"5511988887777","fromMe":true,"text":{"message":"eco"}}`,
		`{"phone":"120363000000000000-group","isGroup":true,"text":{"message":"oi grupo"}}`,
		`{"phone":"5511988887777","type":"ReceivedCallback","image":{"imageUrl":"x"}}`,
		`{"phone":"5511988887777","text":{"message":"   "}}`,
	}
	for _, body := range cases {
		resp := f.post(t, body)
		assert.Equal(t, http.StatusOK, resp.StatusCode, body)
	}
	require.NoError(t, f.queue.Close(context.Background()))
	assert.Empty(t, f.inbound.calls)
}

func TestWebhookRateLimitsPerPhone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{RatePerMinute: 1, RateBurst: 2})
	msg := func(phone string) string {
		return `{"phone":"` + phone + `","text":{"message":"oi"}}`
	}

	assert.Equal(t, http.StatusAccepted, f.post(t, msg("5511900000001")).StatusCode)
	assert.Equal(t, http.StatusAccepted, f.post(t, msg("5511900000001")).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, f.post(t, msg("5511900000001")).StatusCode)
	assert.Equal(t, http.StatusAccepted, f.post(t, msg("5511900000002")).StatusCode)
	require.NoError(t, f.queue.Close(context.Background()))
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	assert.Equal(t, http.StatusBadRequest, f.post(t, `{"phone":`).StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
