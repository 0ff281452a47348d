package state

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

func newTestUpstash(t *testing.T, handler func(cmd []any) string, opts ...StoreOption) (*UpstashRedisStore, *[]any) {
	t.Helper()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotCommand)) {
			return
		}
		fmt.Fprint(w, handler(gotCommand))
	}))
	t.Cleanup(server.Close)

	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: server.URL, Token: "token"}, opts...)
	require.NoError(t, err)
	return store, &gotCommand
}

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	got, err := store.redisKey("session_5511999", contractx.AgentIDQueueTimes)
	require.NoError(t, err)
	assert.Equal(t, "dikas:state:session_5511999:#5", got)
}

func TestUpstashRedisStoreRedisKeyRejectsBlankIdentifiers(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	_, err := store.redisKey("   ", contractx.AgentIDQueueTimes)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = store.redisKey("s1", " ")
	assert.ErrorIs(t, err, ErrInvalidAgent)
}

func TestUpstashRedisStoreSave(t *testing.T) {
	t.Parallel()

	store, got := newTestUpstash(t, func([]any) string { return `{"result":"OK"}` }, WithKeyPrefix("test:"), WithTTL(90*time.Second))

	st, err := NewAwaitingSelection([]Option{{Number: 1, ID: 6, Name: "Epcot"}}, 0)
	require.NoError(t, err)
	rec, err := Encode("s1", contractx.AgentIDQueueTimes, st, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), rec))

	cmd := *got
	require.Len(t, cmd, 5)
	assert.Equal(t, "SET", cmd[0])
	assert.Equal(t, "test:s1:#5", cmd[1])
	assert.Equal(t, "EX", cmd[3])
	assert.Equal(t, float64(90), cmd[4])
}

func TestUpstashRedisStoreLoad(t *testing.T) {
	t.Parallel()

	rec, err := Encode("s2", contractx.AgentIDQueueTimes, Idle{LastSelection: Option{Number: 2, ID: 2, Name: "Animal Kingdom"}}, time.Now())
	require.NoError(t, err)
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	encoded, err := json.Marshal(string(payload))
	require.NoError(t, err)

	store, got := newTestUpstash(t, func([]any) string { return fmt.Sprintf(`{"result":%s}`, encoded) })

	loaded, err := store.Load(context.Background(), "s2", contractx.AgentIDQueueTimes)
	require.NoError(t, err)
	assert.Equal(t, "GET", (*got)[0])
	assert.Equal(t, "dikas:state:s2:#5", (*got)[1])

	st, err := loaded.Decode()
	require.NoError(t, err)
	idle, ok := st.(Idle)
	require.True(t, ok, "Decode() = %T, want Idle", st)
	assert.Equal(t, "Animal Kingdom", idle.LastSelection.Name)
}

func TestUpstashRedisStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store, _ := newTestUpstash(t, func([]any) string { return `{"result":null}` })
	_, err := store.Load(context.Background(), "s3", contractx.AgentIDItinerary)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestUpstashRedisStoreDelete(t *testing.T) {
	t.Parallel()

	store, got := newTestUpstash(t, func([]any) string { return `{"result":1}` })
	require.NoError(t, store.Delete(context.Background(), "s3", contractx.AgentIDItinerary))
	assert.Equal(t, "DEL", (*got)[0])
	assert.Equal(t, "dikas:state:s3:#1", (*got)[1])
}

func TestUpstashRedisStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	store, _ := newTestUpstash(t, func([]any) string { return `{"error":"WRONGTYPE"}` })
	err := store.Delete(context.Background(), "s4", contractx.AgentIDItinerary)
	assert.EqualError(t, err, "WRONGTYPE")
}
