package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

type stubAgent struct {
	id   contractx.AgentID
	name string
}

func (s stubAgent) ID() contractx.AgentID { return s.id }
func (s stubAgent) Name() string          { return s.name }
func (s stubAgent) Description() string   { return s.name + " description" }
func (s stubAgent) Execute(context.Context, contractx.AgentRequest) (contractx.AgentResponse, error) {
	return contractx.AgentResponse{AgentID: s.id, Status: contractx.StatusOK}, nil
}

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	r := New(contractx.AgentIDItinerary)
	agents := []stubAgent{
		{id: contractx.AgentIDItinerary, name: "roteiro"},
		{id: contractx.AgentIDWebSearch, name: "web"},
		{id: contractx.AgentIDQueueTimes, name: "filas"},
	}
	for _, a := range agents {
		require.NoError(t, r.Register(a))
	}

	for _, a := range agents {
		got, ok := r.Get(a.id)
		require.True(t, ok, a.id)
		assert.Equal(t, a.id, got.ID())
	}

	for _, unknown := range []contractx.AgentID{"#2", "#99", "", "1", "#1 #5"} {
		_, ok := r.Get(unknown)
		assert.False(t, ok, "Get(%q)", unknown)
	}
}

func TestRegistryDuplicateIsRejected(t *testing.T) {
	t.Parallel()

	r := New(contractx.AgentIDItinerary)
	require.NoError(t, r.Register(stubAgent{id: "#1", name: "first"}))

	err := r.Register(stubAgent{id: "#1", name: "second"})
	require.ErrorIs(t, err, contractx.ErrDuplicateAgent)
	assert.Equal(t, 1, r.Len())

	got, _ := r.Get("#1")
	assert.Equal(t, "first", got.Name())
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		New("#1").MustRegister(stubAgent{id: "#1", name: "a"}, stubAgent{id: "#1", name: "b"})
	})
}

func TestRegistryRejectsEmptyID(t *testing.T) {
	t.Parallel()

	err := New("#1").Register(stubAgent{id: "  ", name: "blank"})
	require.ErrorIs(t, err, contractx.ErrValidation)
}

func TestRegistryAllIsSorted(t *testing.T) {
	t.Parallel()

	r := New("#1").MustRegister(
		stubAgent{id: "#5", name: "filas"},
		stubAgent{id: "#1", name: "roteiro"},
		stubAgent{id: "#4", name: "web"},
	)

	var ids []contractx.AgentID
	for _, a := range r.All() {
		ids = append(ids, a.ID())
	}
	assert.Equal(t, []contractx.AgentID{"#1", "#4", "#5"}, ids)
}

func TestRegistryDefault(t *testing.T) {
	t.Parallel()

	r := New("#1")
	_, err := r.Default()
	require.ErrorIs(t, err, contractx.ErrAgentNotFound)

	r.MustRegister(stubAgent{id: "#1", name: "roteiro"})
	a, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, contractx.AgentID("#1"), a.ID())
}
