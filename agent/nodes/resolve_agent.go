package orchestratornode

import (
	"fmt"

	"github.com/rs/zerolog/log"
	classifierx "github.com/tanpawarit/dikas-orlando/agent/classifier"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// ResolveAgent maps the decision to a registered agent, using the default
// agent when the code is unknown.
func ResolveAgent(in *GraphState, catalog classifierx.Catalog) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if agent, ok := catalog.Get(in.Decision.AgentID); ok {
		in.Agent = agent
		return in, nil
	}

	defaultID := catalog.DefaultID()
	agent, ok := catalog.Get(defaultID)
	if !ok {
		return nil, fmt.Errorf("%w: default agent %s", contractx.ErrAgentNotFound, defaultID)
	}
	log.Warn().
		Str("session", in.SessionKey).
		Str("decided", in.Decision.AgentID.String()).
		Str("agent", defaultID.String()).
		Msg("decided agent is not registered, using default")
	in.Decision.AgentID = defaultID
	in.Decision.Fallback = true
	in.Agent = agent
	return in, nil
}
