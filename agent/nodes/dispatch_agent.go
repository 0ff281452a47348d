package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	logx "github.com/tanpawarit/dikas-orlando/pkg/logger"
)

// GenericErrorMessage is what the user sees when an agent fails.
const GenericErrorMessage = "Desculpe, ocorreu um erro ao processar sua mensagem. Tente novamente em instantes."

// DispatchAgent hands the full context to the resolved agent. Agent errors
// and panics become a generic error response; the cause stays in Err.
func DispatchAgent(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Agent == nil {
		return nil, ErrNoAgent
	}

	resp, err := execute(ctx, in)
	if err != nil {
		logx.Session(in.SessionKey, in.Agent.ID().String()).Error().Err(err).Msg("agent execution failed")
		in.Err = err
		resp = contractx.ErrorResponse(GenericErrorMessage, nil)
	}
	if resp.AgentID == "" {
		resp.AgentID = in.Agent.ID()
	}
	in.Response = resp
	return in, nil
}

func execute(ctx context.Context, in *GraphState) (resp contractx.AgentResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked: %v", in.Agent.ID(), r)
		}
	}()
	return in.Agent.Execute(ctx, contractx.AgentRequest{
		Turns:      in.Turns,
		SessionKey: in.SessionKey,
		User:       in.User,
	})
}
