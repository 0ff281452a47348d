package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

func FinalizeResponse(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	resp := in.Response
	resp.Message = strings.TrimSpace(resp.Message)
	if resp.Status == "" {
		resp.Status = contractx.StatusOK
	}
	if resp.Message == "" && resp.Status == contractx.StatusError {
		resp.Message = GenericErrorMessage
	}
	return GraphOutput{Response: resp, Decision: in.Decision, Err: in.Err}, nil
}
