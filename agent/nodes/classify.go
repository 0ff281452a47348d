package orchestratornode

import (
	"context"
	"fmt"

	classifierx "github.com/tanpawarit/dikas-orlando/agent/classifier"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// IntentClassifier never fails; a bad answer comes back as a fallback decision.
type IntentClassifier interface {
	Classify(ctx context.Context, turns []contractx.Turn) classifierx.Decision
}

func Classify(ctx context.Context, in *GraphState, classifier IntentClassifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Decision = classifier.Classify(ctx, in.Turns)
	return in, nil
}
