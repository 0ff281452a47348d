package itinerary

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	toolx "github.com/tanpawarit/dikas-orlando/agent/tool"
)

const fallbackQuestion = "Pode me contar um pouco mais sobre a sua viagem para Orlando?"

// Result is what one collection turn produced: either Partial or Complete.
type Result interface {
	isResult()
}

// Partial means the planner still needs answers. Fields holds any values
// the model already emitted, even if incomplete.
type Partial struct {
	Question string
	Fields   map[string]any
	Missing  []string
}

// Complete carries a validated roteiro call.
type Complete struct {
	Fields map[string]any
}

func (Partial) isResult()  {}
func (Complete) isResult() {}

// Interpret converts a completion into a Result. Only a roteiro call whose
// arguments pass validation is Complete.
func Interpret(out contractx.Completion) Result {
	question := strings.TrimSpace(out.Content)
	if out.ToolCall == nil {
		if question == "" {
			question = fallbackQuestion
		}
		return Partial{Question: question}
	}

	args, err := toolx.ParseItineraryCall(out.ToolCall)
	if err == nil {
		return Complete{Fields: args}
	}

	p := Partial{Question: question, Fields: args}
	if errors.Is(err, contractx.ErrIncompleteSlots) {
		p.Missing = toolx.MissingItineraryFields(args)
	}
	if p.Question == "" {
		p.Question = missingQuestion(p.Missing)
	}
	return p
}

func missingQuestion(missing []string) string {
	if len(missing) == 0 {
		return fallbackQuestion
	}
	var b strings.Builder
	b.WriteString("Quase lá! Ainda preciso destas informações:\n")
	for i, name := range missing {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(name, "_", " "))
	}
	return strings.TrimSpace(b.String())
}
