package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/itinerary.txt
	itineraryRaw string

	//go:embed template/generator.txt
	generatorRaw string

	//go:embed template/websearch.txt
	webSearchRaw string
)

// PromptSet holds the embedded templates. Placeholders use {name} syntax.
type PromptSet struct {
	Classifier string
	Itinerary  string
	Generator  string
	WebSearch  string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Itinerary:  strings.TrimSpace(itineraryRaw),
		Generator:  strings.TrimSpace(generatorRaw),
		WebSearch:  strings.TrimSpace(webSearchRaw),
	}
}

// Render fills the {name} placeholders of tpl.
func Render(ctx context.Context, tpl string, vars map[string]any) (string, error) {
	if strings.TrimSpace(tpl) == "" {
		return "", contractx.ErrPromptMissing
	}
	template := einoprompt.FromMessages(schema.FString, schema.SystemMessage(tpl))
	msgs, err := template.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %v", contractx.ErrPromptMissing, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", contractx.ErrPromptMissing
	}
	return strings.TrimSpace(msgs[0].Content), nil
}
