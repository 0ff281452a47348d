package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	promptx "github.com/tanpawarit/dikas-orlando/agent/prompt"
)

const (
	defaultTemperature float32 = 0.5
	defaultMaxTokens           = 500
	defaultWindow              = 12
)

var codePattern = regexp.MustCompile(`#\d+`)

// Catalog is the part of the registry the classifier reads.
type Catalog interface {
	All() []contractx.Agent
	Get(id contractx.AgentID) (contractx.Agent, bool)
	DefaultID() contractx.AgentID
}

// Decision is the outcome of one classification.
type Decision struct {
	AgentID  contractx.AgentID
	Raw      string
	Fallback bool
	Err      error
}

type Option func(*Classifier)

func WithTemperature(t float32) Option {
	return func(c *Classifier) { c.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithWindow bounds how many trailing turns are sent to the model.
func WithWindow(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.window = n
		}
	}
}

type Classifier struct {
	completer   contractx.Completer
	catalog     Catalog
	template    string
	temperature float32
	maxTokens   int
	window      int
}

func New(completer contractx.Completer, catalog Catalog, template string, opts ...Option) (*Classifier, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: classifier needs a completer", contractx.ErrValidation)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: classifier needs an agent catalog", contractx.ErrValidation)
	}
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%w: classifier template", contractx.ErrPromptMissing)
	}
	c := &Classifier{
		completer:   completer,
		catalog:     catalog,
		template:    template,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		window:      defaultWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Classify always yields an agent id; failures resolve to the default agent.
func (c *Classifier) Classify(ctx context.Context, turns []contractx.Turn) Decision {
	fallback := c.catalog.DefaultID()

	systemPrompt, err := c.systemPrompt(ctx)
	if err != nil {
		return c.fallback(fallback, "", err)
	}

	temperature := c.temperature
	maxTokens := c.maxTokens
	out, err := c.completer.Complete(ctx, contractx.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     tail(turns, c.window),
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
	})
	if err != nil {
		return c.fallback(fallback, "", err)
	}

	id, ok := c.parse(out.Content)
	if !ok {
		return c.fallback(fallback, out.Content, fmt.Errorf("%w: unrecognized output %q", contractx.ErrClassification, out.Content))
	}
	return Decision{AgentID: id, Raw: out.Content}
}

func (c *Classifier) fallback(id contractx.AgentID, raw string, err error) Decision {
	log.Warn().
		Err(err).
		Str("raw_output", raw).
		Str("fallback_agent", id.String()).
		Msg("classification fell back to default agent")
	return Decision{AgentID: id, Raw: raw, Fallback: true, Err: err}
}

// parse takes the whole trimmed answer when it is a known code, otherwise
// the first known #N token inside it.
func (c *Classifier) parse(raw string) (contractx.AgentID, bool) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "\"'`.")
	if trimmed == "" {
		return "", false
	}
	if _, ok := c.catalog.Get(contractx.AgentID(trimmed)); ok {
		return contractx.AgentID(trimmed), true
	}
	for _, tok := range codePattern.FindAllString(trimmed, -1) {
		if _, ok := c.catalog.Get(contractx.AgentID(tok)); ok {
			return contractx.AgentID(tok), true
		}
	}
	return "", false
}

func (c *Classifier) systemPrompt(ctx context.Context) (string, error) {
	agents := c.catalog.All()
	if len(agents) == 0 {
		return "", fmt.Errorf("%w: no agents registered", contractx.ErrAgentNotFound)
	}

	var b strings.Builder
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s: %s. %s\n", a.ID(), a.Name(), a.Description())
	}

	return promptx.Render(ctx, c.template, map[string]any{
		"agents":   strings.TrimSpace(b.String()),
		"example":  agents[0].ID().String(),
		"fallback": c.catalog.DefaultID().String(),
	})
}

func tail(turns []contractx.Turn, n int) []contractx.Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
