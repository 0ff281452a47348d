package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

func TestLoadPromptSetIsComplete(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	for name, p := range map[string]string{
		"classifier": set.Classifier,
		"itinerary":  set.Itinerary,
		"generator":  set.Generator,
		"websearch":  set.WebSearch,
	} {
		assert.NotEmpty(t, p, "%s prompt", name)
	}
}

func TestRenderClassifier(t *testing.T) {
	t.Parallel()

	out, err := Render(context.Background(), LoadPromptSet().Classifier, map[string]any{
		"agents":   "#1: roteiro\n#5: filas",
		"example":  "#5",
		"fallback": "#1",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "#5: filas")
	assert.NotContains(t, out, "{agents}")
}

func TestRenderKeepsBracesInValues(t *testing.T) {
	t.Parallel()

	out, err := Render(context.Background(), LoadPromptSet().Generator, map[string]any{
		"data": `{"ritmo": "intenso"}`,
	})
	require.NoError(t, err)
	assert.Contains(t, out, `{"ritmo": "intenso"}`)
}

func TestRenderEmptyTemplate(t *testing.T) {
	t.Parallel()

	_, err := Render(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, contractx.ErrPromptMissing)
}
