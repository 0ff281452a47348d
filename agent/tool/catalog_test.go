package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

func completeArgs() map[string]any {
	return map[string]any{
		"data_chegada":                    "2026-12-20",
		"dias_completos_orlando":          float64(7),
		"numero_viajantes":                float64(4),
		"criancas":                        []any{float64(6), float64(9)},
		"ingressos_parques_comprados":     false,
		"parques_desejados":               []any{"Magic Kingdom", "Epcot"},
		"ritmo":                           "equilibrado",
		"horario_preferido_acordar":       "07:30",
		"disposicao_fisica":               "média",
		"foco_viagem":                     "parques",
		"restricoes_alimentares":          "nenhuma",
		"reservas_restaurantes_tematicos": false,
		"interesse_gastronomico":          true,
		"cafe_manha_personagens":          true,
		"preferencia_refeicao":            "ambas",
		"meio_transporte":                 "carro alugado",
		"hotel_ou_regiao":                 "Lake Buena Vista",
		"usar_onibus_disney":              false,
		"programacao_noturna":             true,
		"passeios_externos":               []any{},
		"lojas_prioritarias":              []any{"Premium Outlets"},
		"dias_compras_inteligente":        "sim",
		"servicos_extras":                 []any{"chip de celular"},
		"dia_livre":                       false,
		"motivo_viagem":                   "primeira vez",
	}
}

func TestItineraryToolDeclaresAllFields(t *testing.T) {
	t.Parallel()

	info := ForAgent(contractx.AgentIDItinerary)
	require.Len(t, info, 1)
	assert.Equal(t, ToolRoteiro, info[0].Name)

	js, err := info[0].ParamsOneOf.ToOpenAPIV3()
	require.NoError(t, err)
	assert.Len(t, js.Required, 25)
	assert.Len(t, ItineraryFieldNames(), 25)
	assert.Nil(t, ForAgent(contractx.AgentIDQueueTimes))
}

func TestParseItineraryCallComplete(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(completeArgs())
	require.NoError(t, err)

	args, err := ParseItineraryCall(&contractx.ToolCall{Name: "roteiro", Arguments: string(raw)})
	require.NoError(t, err)
	assert.Equal(t, "Lake Buena Vista", args["hotel_ou_regiao"])
}

func TestParseItineraryCallNormalizesEnumCase(t *testing.T) {
	t.Parallel()

	args := completeArgs()
	args["ritmo"] = " Equilibrado "
	args["disposicao_fisica"] = "MÉDIA"
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	got, err := ParseItineraryCall(&contractx.ToolCall{Name: "roteiro", Arguments: string(raw)})
	require.NoError(t, err)
	assert.Equal(t, "equilibrado", got["ritmo"])
	assert.Equal(t, "média", got["disposicao_fisica"])
}

func TestParseItineraryCallRejectsOtherToolName(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(completeArgs())
	require.NoError(t, err)

	_, err = ParseItineraryCall(&contractx.ToolCall{Name: "gerar_roteiro", Arguments: string(raw)})
	assert.ErrorIs(t, err, contractx.ErrSchemaViolation)
}

func TestParseItineraryCallRejectsNullAndMissing(t *testing.T) {
	t.Parallel()

	args := completeArgs()
	args["ritmo"] = nil
	delete(args, "dia_livre")
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	_, err = ParseItineraryCall(&contractx.ToolCall{Name: "roteiro", Arguments: string(raw)})
	require.ErrorIs(t, err, contractx.ErrIncompleteSlots)
	assert.Contains(t, err.Error(), "ritmo, dia_livre")

	assert.Equal(t, []string{"ritmo", "dia_livre"}, MissingItineraryFields(args))
}

func TestMissingItineraryFieldsChecksTypes(t *testing.T) {
	t.Parallel()

	args := completeArgs()
	args["numero_viajantes"] = "quatro"
	args["dias_completos_orlando"] = 6.5
	args["ritmo"] = "corrido"
	args["criancas"] = []any{"seis"}
	args["dia_livre"] = "não"

	want := []string{"dias_completos_orlando", "numero_viajantes", "criancas", "ritmo", "dia_livre"}
	assert.Equal(t, want, MissingItineraryFields(args))
	assert.ErrorIs(t, ValidateItineraryArgs(args), contractx.ErrIncompleteSlots)
}

func TestValidateItineraryArgsAcceptsCompleteCall(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateItineraryArgs(completeArgs()))
	assert.Empty(t, MissingItineraryFields(completeArgs()))
	assert.Len(t, MissingItineraryFields(map[string]any{}), 25)
}

func TestParseItineraryCallInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := ParseItineraryCall(&contractx.ToolCall{Name: "roteiro", Arguments: "{not json"})
	assert.ErrorIs(t, err, contractx.ErrSchemaViolation)

	_, err = ParseItineraryCall(nil)
	assert.ErrorIs(t, err, contractx.ErrIncompleteSlots)
}
