package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonschema"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// ToolRoteiro is the structured call that closes itinerary slot collection.
const ToolRoteiro = "roteiro"

type field struct {
	Name string
	Type schema.DataType
	Elem schema.DataType
	Enum []string
	Desc string
}

// itineraryFields are all required, in the order the planner asks for them.
var itineraryFields = []field{
	{Name: "data_chegada", Type: schema.String, Desc: "Data de chegada em Orlando (AAAA-MM-DD)"},
	{Name: "dias_completos_orlando", Type: schema.Integer, Desc: "Quantidade de dias completos na cidade"},
	{Name: "numero_viajantes", Type: schema.Integer, Desc: "Número total de viajantes"},
	{Name: "criancas", Type: schema.Array, Elem: schema.Integer, Desc: "Idades das crianças; lista vazia se não houver"},
	{Name: "ingressos_parques_comprados", Type: schema.Boolean, Desc: "Se os ingressos já foram comprados"},
	{Name: "parques_desejados", Type: schema.Array, Elem: schema.String, Desc: "Parques que desejam visitar"},
	{Name: "ritmo", Type: schema.String, Enum: []string{"intenso", "equilibrado", "tranquilo"}, Desc: "Ritmo da viagem"},
	{Name: "horario_preferido_acordar", Type: schema.String, Desc: "Horário preferido para acordar, ex. 08:00"},
	{Name: "disposicao_fisica", Type: schema.String, Enum: []string{"baixa", "média", "alta"}, Desc: "Disposição física do grupo"},
	{Name: "foco_viagem", Type: schema.String, Desc: "Foco da viagem (parques, compras...)"},
	{Name: "restricoes_alimentares", Type: schema.String, Desc: "Restrições alimentares"},
	{Name: "reservas_restaurantes_tematicos", Type: schema.Boolean, Desc: "Se já possuem reservas em restaurantes temáticos"},
	{Name: "interesse_gastronomico", Type: schema.Boolean, Desc: "Interesse em experiências gastronômicas"},
	{Name: "cafe_manha_personagens", Type: schema.Boolean, Desc: "Se deseja café da manhã com personagens"},
	{Name: "preferencia_refeicao", Type: schema.String, Enum: []string{"fast-food", "refeições elaboradas", "ambas"}, Desc: "Preferência de refeição"},
	{Name: "meio_transporte", Type: schema.String, Desc: "Meio de transporte"},
	{Name: "hotel_ou_regiao", Type: schema.String, Desc: "Hotel ou região de hospedagem"},
	{Name: "usar_onibus_disney", Type: schema.Boolean, Desc: "Se pretendem usar os ônibus da Disney"},
	{Name: "programacao_noturna", Type: schema.Boolean, Desc: "Se querem sugestões para a noite"},
	{Name: "passeios_externos", Type: schema.Array, Elem: schema.String, Desc: "Passeios fora dos parques"},
	{Name: "lojas_prioritarias", Type: schema.Array, Elem: schema.String, Desc: "Lojas prioritárias"},
	{Name: "dias_compras_inteligente", Type: schema.String, Desc: "Se querem um roteiro de compras inteligente"},
	{Name: "servicos_extras", Type: schema.Array, Elem: schema.String, Desc: "Serviços extras de interesse"},
	{Name: "dia_livre", Type: schema.Boolean, Desc: "Se desejam um dia completamente livre"},
	{Name: "motivo_viagem", Type: schema.String, Desc: "Motivo da viagem (aniversário, primeira vez...)"},
}

// ItineraryFieldNames returns the required keys of the roteiro call.
func ItineraryFieldNames() []string {
	names := make([]string, 0, len(itineraryFields))
	for _, f := range itineraryFields {
		names = append(names, f.Name)
	}
	return names
}

func ItineraryTool() *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(itineraryFields))
	for _, f := range itineraryFields {
		p := &schema.ParameterInfo{
			Type:     f.Type,
			Desc:     f.Desc,
			Enum:     f.Enum,
			Required: true,
		}
		if f.Type == schema.Array {
			p.ElemInfo = &schema.ParameterInfo{Type: f.Elem}
		}
		params[f.Name] = p
	}
	return &schema.ToolInfo{
		Name:        ToolRoteiro,
		Desc:        "Gera um roteiro personalizado para Orlando a partir das informações completas dos viajantes.",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// ForAgent returns the tools an agent may call.
func ForAgent(id contractx.AgentID) []*schema.ToolInfo {
	switch id {
	case contractx.AgentIDItinerary:
		return []*schema.ToolInfo{ItineraryTool()}
	default:
		return nil
	}
}

// ParseItineraryCall accepts a tool call only when it names roteiro and its
// arguments validate against the roteiro JSON Schema.
func ParseItineraryCall(call *contractx.ToolCall) (map[string]any, error) {
	if call == nil {
		return nil, fmt.Errorf("%w: no tool call", contractx.ErrIncompleteSlots)
	}
	if name := strings.TrimSpace(call.Name); name != ToolRoteiro {
		return nil, fmt.Errorf("%w: unexpected tool %q", contractx.ErrSchemaViolation, name)
	}
	args, err := DecodeArgs(call.Arguments)
	if err != nil {
		return nil, err
	}
	normalizeEnums(args)
	if err := ValidateItineraryArgs(args); err != nil {
		return args, err
	}
	return args, nil
}

func DecodeArgs(raw string) (map[string]any, error) {
	args := map[string]any{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: invalid tool args: %v", contractx.ErrSchemaViolation, err)
	}
	return args, nil
}

// MissingItineraryFields lists required keys that are absent, null or do not
// satisfy their property schema, in declaration order.
func MissingItineraryFields(args map[string]any) []string {
	var missing []string
	for _, f := range itineraryFields {
		if !itinerarySchemas.fields[f.Name].Validate(args[f.Name]).IsValid() {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// ValidateItineraryArgs checks args against the roteiro JSON Schema.
func ValidateItineraryArgs(args map[string]any) error {
	if itinerarySchemas.call.Validate(args).IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %s", contractx.ErrIncompleteSlots, strings.Join(MissingItineraryFields(args), ", "))
}

type compiledSchemas struct {
	call   *jsonschema.Schema
	fields map[string]*jsonschema.Schema
}

var itinerarySchemas = mustCompileItinerarySchemas()

func mustCompileItinerarySchemas() compiledSchemas {
	out := compiledSchemas{fields: make(map[string]*jsonschema.Schema, len(itineraryFields))}
	properties := make(map[string]any, len(itineraryFields))
	for _, f := range itineraryFields {
		doc := f.jsonSchema()
		properties[f.Name] = doc
		out.fields[f.Name] = mustCompile(doc)
	}
	out.call = mustCompile(map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   ItineraryFieldNames(),
	})
	return out
}

func mustCompile(doc map[string]any) *jsonschema.Schema {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal roteiro schema: %v", err))
	}
	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		panic(fmt.Sprintf("compile roteiro schema: %v", err))
	}
	return compiled
}

// normalizeEnums lowercases enum answers so "Média" matches "média".
func normalizeEnums(args map[string]any) {
	for _, f := range itineraryFields {
		if len(f.Enum) == 0 {
			continue
		}
		if v, ok := args[f.Name].(string); ok {
			args[f.Name] = strings.ToLower(strings.TrimSpace(v))
		}
	}
}

func (f field) jsonSchema() map[string]any {
	doc := map[string]any{"type": string(f.Type)}
	if len(f.Enum) > 0 {
		doc["enum"] = f.Enum
	}
	if f.Type == schema.Array && f.Elem != "" {
		doc["items"] = map[string]any{"type": string(f.Elem)}
	}
	return doc
}
