package queue

import (
	"fmt"
	"strings"

	statex "github.com/tanpawarit/dikas-orlando/agent/state"
)

// Park is an Orlando park known to Queue-Times.
type Park struct {
	ID      int
	Name    string
	Aliases []string
}

// parks is presented to the user in this order; the list position is the
// selection number.
var parks = []Park{
	{ID: 1, Name: "Magic Kingdom", Aliases: []string{"magic kingdom", "magic-kingdom"}},
	{ID: 2, Name: "Animal Kingdom", Aliases: []string{"animal kingdom", "animal-kingdom"}},
	{ID: 5, Name: "Hollywood Studios", Aliases: []string{"hollywood studios", "hollywood-studios"}},
	{ID: 6, Name: "Epcot", Aliases: []string{"epcot"}},
	{ID: 3, Name: "Universal Studios Florida", Aliases: []string{"universal studios", "universal-studios"}},
	{ID: 4, Name: "Islands of Adventure", Aliases: []string{"islands of adventure", "islands-of-adventure"}},
	{ID: 7, Name: "Volcano Bay", Aliases: []string{"volcano bay", "volcano-bay"}},
	{ID: 8, Name: "SeaWorld Orlando", Aliases: []string{"seaworld", "sea world"}},
}

func Parks() []Park {
	return append([]Park(nil), parks...)
}

// Options converts the catalogue into numbered selection options.
func Options() []statex.Option {
	out := make([]statex.Option, 0, len(parks))
	for i, p := range parks {
		out = append(out, statex.Option{Number: i + 1, ID: p.ID, Name: p.Name})
	}
	return out
}

// MatchPark finds the first park whose name or alias occurs in text.
func MatchPark(text string) (statex.Option, bool) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return statex.Option{}, false
	}
	for i, p := range parks {
		candidates := append([]string{strings.ToLower(p.Name)}, p.Aliases...)
		for _, c := range candidates {
			if strings.Contains(lower, c) {
				return statex.Option{Number: i + 1, ID: p.ID, Name: p.Name}, true
			}
		}
	}
	return statex.Option{}, false
}

// ListMessage renders the numbered park list sent to the user.
func ListMessage(options []statex.Option) string {
	var b strings.Builder
	b.WriteString("🎢 *Parques disponíveis em Orlando* 🎢\n\n")
	for _, o := range options {
		fmt.Fprintf(&b, "%d. %s\n", o.Number, o.Name)
	}
	b.WriteString("\nPara consultar as filas, responda apenas com o número do parque desejado.")
	return b.String()
}
