package queue

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// FormatReport groups rides by land, longest waits first. The Queue-Times
// credit line is mandatory.
func FormatReport(parkName string, rides []Ride, now time.Time) string {
	var order []string
	byLand := map[string][]Ride{}
	for _, r := range rides {
		if _, ok := byLand[r.Land]; !ok {
			order = append(order, r.Land)
		}
		byLand[r.Land] = append(byLand[r.Land], r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎢 *Tempos de fila em %s - Orlando* 🎢\n\n", parkName)
	for _, name := range order {
		group := byLand[name]
		slices.SortStableFunc(group, func(a, b Ride) int {
			return cmp.Compare(b.WaitTime, a.WaitTime)
		})
		if name != "" {
			fmt.Fprintf(&b, "*📍 %s*\n", name)
		}
		for _, r := range group {
			if r.IsOpen {
				fmt.Fprintf(&b, "• %s: *%d min*\n", r.Name, r.WaitTime)
			} else {
				fmt.Fprintf(&b, "• %s: Fechada ❌\n", r.Name)
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "⏰ *Atualizado em: %s*\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("📊 Desenvolvido por Queue-Times.com")
	return b.String()
}
