package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/speedwagon-io/wastemon/internal/level"
)

// ANSI codes keep the table readable on 16-color terminals.
var colorPalette = map[level.Color]lipgloss.Color{
	level.Neutral:  "8",
	level.Nominal:  "2",
	level.Warning:  "3",
	level.Critical: "1",
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func TerminalColor(c level.Color) lipgloss.Color {
	if tc, ok := colorPalette[c]; ok {
		return tc
	}
	return colorPalette[level.Neutral]
}

// RenderText renders rows as a plain terminal table, one line per bin.
func RenderText(rows []Row) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n")

	nameWidth := len("Location")
	for _, row := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(row.Name))
	}

	header := fmt.Sprintf("%-5s  %-*s  %-18s  %s", "Bin", nameWidth, "Location", "Waste Level", "Map")
	b.WriteString(mutedStyle.Render(header))
	b.WriteString("\n")

	for _, row := range rows {
		label := row.Label()
		if row.Loading {
			label = "waiting for data"
		}
		status := lipgloss.NewStyle().
			Foreground(TerminalColor(row.Color)).
			Width(18).
			Render(label)

		fmt.Fprintf(&b, "%-5d  %-*s  %s  %s\n", row.Bin, nameWidth, row.Name, status, row.URL)
	}

	return b.String()
}
