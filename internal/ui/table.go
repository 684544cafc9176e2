package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Row is a label/value pair in a summary table.
type Row struct {
	Label string
	Value string
}

// SummaryView renders rows as a two-column table.
func SummaryView(rows []Row) string {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.Label, Truncate(r.Value, 60)}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Metric", "Value").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// RoomInfo is the box printed after joining a room.
type RoomInfo struct {
	RoomKey string
	Peers   int
}

func (r RoomInfo) View() string {
	peers := "nobody else yet"
	switch r.Peers {
	case 0:
	case 1:
		peers = "1 peer waiting"
	default:
		peers = fmt.Sprintf("%d peers waiting", r.Peers)
	}

	content := fmt.Sprintf("%s Joined room\n\n%s Room key:  %s\n%s Members:   %s",
		IconRoom,
		IconKey, BoldStyle.Foreground(Primary).Render(r.RoomKey),
		IconPeer, MutedStyle.Render(peers),
	)
	return SuccessBoxStyle.Render(content)
}

// KeyView is the box printed for a freshly generated room key.
func KeyView(key, hint string) string {
	content := fmt.Sprintf("%s Room key\n\n%s", IconKey, BoldStyle.Foreground(Primary).Render(key))
	if hint != "" {
		content += "\n\n" + MutedStyle.Render(hint)
	}
	return InfoBoxStyle.Render(content)
}
