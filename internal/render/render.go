// Package render turns backend answers into the text and buttons of the
// channel poll message.
package render

import (
	"fmt"
	"strings"

	"github.com/jaam8/channel_poll_bot/internal/models"
)

const (
	Preamble      = "📈 Сўровнома бўйча натижалар:\n\n"
	ButtonsPerRow = 3
)

// Render builds the poll message from a fresh tally and a fresh option list.
func Render(tally models.Tally, options []string) (string, models.Grid) {
	return Text(tally), Grid(options)
}

// Text numbers tally lines from 1 in tally order.
func Text(tally models.Tally) string {
	lines := make([]string, len(tally))
	for i, c := range tally {
		lines[i] = Line(i+1, c)
	}
	return Preamble + strings.Join(lines, "\n")
}

func Line(n int, c models.Count) string {
	return fmt.Sprintf("**%d. %s:    %d**", n, c.Label, c.Votes)
}

// Grid splits options into rows of ButtonsPerRow keeping their order.
func Grid(options []string) models.Grid {
	grid := make(models.Grid, 0, (len(options)+ButtonsPerRow-1)/ButtonsPerRow)
	for start := 0; start < len(options); start += ButtonsPerRow {
		end := min(start+ButtonsPerRow, len(options))
		row := make([]models.Button, 0, end-start)
		for _, option := range options[start:end] {
			row = append(row, models.Button{Label: option, Payload: option})
		}
		grid = append(grid, row)
	}
	return grid
}
