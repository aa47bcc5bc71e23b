package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/vanshika/fraudring/internal/generator"
	"github.com/vanshika/fraudring/internal/layout"
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	warn   = color.New(color.FgYellow)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

// skipped is a ring left out of a layout run.
type skipped struct {
	RingID string `json:"ring_id,omitempty"`
	Error  string `json:"error"`
}

type report struct {
	Source  string          `json:"source"`
	Layouts []layout.Result `json:"layouts"`
	Skipped []skipped       `json:"skipped"`
}

func printReport(w io.Writer, rep report, jsonOut bool) error {
	if jsonOut {
		return generator.Encode(w, rep)
	}

	fmt.Fprintf(w, "%s %s\n\n", brand.Sprint("fraudring"), subtle.Sprint(rep.Source))

	rows := make([][]string, 0, len(rep.Layouts))
	for _, res := range rep.Layouts {
		s := res.Settlement
		rows = append(rows, []string{
			res.RingID,
			fmt.Sprint(len(res.Positions)),
			fmt.Sprint(s.Ticks),
			fmt.Sprintf("%.3f", s.MaxDisplacement),
			fmt.Sprintf("%.2f", s.Viewport.Scale),
			statusIcon(s.Converged),
		})
	}
	table(w, []string{"RING", "NODES", "TICKS", "MAX MOVE", "ZOOM", "CONVERGED"}, rows)

	for _, s := range rep.Skipped {
		id := s.RingID
		if id == "" {
			id = "?"
		}
		fmt.Fprintf(w, "%s skipped %s: %s\n", warn.Sprint("!"), id, s.Error)
	}
	fmt.Fprintf(w, "\n%d laid out, %d skipped\n", len(rep.Layouts), len(rep.Skipped))
	return nil
}

// table prints an aligned table. Column widths are computed on the plain cell
// text, so cells must not carry colour codes except in the last column.
func table(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		subtle.Fprintln(w, "  (no rings)")
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerLine := "  "
	sepLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%-*s  ", widths[i], h)
		sepLine += strings.Repeat("─", widths[i]) + "  "
	}
	subtle.Fprintln(w, headerLine)
	subtle.Fprintln(w, sepLine)

	for _, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += fmt.Sprintf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func statusIcon(ok bool) string {
	if ok {
		return good.Sprint("✓")
	}
	return bad.Sprint("✗")
}
