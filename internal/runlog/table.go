package runlog

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/runtally/internal/model"
)

// Table renders the most recent limit records as aligned text rows with a
// header. width clamps the note column so rows fit a terminal; pass 0 to
// leave notes unclamped.
func Table(records []model.RunRecord, limit, width int) []string {
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	headers := []string{"run", "duration", "started", "session", "note"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			fmt.Sprintf("#%d", rec.RunNumber),
			fmt.Sprintf("%.3fs", rec.DurationSec),
			rec.StartedAt.Format("2006-01-02 15:04:05"),
			shortSession(rec.SessionID),
			rec.Note,
		})
	}
	clampNotes(headers, rows, width)
	return formatTable(headers, rows, map[int]bool{0: true, 1: true})
}

func shortSession(id string) string {
	runes := []rune(id)
	if len(runes) <= 8 {
		return id
	}
	return string(runes[:8])
}

// clampNotes shrinks the note column to whatever width the fixed columns
// leave over, so long notes cannot push rows past the terminal edge.
func clampNotes(headers []string, rows [][]string, width int) {
	if width <= 0 {
		return
	}
	fixed := 0
	last := len(headers) - 1
	for i := 0; i < last; i++ {
		colWidth := displayWidth(headers[i])
		for _, row := range rows {
			if w := displayWidth(row[i]); w > colWidth {
				colWidth = w
			}
		}
		fixed += colWidth + 1
	}
	noteWidth := width - fixed
	if noteWidth < 8 {
		noteWidth = 8
	}
	for _, row := range rows {
		if displayWidth(row[last]) > noteWidth {
			row[last] = runewidth.Truncate(row[last], noteWidth, "...")
		}
	}
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
