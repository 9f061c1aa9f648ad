package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/gso-bench/gso-ingest/internal/ingest"
	"github.com/gso-bench/gso-ingest/internal/models"
)

// statusOrder fixes the row order of the status histogram.
var statusOrder = []models.Status{
	models.StatusPassed,
	models.StatusOptBase,
	models.StatusTestFailed,
	models.StatusPatchFailed,
	models.StatusError,
	models.StatusUnknown,
}

type summaryRow struct {
	label string
	value int
}

// printSummary writes the per-source counters and the status histogram.
//
//nolint:errcheck // display-only writes
func printSummary(w io.Writer, res *ingest.Result) {
	fmt.Fprintln(w)

	if len(res.Sources) > 1 {
		nameWidth := len("Model")
		for _, src := range res.Sources {
			nameWidth = max(nameWidth, runewidth.StringWidth(src.Source.ModelName))
		}
		fmt.Fprintf(w, "%s  %s  %s\n", padRight("Model", nameWidth), padLeft("Prepared", 8), padLeft("Malformed", 9))
		fmt.Fprintln(w, strings.Repeat("─", nameWidth+21))
		for _, src := range res.Sources {
			fmt.Fprintf(w, "%s  %s  %s\n",
				padRight(src.Source.ModelName, nameWidth),
				padLeft(fmt.Sprint(src.Stats.Prepared), 8),
				padLeft(fmt.Sprint(src.Stats.Malformed), 9))
		}
		fmt.Fprintln(w)
	}

	stats := res.Stats()
	rows := []summaryRow{
		{"Lines", stats.Lines},
		{"Blank", stats.Blank},
		{"Malformed", stats.Malformed},
		{"Discarded", stats.Discarded},
		{"Prepared", stats.Prepared},
		{"Batches sent", res.Upload.Sent},
		{"Batches failed", len(res.Upload.Failed)},
	}
	for _, s := range statusOrder {
		if n := stats.Statuses[s]; n > 0 {
			rows = append(rows, summaryRow{"Status " + string(s), n})
		}
	}
	writeRows(w, rows)
}

//nolint:errcheck
func writeRows(w io.Writer, rows []summaryRow) {
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(r.label))
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s  %s\n", padRight(r.label, labelWidth), padLeft(fmt.Sprint(r.value), 6))
	}
}

func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}
