// Package report renders run summaries and history for the console.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"iiqsort/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if IsTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleLight)
		tw.Style().Options.DrawBorder = false
	}
	return tw
}

// Summary writes the counters, then parse and execution failures if any.
func Summary(w io.Writer, sum *model.Summary) {
	mode := sum.Mode
	if sum.DryRun {
		mode += " (dry run)"
	}
	fmt.Fprintf(w, "run %s: %s -> %s [%s]\n", sum.RunID, sum.Source, sum.Output, mode)

	tw := newTable(w)
	tw.AppendHeader(table.Row{"Sessions", "Planned", "Moved", "Skipped", "Failed", "Unreadable", "Parse errors", "Data"})
	tw.AppendRow(table.Row{
		sum.Sessions,
		sum.Counts.Planned,
		sum.Counts.Moved,
		sum.Counts.Skipped,
		sum.Counts.Failed,
		sum.Counts.Unreadable,
		len(sum.ParseErrors),
		humanize.IBytes(uint64(sum.BytesMoved)),
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 8, Align: text.AlignRight},
	})
	tw.Render()

	if len(sum.ParseErrors) > 0 {
		fmt.Fprintln(w, "\nunrecognised files:")
		failures(w, sum.ParseErrors)
	}
	if len(sum.Failures) > 0 {
		fmt.Fprintln(w, "\nfailures:")
		failures(w, sum.Failures)
	}
}

// Pairing writes the per-camera counts of a pair run. It prints nothing for
// other runs.
func Pairing(w io.Writer, sum *model.Summary) {
	p := sum.Pairing
	if p == nil {
		return
	}

	fmt.Fprintf(w, "\n%d matched pair(s)\n", p.Matched)
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Camera", "Captures", "Unmatched", "Empty"})
	tw.AppendRow(table.Row{p.Left, p.LeftCount, p.LeftUnmatched, p.LeftEmpty})
	tw.AppendRow(table.Row{p.Right, p.RightCount, p.RightUnmatched, p.RightEmpty})
	tw.Render()
}

func failures(w io.Writer, list []model.Failure) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"File", "Reason"})
	for _, f := range list {
		tw.AppendRow(table.Row{f.Path, f.Reason})
	}
	tw.Render()
}

// Plans lists every planned destination, used for dry runs.
func Plans(w io.Writer, sum *model.Summary) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Kind", "Source", "Destination", "Outcome"})
	for _, o := range sum.Outcomes {
		dst := o.Plan.DstRel
		if o.Plan.Conflict > 0 {
			dst += " (#" + strconv.Itoa(o.Plan.Conflict) + ")"
		}
		outcome := string(o.Kind)
		if o.Reason != "" {
			outcome += ": " + o.Reason
		}
		tw.AppendRow(table.Row{o.Plan.Kind, o.Plan.Src, dst, outcome})
	}
	tw.Render()
}

// History renders stored history rows, newest first.
func History(w io.Writer, rows []model.History) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no history yet")
		return
	}

	tw := newTable(w)
	tw.AppendHeader(table.Row{"", "When", "Run", "Outcome", "Source", "Destination"})
	for _, h := range rows {
		mark := "✓"
		switch h.Outcome {
		case model.OutcomeFailed:
			mark = "✗"
		case model.OutcomeSkipped:
			mark = "-"
		}
		run := h.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		tw.AppendRow(table.Row{mark, h.HandledAt.Format("2006-01-02 15:04:05"), run, h.Outcome, h.SrcPath, h.DstPath})
	}
	tw.Render()
}

// JSON writes the summary as indented JSON.
func JSON(w io.Writer, sum *model.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
