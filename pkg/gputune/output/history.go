package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/gputune/pkg/gputune/history"
)

// FormatHistory writes one line per run, newest first, with ages relative to now.
func FormatHistory(w *bytes.Buffer, runs []history.Run, now time.Time) {
	if len(runs) == 0 {
		w.WriteString(MutedStyle.Render("No tuning runs recorded"))
		w.WriteString("\n")
		return
	}

	for _, run := range runs {
		gpu := run.GPUName
		if gpu == "" {
			gpu = "cpu"
		}

		age := humanize.RelTime(run.Timestamp, now, "ago", "from now")
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}

		fmt.Fprintf(w, "%s  %-14s %s  batch=%s workers=%s",
			MutedStyle.Render(id),
			age,
			ValueStyle.Render(gpu),
			NumberStyle.Render(fmt.Sprint(run.BatchSize)),
			NumberStyle.Render(fmt.Sprint(run.NumWorkers)),
		)
		if len(run.Patched) > 0 {
			fmt.Fprintf(w, "  %s", SuccessStyle.Render(strings.Join(run.Patched, ",")))
		}
		if run.DryRun {
			fmt.Fprintf(w, "  %s", WarningStyle.Render("(dry run)"))
		}
		w.WriteString("\n")
	}
}
