package tui

import (
	"fmt"
	"strings"

	"github.com/dm/essnap-go/internal/engine"
	"github.com/dm/essnap-go/internal/format"
	"github.com/dm/essnap-go/internal/model"
)

// snapshotColumns is the fixed layout for the snapshot listing.
var snapshotColumns = []struct {
	Title string
	Width int
}{
	{"NAME", 32},
	{"STATE", 12},
	{"STARTED", 20},
	{"ENDED", 20},
	{"DURATION", 10},
	{"SHARDS", 8},
	{"SIZE", 10},
}

// RenderSnapshotTable renders the snapshot inventory as a fixed-width table.
// With plain set, no ANSI styling is applied so output stays pipe-friendly.
func RenderSnapshotTable(snaps []model.SnapshotDescriptor, plain bool) string {
	var b strings.Builder

	var header strings.Builder
	for _, col := range snapshotColumns {
		header.WriteString(pad(col.Title, col.Width))
	}
	if plain {
		b.WriteString(header.String())
	} else {
		b.WriteString(StyleTableHeader.Render(header.String()))
	}
	b.WriteString("\n")

	for _, s := range snaps {
		name := pad(s.Name, snapshotColumns[0].Width)
		rest := pad(s.State.String(), snapshotColumns[1].Width) +
			pad(format.FormatTime(s.StartedAt), snapshotColumns[2].Width) +
			pad(format.FormatTime(s.EndedAt), snapshotColumns[3].Width) +
			pad(durationCell(s), snapshotColumns[4].Width) +
			pad(format.FormatShards(s.SuccessfulShards, s.TotalShards), snapshotColumns[5].Width) +
			pad(sizeCell(s.SizeBytes), snapshotColumns[6].Width)
		if plain {
			b.WriteString(name + rest)
		} else {
			b.WriteString(StateStyle(s.State.String()).Render(name))
			b.WriteString(StyleTableRow.Render(rest))
		}
		b.WriteString("\n")
	}

	if len(snaps) == 0 {
		empty := "no snapshots in repository"
		if plain {
			b.WriteString(empty + "\n")
		} else {
			b.WriteString(StyleDim.Render(empty) + "\n")
		}
	}
	return b.String()
}

// RenderCleanupReport renders the per-candidate outcome of a cleanup run.
func RenderCleanupReport(report engine.CleanupReport, plain bool) string {
	var b strings.Builder

	verb := "deleted"
	if report.DryRun {
		verb = "would delete"
	}
	summary := fmt.Sprintf("%s %d of %d candidate(s), outcome %s",
		verb, report.Deleted(), len(report.Candidates), report.Outcome)
	if report.DryRun {
		summary = fmt.Sprintf("%s %d candidate(s) (dry run)", verb, len(report.Candidates))
	}
	if plain {
		b.WriteString(summary)
	} else {
		b.WriteString(StyleHeader.Render(summary))
	}
	b.WriteString("\n")

	for _, res := range report.Results {
		line := "  "
		switch {
		case res.Skipped:
			line += fmt.Sprintf("~ %s (skipped)", res.Snapshot)
		case res.OK():
			line += fmt.Sprintf("✓ %s", res.Snapshot)
		default:
			line += fmt.Sprintf("✗ %s: %v", res.Snapshot, res.Err)
		}
		if plain {
			b.WriteString(line)
		} else if res.OK() && !res.Skipped {
			b.WriteString(StyleStateSuccess.Render(line))
		} else if res.Skipped {
			b.WriteString(StyleDim.Render(line))
		} else {
			b.WriteString(StyleError.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func durationCell(s model.SnapshotDescriptor) string {
	if d := s.Duration(); d > 0 {
		return format.FormatDuration(d)
	}
	return "-"
}

func sizeCell(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return format.FormatBytes(bytes)
}

// pad left-aligns a cell to width, truncating with an ellipsis when needed.
// Truncation counts runes so a multi-byte name is never split mid-character.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width-2]) + "… "
	}
	return s + strings.Repeat(" ", width-len(r))
}
