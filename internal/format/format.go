package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatBytes formats a byte count into a human-readable string with 1 decimal place.
// Thresholds: <1KB → B, <1MB → KB, <1GB → MB, <1TB → GB, else TB.
func FormatBytes(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
		tb = gb * 1024
	)
	switch {
	case bytes < kb:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	case bytes < gb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes < tb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	default:
		return fmt.Sprintf("%.1f TB", float64(bytes)/tb)
	}
}

// FormatDuration renders an elapsed duration compactly.
// Sub-minute durations are shown in seconds with one decimal place;
// longer ones as 4m05s / 1h12m.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatTime renders a timestamp in UTC, or "-" for the zero value
// (non-terminal snapshots have no end time).
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// FormatNumber formats an integer with locale-style comma separators.
// Example: 12345678 → "12,345,678".
// Uses strconv.FormatInt directly to avoid abs64 overflow for math.MinInt64.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		// s starts with "-"; strip it, insert commas, restore sign.
		return "-" + insertCommas(s[1:])
	}
	return insertCommas(s)
}

// FormatShards renders successful/total shard counts, e.g. "5/5".
func FormatShards(successful, total int) string {
	return fmt.Sprintf("%d/%d", successful, total)
}

// insertCommas inserts comma separators into a digit string every 3 digits from the right.
func insertCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var buf strings.Builder
	lead := n % 3
	if lead > 0 {
		buf.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(s[i : i+3])
	}
	return buf.String()
}
