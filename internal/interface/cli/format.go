package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// truncate collapses whitespace and cuts s at a word boundary near maxLen runes.
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}

	truncated := string(r[:maxLen])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 0 && lastSpace > len(truncated)-20 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

// formatTimestamp formats a timestamp in a human-friendly way
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if time.Since(t) < 30*24*time.Hour {
		return humanize.Time(t)
	}
	if t.Year() == time.Now().Year() {
		return t.Local().Format("Jan 2")
	}
	return t.Local().Format("Jan 2, 2006")
}

// parseDate accepts natural language ("yesterday", "last week") or a fixed
// date format.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006/01/02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	result, err := w.Parse(s, now)
	if err == nil && result != nil {
		return result.Time, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
