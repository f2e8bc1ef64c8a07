package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressCallback defines the interface for progress reporting
type ProgressCallback interface {
	Update(sessionID string, firstMsg string)
	Finish()
}

// ProgressReporter draws a progress bar during import
type ProgressReporter struct {
	writer    io.Writer
	total     int
	current   int
	startTime time.Time
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(w io.Writer, total int) *ProgressReporter {
	return &ProgressReporter{
		writer:    w,
		total:     total,
		startTime: time.Now(),
	}
}

// Update advances the bar and shows the session being indexed
func (p *ProgressReporter) Update(sessionID string, firstMsg string) {
	p.current++
	if p.total <= 0 {
		return
	}

	pct := float64(p.current) / float64(p.total) * 100

	barWidth := 50
	filled := min(barWidth, barWidth*p.current/p.total)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	displayText := strings.Join(strings.Fields(firstMsg), " ")
	if displayText == "" {
		displayText = sessionID
	}
	if r := []rune(displayText); len(r) > 60 {
		displayText = string(r[:57]) + "..."
	}

	var eta time.Duration
	if elapsed := time.Since(p.startTime); elapsed > 0 {
		rate := float64(p.current) / elapsed.Seconds()
		eta = time.Duration(float64(p.total-p.current)/rate) * time.Second
	}

	_, _ = fmt.Fprintf(p.writer, "\r[%s] %3.0f%% (%d/%d) ETA: %s | %s",
		bar, pct, p.current, p.total, eta.Round(time.Second), displayText)
}

// Finish completes the progress display
func (p *ProgressReporter) Finish() {
	elapsed := time.Since(p.startTime)
	_, _ = fmt.Fprintf(p.writer, "\nCompleted: processed %s sessions in %s\n",
		humanize.Comma(int64(p.current)), elapsed.Round(time.Millisecond))
}
