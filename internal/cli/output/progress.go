package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar displays a record counter with throughput.
type ProgressBar struct {
	w       io.Writer
	title   string
	total   int64
	current int64
	width   int
	started time.Time
	now     func() time.Time
	mu      sync.Mutex
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(w io.Writer, title string) *ProgressBar {
	return &ProgressBar{
		w:       w,
		title:   title,
		width:   40,
		started: time.Now(),
		now:     time.Now,
	}
}

// SetTotal sets the expected record count.
func (p *ProgressBar) SetTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Update sets the progress.
func (p *ProgressBar) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.total = total
	p.render()
}

// Increment adds to current progress.
func (p *ProgressBar) Increment(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.render()
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		p.current = p.total
	}
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	rate := formatRate(p.current, p.now().Sub(p.started))
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %d records %s", p.title, p.current, rate)
		return
	}

	percent := float64(p.current) / float64(p.total)
	if percent > 1 {
		percent = 1
	}

	filled := int(float64(p.width) * percent)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%d/%d) %s",
		p.title, bar, percent*100, p.current, p.total, rate)
}

// formatRate renders n events over d as a per-second figure.
func formatRate(n int64, d time.Duration) string {
	if d <= 0 {
		return "- rec/s"
	}
	r := float64(n) / d.Seconds()
	switch {
	case r >= 1e6:
		return fmt.Sprintf("%.1fM rec/s", r/1e6)
	case r >= 1e3:
		return fmt.Sprintf("%.1fk rec/s", r/1e3)
	default:
		return fmt.Sprintf("%.0f rec/s", r)
	}
}
