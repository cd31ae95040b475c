// Package progress reports translation progress at batch boundaries.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	// DefaultWidth is the number of cells in the bar.
	DefaultWidth = 40
	// DefaultInterval is the minimum time between two redraws.
	DefaultInterval = time.Second
)

// Update is a snapshot taken after a batch completes.
type Update struct {
	CompletedLines   int
	TotalLines       int
	CompletedBatches int
	TotalBatches     int
	Elapsed          time.Duration
}

// Func receives progress updates. It must be safe to call from the
// goroutine that completed the batch.
type Func func(Update)

// Done reports whether every batch has completed.
func (u Update) Done() bool {
	return u.CompletedBatches >= u.TotalBatches
}

// Percent returns completion in the range [0, 100].
func (u Update) Percent() float64 {
	if u.TotalLines <= 0 {
		return 100
	}
	return float64(u.CompletedLines) / float64(u.TotalLines) * 100
}

// Rate returns completed lines per second.
func (u Update) Rate() float64 {
	if u.Elapsed <= 0 {
		return 0
	}
	return float64(u.CompletedLines) / u.Elapsed.Seconds()
}

// ETA estimates the remaining time from the current rate.
func (u Update) ETA() time.Duration {
	rate := u.Rate()
	if rate <= 0 {
		return 0
	}
	remaining := u.TotalLines - u.CompletedLines
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// Render formats u as a single bar line:
//
//	[================                        ] 40.0% (4/10) | 2/5 | 1.3 l/s | ETA: 5s | 14:03:27
func Render(u Update, width int, clock time.Time) string {
	if width <= 0 {
		width = DefaultWidth
	}
	filled := width
	if u.TotalLines > 0 {
		filled = width * u.CompletedLines / u.TotalLines
	}
	filled = max(0, min(filled, width))

	bar := color.GreenString(strings.Repeat("=", filled)) + strings.Repeat(" ", width-filled)

	return fmt.Sprintf("[%s] %.1f%% (%d/%d) | %d/%d | %.1f l/s | ETA: %.0fs | %s",
		bar, u.Percent(), u.CompletedLines, u.TotalLines,
		u.CompletedBatches, u.TotalBatches,
		u.Rate(), u.ETA().Seconds(), clock.Format("15:04:05"))
}

// Bar draws updates on a terminal line, redrawing at most once per interval
// except for the final update, which is always drawn and ends the line.
type Bar struct {
	mu       sync.Mutex
	w        io.Writer
	width    int
	interval time.Duration
	now      func() time.Time
	last     time.Time
	drawn    bool
}

// NewBar returns a bar writing to w with the default width and interval.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		w:        w,
		width:    DefaultWidth,
		interval: DefaultInterval,
		now:      time.Now,
	}
}

// Update is a Func.
func (b *Bar) Update(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.now()
	final := u.Done()
	if b.drawn && !final && t.Sub(b.last) < b.interval {
		return
	}

	fmt.Fprintf(b.w, "\r%s", Render(u, b.width, t))
	if final {
		fmt.Fprintln(b.w)
	}
	b.last = t
	b.drawn = true
}
