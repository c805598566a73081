package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

// Progress renders build progress. On a terminal it redraws a bar in
// place; otherwise it prints a line every tenth of the way.
type Progress struct {
	w     *Writer
	label string
	bar   progress.Model

	mu       sync.Mutex
	lastStep int
	lastDraw time.Time
	done     bool
}

// NewProgress creates a progress renderer labelled label.
func (w *Writer) NewProgress(label string) *Progress {
	width := w.width - len(label) - 20
	if width > 50 {
		width = 50
	}
	if width < 10 {
		width = 10
	}
	return &Progress{
		w:        w,
		label:    label,
		lastStep: -1,
		bar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(width),
			progress.WithoutPercentage(),
		),
	}
}

// Update records done of total. It matches index.ProgressFunc and is safe
// for concurrent use.
func (p *Progress) Update(done, total int) {
	if total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}

	pct := float64(done) / float64(total)
	if pct > 1 {
		pct = 1
	}

	if p.w.tty {
		now := time.Now()
		if done < total && now.Sub(p.lastDraw) < 50*time.Millisecond {
			return
		}
		p.lastDraw = now
		_, _ = fmt.Fprintf(p.w.out, "\r%s %s %3.0f%% %d/%d",
			p.w.styles.Label.Render(p.label), p.bar.ViewAs(pct), pct*100, done, total)
		if done >= total {
			_, _ = fmt.Fprintln(p.w.out)
			p.done = true
		}
		return
	}

	step := int(pct * 10)
	if step == p.lastStep {
		return
	}
	p.lastStep = step
	_, _ = fmt.Fprintf(p.w.out, "[%s] %d/%d\n", p.label, done, total)
	if done >= total {
		p.done = true
	}
}

// Finish ends an in-place bar that did not reach its total.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w.tty && !p.done && !p.lastDraw.IsZero() {
		_, _ = fmt.Fprintln(p.w.out)
	}
	p.done = true
}
