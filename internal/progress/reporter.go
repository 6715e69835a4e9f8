package progress

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const clearLine = "\r\x1b[2K"

// RenderFunc formats one status line. elapsed is the time since the reporter started.
type RenderFunc func(elapsed time.Duration) string

// Reporter redraws a single status line on a fixed interval.
type Reporter struct {
	out      io.Writer
	interval time.Duration
	render   RenderFunc
	enabled  bool

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewReporter builds a reporter writing to out. It is enabled only when out
// is a terminal; use Force to override.
func NewReporter(out io.Writer, interval time.Duration, render RenderFunc) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &Reporter{
		out:      out,
		interval: interval,
		render:   render,
		enabled:  IsTerminal(out),
	}
}

// IsTerminal reports whether w is a character device.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Force enables or disables drawing regardless of the output type.
func (r *Reporter) Force(enabled bool) *Reporter {
	r.enabled = enabled
	return r
}

// Enabled reports whether the reporter draws anything.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Start begins redrawing in the background until Stop or ctx cancellation.
func (r *Reporter) Start(ctx context.Context) {
	if !r.Enabled() {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	started := time.Now()
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.draw(time.Since(started), true)
				return
			case <-ticker.C:
				r.draw(time.Since(started), false)
			}
		}
	}()
}

// Stop draws a final line, terminates it with a newline, and waits for the
// background goroutine to exit.
func (r *Reporter) Stop() {
	if !r.Enabled() || r.cancel == nil {
		return
	}
	r.stopOnce.Do(func() {
		r.cancel()
		<-r.done
	})
}

func (r *Reporter) draw(elapsed time.Duration, final bool) {
	line := clearLine + r.render(elapsed)
	if final {
		line += "\n"
	}
	_, _ = io.WriteString(r.out, line)
}
