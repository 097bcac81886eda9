// Package ui has terminal feedback helpers: progress bars and spinners.
package ui

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Progress reports completion of a fixed number of steps. It is safe for concurrent use.
type Progress interface {
	Increment(description string)
	Finish()
}

// IsInteractive reports whether stderr is a terminal and no CI marker is set.
func IsInteractive() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewProgress returns a progress bar on interactive terminals and a no-op otherwise.
func NewProgress(enabled bool, description string, total int) Progress {
	if !enabled || total <= 0 || !IsInteractive() {
		return NoOpProgress{}
	}
	return newBarProgress(os.Stderr, description, total)
}

type barProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newBarProgress(w io.Writer, description string, total int) *barProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &barProgress{bar: bar}
}

// Increment advances the bar by one step.
func (p *barProgress) Increment(description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if description != "" {
		p.bar.Describe(description)
	}
	_ = p.bar.Add(1)
}

// Finish completes the bar.
func (p *barProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
}

// NoOpProgress discards all updates.
type NoOpProgress struct{}

// Increment is a no-op.
func (NoOpProgress) Increment(string) {}

// Finish is a no-op.
func (NoOpProgress) Finish() {}
