package ui

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner wraps briandowns/spinner and only animates on a terminal.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner showing message on stderr.
func NewSpinner(message string) *Spinner {
	if !IsInteractive() {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	return &Spinner{s: s}
}

// Start begins the animation.
func (sp *Spinner) Start() {
	if sp.s != nil {
		sp.s.Start()
	}
}

// Stop ends the animation.
func (sp *Spinner) Stop() {
	if sp.s != nil {
		sp.s.Stop()
	}
}

// Run shows the spinner while fn runs.
func (sp *Spinner) Run(fn func() error) error {
	sp.Start()
	defer sp.Stop()
	return fn()
}
