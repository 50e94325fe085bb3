// Package progress gives the memoria CLI a stderr spinner for the
// git-history phases, whose commit counts aren't known up front. The
// engine library itself never reports progress; only the CLI wraps its
// calls in a Spinner.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Spinner is an indeterminate progress indicator that clears itself once
// the wrapped operation finishes.
type Spinner struct {
	bar   *progressbar.ProgressBar
	label string
}

// NewSpinner starts a spinner with the given label on stderr.
func NewSpinner(label string) *Spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Spinner{bar: bar, label: label}
}

// FinishSuccess clears the spinner completely (no output).
func (s *Spinner) FinishSuccess() {
	s.bar.Finish()
	s.bar.Clear()
}

// FinishError clears the spinner and prints the failure to stderr.
func (s *Spinner) FinishError(err error) {
	s.bar.Finish()
	s.bar.Clear()
	fmt.Fprintf(os.Stderr, "  %s error: %v\n", s.label, err)
}
