package progress

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Reporter provides feedback while a request is waiting on the backend.
// Step carries the transport's readiness counter.
type Reporter interface {
	Start(description string)
	Step(step int)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive
// terminal, a CIReporter if the CI environment variable is set, or a
// SilentReporter when output is piped.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{}
	}
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return SilentReporter{}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a spinner in the terminal.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(description string) {
	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Step(step int) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	description string
}

func (r *CIReporter) Start(description string) {
	r.description = description
	fmt.Fprintf(os.Stderr, "%s\n", description)
}

func (r *CIReporter) Step(step int) {
	fmt.Fprintf(os.Stderr, "%s: step %d\n", r.description, step)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(os.Stderr, "done")
}

// SilentReporter discards all progress. Used when output is piped.
type SilentReporter struct{}

func (SilentReporter) Start(string) {}
func (SilentReporter) Step(int)     {}
func (SilentReporter) Finish()      {}
