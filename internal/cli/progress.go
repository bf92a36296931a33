package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mvp-joe/ruumba/internal/analyzer"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter shows extraction progress and a run summary.
type CLIProgressReporter struct {
	out        io.Writer
	mu         sync.Mutex
	extractBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a reporter writing to out, usually stderr
// so the analyzer's output on stdout stays machine readable.
func NewCLIProgressReporter(out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{out: out}
}

func (c *CLIProgressReporter) OnDiscoveryComplete(templates, skipped int) {
	if skipped > 0 {
		fmt.Fprintf(c.out, "Checking %d templates (%d unchanged)\n", templates, skipped)
	}
}

func (c *CLIProgressReporter) OnExtractionStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.extractBar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting templates"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (c *CLIProgressReporter) OnTemplateExtracted(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.extractBar != nil {
		_ = c.extractBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnAnalyzerStart(command string) {
	c.finishBar()
}

func (c *CLIProgressReporter) OnComplete(report *analyzer.Report) {
	c.finishBar()

	fmt.Fprintf(c.out, "%d templates analyzed in %.1fs", len(report.Templates), report.Duration.Seconds())
	if n := report.Corrected(); n > 0 {
		fmt.Fprintf(c.out, ", %d corrected", n)
	}
	if n := len(report.Failures); n > 0 {
		fmt.Fprintf(c.out, ", %d failed", n)
	}
	fmt.Fprintln(c.out)
}

func (c *CLIProgressReporter) finishBar() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.extractBar != nil {
		_ = c.extractBar.Finish()
		c.extractBar = nil
	}
}
