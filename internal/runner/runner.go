// Package runner executes the Ruby analyzer over a directory of projections
// and maps its output back to template paths.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mvp-joe/ruumba/internal/logger"
)

// ErrTimeout indicates the analyzer did not finish within Options.Timeout.
var ErrTimeout = errors.New("analyzer timed out")

// Options describes one analyzer invocation.
type Options struct {
	// Command is the analyzer executable, looked up in PATH.
	Command string

	// Args are passed to Command verbatim. No shell is involved.
	Args []string

	// WorkDir holds the projections; the analyzer runs inside it.
	WorkDir string

	// CurrentDir is where the user invoked ruumba. Paths under WorkDir in
	// the analyzer's output are rewritten to it.
	CurrentDir string

	// RbExtension reports whether projections were written as <name>.erb.rb.
	RbExtension bool

	// TodoFile is copied from WorkDir to CurrentDir after the run when the
	// analyzer generated one. Empty disables the copy.
	TodoFile string

	// Stdin, when set, is fed to the analyzer.
	Stdin io.Reader

	// Timeout bounds the run. Zero means no limit.
	Timeout time.Duration
}

// Result is the analyzer's exit status and its rewritten output.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes the analyzer.
type Runner struct {
	log logger.Logger
}

// New creates a Runner reporting through log.
func New(log logger.Logger) *Runner {
	return &Runner{log: log}
}

// Run executes the analyzer described by opts. A non-zero exit status is not
// an error; it is reported in Result.ExitCode. Errors mean the analyzer could
// not be started or did not finish.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Command == "" {
		return nil, errors.New("analyzer command is required")
	}

	execCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, opts.Command, opts.Args...)
	cmd.Dir = opts.WorkDir
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running analyzer", "command", opts.Command, "args", opts.Args, "dir", opts.WorkDir)

	startTime := time.Now()
	err := cmd.Run()
	duration := time.Since(startTime)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", ErrTimeout, opts.Timeout)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("failed to run %s: %w", opts.Command, err)
		}
	}

	r.log.Debug("analyzer finished", "exit_code", exitCode, "duration", duration)

	rewrite := NewRewriter(opts.WorkDir, opts.CurrentDir, opts.RbExtension)
	result := &Result{
		ExitCode: exitCode,
		Stdout:   rewrite.Apply(stdout.String()),
		Stderr:   rewrite.Apply(stderr.String()),
		Duration: duration,
	}

	if opts.TodoFile != "" {
		if err := copyTodoFile(opts.WorkDir, opts.CurrentDir, opts.TodoFile); err != nil {
			return result, err
		}
	}

	return result, nil
}

// Rewriter maps projection paths in analyzer output back to template paths.
type Rewriter struct {
	prefixes    []*regexp.Regexp
	currentDir  string
	rbExtension bool
}

var rbSuffix = regexp.MustCompile(`\.erb\.rb`)

// NewRewriter builds a Rewriter. Lines starting with workDir (or the path it
// resolves to through symlinks) get currentDir instead.
func NewRewriter(workDir, currentDir string, rbExtension bool) *Rewriter {
	rw := &Rewriter{currentDir: currentDir, rbExtension: rbExtension}
	if workDir == "" {
		return rw
	}

	dirs := []string{workDir}
	if resolved, err := filepath.EvalSymlinks(workDir); err == nil && resolved != workDir {
		// Longest first so /private/var/x wins over /var/x.
		dirs = []string{resolved, workDir}
	}
	for _, dir := range dirs {
		rw.prefixes = append(rw.prefixes, regexp.MustCompile(`(?m)^`+regexp.QuoteMeta(dir)))
	}
	return rw
}

// Apply rewrites output.
func (rw *Rewriter) Apply(output string) string {
	if output == "" {
		return output
	}
	for _, prefix := range rw.prefixes {
		output = prefix.ReplaceAllLiteralString(output, rw.currentDir)
	}
	if rw.rbExtension {
		output = rbSuffix.ReplaceAllLiteralString(output, ".erb")
	}
	return output
}

// copyTodoFile copies the analyzer's generated todo file back for the case
// where --auto-gen-config was used.
func copyTodoFile(workDir, currentDir, name string) error {
	src := filepath.Join(workDir, name)
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	dst := filepath.Join(currentDir, name)
	if strings.EqualFold(filepath.Clean(src), filepath.Clean(dst)) {
		return nil
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to copy %s: %w", name, err)
	}
	return nil
}
