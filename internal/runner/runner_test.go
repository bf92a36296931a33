package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ruumba/internal/logger"
)

// Test Plan for Runner:
// - Exit status, stdout and stderr of the analyzer are captured
// - Work dir paths at line start become current dir paths
// - .erb.rb becomes .erb only when the rb extension is enabled
// - Arguments reach the analyzer verbatim, without shell expansion
// - Stdin is forwarded
// - The todo file is copied back when present
// - A missing executable is an error, a timeout is ErrTimeout

// fakeAnalyzer writes an executable shell script and returns its path.
func fakeAnalyzer(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake analyzer scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "rubocop")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func newRunner() *Runner {
	return New(logger.NewLogger(logger.TestConfig()))
}

func TestRun_CapturesOutputAndRewritesPaths(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	currentDir := t.TempDir()
	script := fakeAnalyzer(t, `
echo "$(pwd)/app/views/a.html.erb.rb:1:5: C: Style/StringLiterals"
echo "app/views/b.html.erb.rb:2:1: W: Lint/Void" >&2
exit 1`)

	result, err := newRunner().Run(context.Background(), Options{
		Command:     script,
		WorkDir:     workDir,
		CurrentDir:  currentDir,
		RbExtension: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, currentDir+"/app/views/a.html.erb:1:5: C: Style/StringLiterals\n", result.Stdout)
	assert.Equal(t, "app/views/b.html.erb:2:1: W: Lint/Void\n", result.Stderr)
}

func TestRun_KeepsExtensionWhenDisabled(t *testing.T) {
	t.Parallel()

	script := fakeAnalyzer(t, `echo "a.html.erb.rb"`)

	result, err := newRunner().Run(context.Background(), Options{
		Command: script,
		WorkDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "a.html.erb.rb\n", result.Stdout)
}

func TestRun_ArgumentsAreNotShellExpanded(t *testing.T) {
	t.Parallel()

	script := fakeAnalyzer(t, `for a in "$@"; do echo "[$a]"; done`)

	result, err := newRunner().Run(context.Background(), Options{
		Command: script,
		Args:    []string{"--only", "Style/Foo", "$(touch pwned)", "a b"},
		WorkDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Equal(t, "[--only]\n[Style/Foo]\n[$(touch pwned)]\n[a b]\n", result.Stdout)
}

func TestRun_ForwardsStdin(t *testing.T) {
	t.Parallel()

	script := fakeAnalyzer(t, `cat`)

	result, err := newRunner().Run(context.Background(), Options{
		Command: script,
		WorkDir: t.TempDir(),
		Stdin:   strings.NewReader("   puts 1\n"),
	})

	require.NoError(t, err)
	assert.Equal(t, "   puts 1\n", result.Stdout)
}

func TestRun_CopiesTodoFileBack(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	currentDir := t.TempDir()
	script := fakeAnalyzer(t, `echo "Style/Foo:" > .rubocop_todo.yml`)

	_, err := newRunner().Run(context.Background(), Options{
		Command:    script,
		WorkDir:    workDir,
		CurrentDir: currentDir,
		TodoFile:   ".rubocop_todo.yml",
	})

	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(currentDir, ".rubocop_todo.yml"))
	require.NoError(t, err)
	assert.Equal(t, "Style/Foo:\n", string(data))
}

func TestRun_NoTodoFileIsFine(t *testing.T) {
	t.Parallel()

	currentDir := t.TempDir()
	script := fakeAnalyzer(t, `true`)

	_, err := newRunner().Run(context.Background(), Options{
		Command:    script,
		WorkDir:    t.TempDir(),
		CurrentDir: currentDir,
		TodoFile:   ".rubocop_todo.yml",
	})

	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(currentDir, ".rubocop_todo.yml"))
}

func TestRun_MissingExecutable(t *testing.T) {
	t.Parallel()

	_, err := newRunner().Run(context.Background(), Options{
		Command: filepath.Join(t.TempDir(), "does-not-exist"),
		WorkDir: t.TempDir(),
	})

	assert.Error(t, err)
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	script := fakeAnalyzer(t, `exec sleep 5`)

	_, err := newRunner().Run(context.Background(), Options{
		Command: script,
		WorkDir: t.TempDir(),
		Timeout: 50 * time.Millisecond,
	})

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRewriter_OnlyLineStart(t *testing.T) {
	t.Parallel()

	rw := NewRewriter("/tmp/ruumba-1", "/home/app", true)

	got := rw.Apply("/tmp/ruumba-1/a.html.erb.rb:1:1: C\nsee /tmp/ruumba-1/b\n")

	assert.Equal(t, "/home/app/a.html.erb:1:1: C\nsee /tmp/ruumba-1/b\n", got)
}
