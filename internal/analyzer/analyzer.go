// Package analyzer runs the Ruby analyzer over the code embedded in ERB
// templates and writes its auto-corrections back.
//
// A run discovers templates, writes one projection per template into a work
// directory, runs the analyzer there and maps the result back:
//
//	templates ──extract──▶ <work>/<path>.erb.rb ──analyzer──▶ report
//	                                     │
//	                          (auto-correct) ──replace──▶ templates
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/ruumba/internal/config"
	"github.com/mvp-joe/ruumba/internal/correct"
	"github.com/mvp-joe/ruumba/internal/erb"
	"github.com/mvp-joe/ruumba/internal/logger"
	"github.com/mvp-joe/ruumba/internal/projection"
	"github.com/mvp-joe/ruumba/internal/runner"
	"github.com/mvp-joe/ruumba/internal/state"
	"github.com/mvp-joe/ruumba/internal/templates"
)

// ErrTemplateChanged indicates a template was edited while the analyzer ran,
// so its corrections no longer apply.
var ErrTemplateChanged = errors.New("template changed during analysis")

// stateLockTimeout bounds how long a run waits for another run's state lock.
const stateLockTimeout = 5 * time.Second

// Options describes one run.
type Options struct {
	// Targets are template files and directories. Empty means the root.
	Targets []string

	// Args are passed to the analyzer after the configured arguments.
	Args []string

	// StdinName switches to stdin mode: a single template is read from
	// Stdin and reported under this name.
	StdinName string
	Stdin     io.Reader

	// Changed skips templates that passed the last run unchanged.
	Changed bool
}

// Failure is a template that could not take part in the run.
type Failure struct {
	Path string
	Err  error
}

// Report is the outcome of a run.
type Report struct {
	// ExitCode is the analyzer's exit status.
	ExitCode int

	// Stdout and Stderr are the analyzer's output with template paths.
	Stdout string
	Stderr string

	// Templates were analyzed; Skipped were left out by an incremental run.
	Templates []string
	Skipped   []string

	Corrections []correct.Result
	Failures    []Failure
	Duration    time.Duration
}

// Corrected counts templates rewritten with the analyzer's corrections.
func (r *Report) Corrected() int {
	n := 0
	for _, c := range r.Corrections {
		if c.Outcome == erb.Corrected {
			n++
		}
	}
	return n
}

// Status is the process exit status for the run: the analyzer's, or 2 when
// the analyzer passed but some templates could not be checked.
func (r *Report) Status() int {
	if r.ExitCode == 0 && len(r.Failures) > 0 {
		return 2
	}
	return r.ExitCode
}

// Analyzer runs analyses for one project root.
type Analyzer struct {
	rootDir   string
	cfg       *config.Config
	runner    *runner.Runner
	cache     *projection.Cache
	ownsCache bool
	files     *correct.FileCorrector
	stdin     *correct.StdinCorrector
	progress  ProgressReporter
	log       logger.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithProgress reports progress to p.
func WithProgress(p ProgressReporter) Option {
	return func(a *Analyzer) { a.progress = p }
}

// WithLogger logs through l instead of the default logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithCache shares a projection cache, e.g. across watch-mode rounds.
func WithCache(c *projection.Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// New creates an Analyzer for the project at rootDir.
func New(rootDir string, cfg *config.Config, opts ...Option) (*Analyzer, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", rootDir, err)
	}

	a := &Analyzer{
		rootDir:  abs,
		cfg:      cfg,
		progress: NoOpProgressReporter{},
		log:      logger.GetDefault(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.cache == nil {
		cache, err := projection.NewCache(cfg.Extraction.CacheSize)
		if err != nil {
			return nil, err
		}
		a.cache = cache
		a.ownsCache = true
	}

	a.runner = runner.New(a.log)
	a.files = correct.NewFileCorrector(a.log)
	a.stdin = correct.NewStdinCorrector(a.log)

	return a, nil
}

// Close releases the projection cache if the Analyzer created it.
func (a *Analyzer) Close() {
	if a.ownsCache {
		a.cache.Close()
	}
}

// Run performs one analysis. The returned error means the run itself failed
// (no work directory, analyzer missing, timeout); per-template problems are
// in Report.Failures and Report.Corrections.
func (a *Analyzer) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	report := &Report{}

	var err error
	if opts.StdinName != "" {
		err = a.runStdin(ctx, opts, report)
	} else {
		err = a.runFiles(ctx, opts, report)
	}

	report.Duration = time.Since(start)
	a.progress.OnComplete(report)
	return report, err
}

// extracted is one template's projection on disk.
type extracted struct {
	path      string
	generated string // relative to the workspace
	hash      string
	record    *correct.Record
}

func (a *Analyzer) runFiles(ctx context.Context, opts Options, report *Report) error {
	ws, err := newWorkspace(a.cfg.Extraction.TmpFolder, a.rootDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.cleanup(); err != nil {
			a.log.Warn("failed to remove work directory", "dir", ws.dir, "error", err)
		}
	}()

	discovery, err := templates.NewDiscovery(a.rootDir, a.cfg.Paths.Include, a.cfg.Paths.Ignore)
	if err != nil {
		return err
	}
	discovery.Skip(ws.dir)

	paths, err := discovery.Discover(opts.Targets)
	if err != nil {
		return err
	}

	store, err := a.openState(ctx)
	if err != nil {
		if opts.Changed {
			return err
		}
		a.log.Warn("run state unavailable", "error", err)
	}
	if store != nil {
		defer store.Close()
	}

	if opts.Changed && store != nil {
		paths, report.Skipped, err = a.pending(ctx, store, paths)
		if err != nil {
			return err
		}
	}

	a.progress.OnDiscoveryComplete(len(paths), len(report.Skipped))
	if len(paths) == 0 {
		a.log.Info("no templates to analyze", "skipped", len(report.Skipped))
		return nil
	}

	autoCorrect := AutoCorrectRequested(opts.Args)
	docs, err := a.extractAll(ctx, ws, paths, autoCorrect, report)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	args := a.analyzerArgs(opts.Args)
	records := make([]correct.Record, 0, len(docs))
	for _, doc := range docs {
		args = append(args, doc.generated)
		report.Templates = append(report.Templates, doc.path)
		if doc.record != nil {
			records = append(records, *doc.record)
		}
	}

	a.progress.OnAnalyzerStart(a.cfg.Analyzer.Command)
	result, err := a.runner.Run(ctx, runner.Options{
		Command:     a.cfg.Analyzer.Command,
		Args:        args,
		WorkDir:     ws.dir,
		CurrentDir:  a.rootDir,
		RbExtension: !a.cfg.Extraction.DisableRbExtension,
		TodoFile:    a.cfg.Analyzer.TodoFile,
		Timeout:     a.cfg.Analyzer.Timeout,
	})
	if result != nil {
		report.ExitCode = result.ExitCode
		report.Stdout = result.Stdout
		report.Stderr = result.Stderr
	}
	if err != nil {
		return err
	}

	if autoCorrect {
		report.Corrections = a.files.Correct(ctx, records)
	}

	if store != nil {
		a.recordState(ctx, store, docs, report.ExitCode)
	}

	return nil
}

// extractAll writes the projection of every template in parallel. Templates
// that cannot be read become Failures.
func (a *Analyzer) extractAll(ctx context.Context, ws *workspace, paths []string, autoCorrect bool, report *Report) ([]*extracted, error) {
	a.progress.OnExtractionStart(len(paths))

	results := make([]*extracted, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.cfg.Extraction.Workers))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			doc, err := a.extractOne(ws, path, autoCorrect)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Error("template skipped", "path", path, "error", err)
				report.Failures = append(report.Failures, Failure{Path: path, Err: err})
				return nil
			}
			results[i] = doc
			a.progress.OnTemplateExtracted(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Path < report.Failures[j].Path
	})

	docs := make([]*extracted, 0, len(results))
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (a *Analyzer) extractOne(ws *workspace, path string, autoCorrect bool) (*extracted, error) {
	doc, err := templates.Load(path)
	if err != nil {
		return nil, err
	}

	marker, text := a.project(doc.Contents, autoCorrect)
	rel := projectionPath(ws.relative(path), !a.cfg.Extraction.DisableRbExtension)
	generated, err := ws.write(rel, text)
	if err != nil {
		return nil, err
	}

	hash := state.Hash(doc.Contents)
	ext := &extracted{path: path, generated: rel, hash: hash}

	if autoCorrect {
		ext.record = &correct.Record{
			Original:  path,
			Generated: generated,
			Marker:    marker,
			Digest:    erb.Digest(text),
			Contents: correct.Lazy(func() (string, error) {
				current, err := templates.Load(path)
				if err != nil {
					return "", err
				}
				if state.Hash(current.Contents) != hash {
					return "", ErrTemplateChanged
				}
				return current.Contents, nil
			}),
		}
	}

	return ext, nil
}

// project builds the text handed to the analyzer. Auto-correct runs need a
// marked projection to map corrections back; plain runs get a direct one so
// reported lines and columns match the template.
func (a *Analyzer) project(contents string, autoCorrect bool) (erb.Marker, string) {
	if autoCorrect {
		marker := erb.NewRandomMarker()
		return marker, erb.Extract(contents, marker)
	}

	text := a.cache.Extract(contents, "")
	if a.cfg.Extraction.TrimTrailingSpace {
		text = erb.TrimTrailingSpace(text)
	}
	return "", text
}

// analyzerArgs combines configured and user arguments. The work directory is
// outside the project, so the project's own config is passed explicitly.
func (a *Analyzer) analyzerArgs(userArgs []string) []string {
	args := append([]string{}, a.cfg.Analyzer.Arguments...)

	if !hasConfigFlag(args) && !hasConfigFlag(userArgs) {
		if configFile := a.configFile(); configFile != "" {
			args = append(args, "--config", configFile)
		}
	}

	return append(args, userArgs...)
}

func (a *Analyzer) configFile() string {
	if file := a.cfg.Analyzer.ConfigFile; file != "" {
		if filepath.IsAbs(file) {
			return file
		}
		return filepath.Join(a.rootDir, file)
	}

	candidate := filepath.Join(a.rootDir, ".rubocop.yml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func (a *Analyzer) runStdin(ctx context.Context, opts Options, report *Report) error {
	if opts.Stdin == nil {
		return errors.New("stdin mode requires an input reader")
	}

	doc, err := templates.StdinSource(opts.StdinName, opts.Stdin)
	if err != nil {
		return err
	}
	a.progress.OnDiscoveryComplete(1, 0)

	autoCorrect := AutoCorrectRequested(opts.Args)
	marker, text := a.project(doc.Contents, autoCorrect)

	name := projectionPath(opts.StdinName, !a.cfg.Extraction.DisableRbExtension)
	args := append(a.analyzerArgs(opts.Args), "--stdin", name)
	report.Templates = []string{opts.StdinName}

	a.progress.OnAnalyzerStart(a.cfg.Analyzer.Command)
	result, err := a.runner.Run(ctx, runner.Options{
		Command:     a.cfg.Analyzer.Command,
		Args:        args,
		WorkDir:     a.rootDir,
		CurrentDir:  a.rootDir,
		RbExtension: !a.cfg.Extraction.DisableRbExtension,
		Stdin:       strings.NewReader(text),
		Timeout:     a.cfg.Analyzer.Timeout,
	})
	if err != nil {
		return err
	}

	report.ExitCode = result.ExitCode
	report.Stdout = result.Stdout
	report.Stderr = result.Stderr

	if autoCorrect {
		record := correct.Record{
			Original: opts.StdinName,
			Marker:   marker,
			Digest:   erb.Digest(text),
			Contents: correct.Literal(doc.Contents),
		}
		stdout, stderr, res := a.stdin.Correct(result.Stdout, result.Stderr, record)
		report.Stdout, report.Stderr = stdout, stderr
		report.Corrections = []correct.Result{res}
	}

	return nil
}

// openState opens the state store when enabled. Returns (nil, nil) when
// state is disabled.
func (a *Analyzer) openState(ctx context.Context) (*state.Store, error) {
	if !a.cfg.State.Enabled {
		return nil, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, stateLockTimeout)
	defer cancel()

	return state.Open(lockCtx, a.cfg.StatePath(a.rootDir))
}

// pending narrows paths to the templates an incremental run must check.
func (a *Analyzer) pending(ctx context.Context, store *state.Store, paths []string) ([]string, []string, error) {
	detector := state.NewChangeDetector(a.rootDir, store)

	changes, err := detector.Detect(ctx, paths)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to detect changes: %w", err)
	}

	if err := store.Delete(ctx, changes.Deleted); err != nil {
		a.log.Warn("failed to prune run state", "error", err)
	}

	pending := changes.Pending()
	sort.Strings(pending)

	a.log.Debug("incremental run",
		"added", len(changes.Added),
		"modified", len(changes.Modified),
		"failing", len(changes.Failing),
		"unchanged", len(changes.Unchanged))

	return pending, changes.Unchanged, nil
}

// recordState remembers the analyzed templates with the run's exit code.
func (a *Analyzer) recordState(ctx context.Context, store *state.Store, docs []*extracted, exitCode int) {
	detector := state.NewChangeDetector(a.rootDir, store)
	now := time.Now()

	snapshots := make([]state.Template, 0, len(docs))
	for _, doc := range docs {
		snapshot, err := detector.Snapshot(doc.path, doc.hash, exitCode, now)
		if err != nil {
			a.log.Warn("failed to snapshot template", "path", doc.path, "error", err)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := store.Record(ctx, snapshots); err != nil {
		a.log.Warn("failed to record run state", "error", err)
	}
}
