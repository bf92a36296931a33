package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/ruumba/internal/analyzer"
	"github.com/mvp-joe/ruumba/internal/config"
	"github.com/mvp-joe/ruumba/internal/logger"
	"github.com/mvp-joe/ruumba/internal/projection"
	"github.com/mvp-joe/ruumba/internal/watcher"
)

// skippedDirs are never watched.
var skippedDirs = map[string]bool{
	".git":         true,
	config.DirName: true,
	"node_modules": true,
}

// watchSkipDir reports directories the watcher must ignore: VCS and tool
// directories, plus the projection folder so analyzer runs do not retrigger.
func watchSkipDir(rootDir string, cfg *config.Config) func(string) bool {
	tmpFolder := cfg.Extraction.TmpFolder
	if tmpFolder != "" && !filepath.IsAbs(tmpFolder) {
		tmpFolder = filepath.Join(rootDir, tmpFolder)
	}

	return func(path string) bool {
		if skippedDirs[filepath.Base(path)] {
			return true
		}
		return tmpFolder != "" && filepath.Clean(path) == filepath.Clean(tmpFolder)
	}
}

// existing drops files deleted since the watcher saw them.
func existing(files []string) []string {
	out := files[:0:0]
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// watchDirs resolves the directories to watch from the targets.
func watchDirs(rootDir string, targets []string) []string {
	if len(targets) == 0 {
		return []string{rootDir}
	}

	dirs := make([]string, 0, len(targets))
	for _, t := range targets {
		if !filepath.IsAbs(t) {
			t = filepath.Join(rootDir, t)
		}
		if info, err := os.Stat(t); err == nil && !info.IsDir() {
			t = filepath.Dir(t)
		}
		dirs = append(dirs, t)
	}
	return dirs
}

// runWatch analyzes the targets once, then re-analyzes changed templates
// until ctx is cancelled. Projections are cached across rounds.
func runWatch(ctx context.Context, rootDir string, cfg *config.Config, targets, analyzerArgs []string) error {
	log := logger.GetDefault()

	cache, err := projection.NewCache(cfg.Extraction.CacheSize)
	if err != nil {
		return err
	}
	defer cache.Close()

	var progress analyzer.ProgressReporter = analyzer.NoOpProgressReporter{}
	if !quietFlag {
		progress = NewCLIProgressReporter(os.Stderr)
	}

	a, err := analyzer.New(rootDir, cfg,
		analyzer.WithProgress(progress),
		analyzer.WithLogger(log),
		analyzer.WithCache(cache),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	run := func(opts analyzer.Options) {
		report, err := a.Run(ctx, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ruumba:", err)
			return
		}
		writeReport(os.Stdout, os.Stderr, report)
	}

	run(analyzer.Options{Targets: targets, Args: analyzerArgs, Changed: changedFlag})

	w, err := watcher.New(watcher.Options{
		Dirs:       watchDirs(rootDir, targets),
		Extensions: cfg.Extensions(),
		SkipDir:    watchSkipDir(rootDir, cfg),
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	w.Start(ctx, func(files []string) {
		files = existing(files)
		if len(files) == 0 {
			return
		}

		// Auto-correct rewrites templates; those writes must not start another round.
		w.Pause()
		defer w.Resume()
		run(analyzer.Options{Targets: files, Args: analyzerArgs})
		w.Drain()
	})

	if !quietFlag {
		fmt.Fprintln(os.Stderr, "Watching for template changes (Ctrl+C to stop)...")
	}

	<-ctx.Done()
	if !quietFlag {
		hits, misses := cache.Stats()
		log.Info("watch stopped", "cache_hits", hits, "cache_misses", misses)
	}
	return nil
}
