package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/ruumba/internal/analyzer"
	"github.com/mvp-joe/ruumba/internal/config"
	"github.com/mvp-joe/ruumba/internal/logger"
	"github.com/spf13/cobra"
)

var (
	tmpFolderFlag          string
	disableRbExtensionFlag bool
	stdinFlag              string
	changedFlag            bool
	watchFlag              bool
	quietFlag              bool
	analyzerConfigFlag     string
	logLevelFlag           string
	logJSONFlag            bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ruumba [flags] [paths...] [-- analyzer args]",
	Short: "Lint the Ruby code embedded in ERB templates",
	Long: `Ruumba extracts the Ruby code of ERB templates into projections that keep
every line and column, runs RuboCop over them, and reports offenses against
the original templates.

When the analyzer is asked to auto-correct, its fixes are merged back into
the templates; a template whose tags lost their markers is left untouched.

Examples:
  # Lint every template under the current directory
  ruumba

  # Lint a directory and auto-correct
  ruumba app/views -- --autocorrect

  # Only re-check templates that changed or failed last time
  ruumba --changed

  # Editor integration: read a template from stdin
  ruumba --stdin app/views/home.html.erb -- --autocorrect < home.html.erb
`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnalyze,
}

// exitError carries a non-zero process status without an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, "ruumba:", err)
	os.Exit(1)
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&tmpFolderFlag, "tmp-folder", "t", "", "Keep projections in this folder instead of a throwaway directory")
	flags.BoolVarP(&disableRbExtensionFlag, "disable-rb-extension", "D", false, "Do not append .rb to projection file names")
	flags.StringVarP(&stdinFlag, "stdin", "s", "", "Read one template from stdin and report it under this path")
	flags.BoolVar(&changedFlag, "changed", false, "Only analyze templates that changed or failed since the last run")
	flags.BoolVarP(&watchFlag, "watch", "w", false, "Watch templates and re-analyze them when they change")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and summaries")
	flags.StringVarP(&analyzerConfigFlag, "config", "c", "", "Analyzer configuration file (default: .rubocop.yml in the project)")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	persistent.BoolVar(&logJSONFlag, "log-json", false, "Log as JSON")
}

// splitArgs separates template targets from analyzer arguments given after "--".
func splitArgs(cmd *cobra.Command, args []string) (targets, analyzerArgs []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// applyFlags overrides configuration values with flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("tmp-folder") {
		cfg.Extraction.TmpFolder = tmpFolderFlag
	}
	if flags.Changed("disable-rb-extension") {
		cfg.Extraction.DisableRbExtension = disableRbExtensionFlag
	}
	if flags.Changed("config") {
		cfg.Analyzer.ConfigFile = analyzerConfigFlag
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevelFlag
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = logJSONFlag
	}
}

// loadConfig reads the project configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command, rootDir string) (*config.Config, error) {
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cmd, cfg)
	logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, false)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := loadConfig(cmd, rootDir)
	if err != nil {
		return err
	}

	targets, analyzerArgs := splitArgs(cmd, args)

	if watchFlag {
		if stdinFlag != "" {
			return errors.New("--watch cannot be combined with --stdin")
		}
		return runWatch(ctx, rootDir, cfg, targets, analyzerArgs)
	}

	var progress analyzer.ProgressReporter = analyzer.NoOpProgressReporter{}
	if !quietFlag && stdinFlag == "" {
		progress = NewCLIProgressReporter(os.Stderr)
	}

	a, err := analyzer.New(rootDir, cfg,
		analyzer.WithProgress(progress),
		analyzer.WithLogger(logger.GetDefault()),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Run(ctx, analyzer.Options{
		Targets:   targets,
		Args:      analyzerArgs,
		StdinName: stdinFlag,
		Stdin:     cmd.InOrStdin(),
		Changed:   changedFlag,
	})
	if err != nil {
		return err
	}

	writeReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)

	if status := report.Status(); status != 0 {
		return &exitError{code: status}
	}
	return nil
}

// writeReport prints the analyzer's output followed by templates that could
// not be checked or corrected.
func writeReport(stdout, stderr io.Writer, report *analyzer.Report) {
	fmt.Fprint(stdout, report.Stdout)
	fmt.Fprint(stderr, report.Stderr)

	for _, f := range report.Failures {
		fmt.Fprintf(stderr, "ruumba: %s: %v\n", f.Path, f.Err)
	}
	for _, c := range report.Corrections {
		if c.Err != nil {
			fmt.Fprintf(stderr, "ruumba: %s: corrections not applied: %v\n", c.Path, c.Err)
		}
	}
}
