package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/josephlewis42/pipegate/core/config"
	"github.com/josephlewis42/pipegate/core/logger"
	"github.com/josephlewis42/pipegate/core/pipeline"
	"github.com/josephlewis42/pipegate/core/stagexec"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var errorPrefix = color.New(color.FgRed, color.Bold)

// exitCodeError carries the status of a builtin that already reported its own
// failure.
type exitCodeError int

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func loadConfig() (*config.Configuration, error) {
	return config.Load(afero.NewOsFs(), cfgPath)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipegate STAGE1 STAGE2 STAGE3 OUTPUT",
	Short: "Run STAGE1 && STAGE2 | STAGE3 > OUTPUT",
	Long: `Runs STAGE1. If it exits successfully, runs STAGE2 and STAGE3 at the same
time with STAGE2's output piped into STAGE3, and STAGE3's output written to
OUTPUT (created or truncated). Programs are looked up on PATH and get no
arguments.

Helper commands are under "pipegate builtin", so "builtin" is the one name
that can't be used for STAGE1.

Exits 0 when the run completes, even if a stage failed. Exits 1 on usage
errors or when processes or the pipe can't be set up.`,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args)
	},
}

func runPipeline(cmd *cobra.Command, args []string) error {
	inv, err := pipeline.ResolveArgs(args)
	if err != nil {
		// Reported on stdout, stderr only carries diagnostics.
		fmt.Fprintln(cmd.OutOrStdout(), "Not enough arguments.")
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		reportError(debugWriter(cmd, debug), err)
		return err
	}
	if debug {
		cfg.Debug = true
	}

	// Stderr stays nil unless debugging, which gives children the null device
	// and the supervisor a discarding logger.
	var stderr io.Writer
	if cfg.Debug {
		stderr = cmd.ErrOrStderr()
	}
	errOut := debugWriter(cmd, cfg.Debug)
	diag := log.New(errOut, "[pipegate] ", 0)

	if len(args) > pipeline.RequiredArgs {
		diag.Printf("ignoring extra arguments: %q", args[pipeline.RequiredArgs:])
	}

	err = supervise(inv, cfg, stderr, diag)
	if err != nil {
		reportError(errOut, err)
	}
	return err
}

func supervise(inv pipeline.Invocation, cfg *config.Configuration, stderr io.Writer, diag *log.Logger) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}
	launcher, err := pipeline.NewLauncher([]string{self, stagexec.CommandName}, stderr, diag)
	if err != nil {
		return err
	}

	var events *logger.RunLogger
	eventLog, err := cfg.OpenEventLog()
	if err != nil {
		return err
	}
	if eventLog != nil {
		defer eventLog.Close()
		events = logger.NewJsonLinesLogRecorder(eventLog).NewRun()
		diag.Printf("recording events for run %s to %s", events.RunID(), eventLog.Name())
	}

	supervisor := pipeline.NewSupervisor(launcher, diag, events)
	supervisor.OutputMode = cfg.FileMode()

	report, err := supervisor.Run(inv)
	if err != nil {
		return err
	}
	if !report.GatePassed() {
		diag.Printf("stage 1 (%s) %s, skipped %s and %s", inv.First, report.Gate, inv.Second, inv.Third)
	}
	return nil
}

func debugWriter(cmd *cobra.Command, enabled bool) io.Writer {
	if enabled {
		return cmd.ErrOrStderr()
	}
	return io.Discard
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorPrefix.Sprint("error:"), err)
}

// Execute dispatches the command line and returns the process exit status.
// This is called by main.main().
//
// Only two first tokens leave the pipeline command: the stage trampoline and
// `builtin`. rootCmd has no subcommands, so every other token, including
// names like "tree" or "help", is a stage program.
func Execute() int {
	return executeArgs(os.Args[1:])
}

func executeArgs(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case stagexec.CommandName:
			return stagexec.RunArgs(args[1:], os.Stderr)
		case builtinCmd.Name():
			builtinCmd.SetArgs(args[1:])
			err := builtinCmd.Execute()
			var code exitCodeError
			if err != nil && !errors.As(err, &code) {
				reportError(builtinCmd.ErrOrStderr(), err)
			}
			return exitStatus(err)
		}
	}

	rootCmd.SetArgs(args)
	return exitStatus(rootCmd.Execute())
}

func exitStatus(err error) int {
	if err == nil {
		return pipeline.ExitOK
	}

	var code exitCodeError
	if errors.As(err, &code) {
		return int(code)
	}
	return pipeline.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "directory containing pipegate.yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print diagnostics to stderr (overrides the config file)")
	// Everything after STAGE1 is positional, even if it looks like a flag.
	rootCmd.Flags().SetInterspersed(false)
}
