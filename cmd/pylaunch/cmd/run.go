package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pylaunch/pylaunch/internal/launcher"
	"github.com/pylaunch/pylaunch/internal/report"
	"github.com/pylaunch/pylaunch/internal/store"
	"github.com/pylaunch/pylaunch/internal/venv"
)

var runCmd = &cobra.Command{
	Use:   "run [--] [args...]",
	Short: "Launch the project entrypoint",
	Long: `Run launches the configured package entrypoint inside the project
directory, forwarding every argument verbatim and in order.

If the project's virtual environment exists, the child process gets an
environment with VIRTUAL_ENV set and the venv's bin directory prepended to
PATH. If it does not, a warning is printed and the launch continues with the
ambient environment.

The command exits with the entrypoint's exit code. Exit code 1 is reserved
for an unavailable project directory, 2 for launcher errors.

Example:
  pylaunch run
  pylaunch run -- --verbose --once
  pylaunch --project-dir ~/src/diary-bot run`,
	Args: cobra.ArbitraryArgs,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "pylaunch: %v\n", err)
		return exitWith(2)
	}

	l := launcher.New(launcher.Options{
		ProjectDir:  cfg.ProjectDir,
		VenvDir:     cfg.VenvDir,
		Module:      cfg.Module,
		Interpreter: cfg.Interpreter,
	})

	// The directory check is the only fatal precondition.
	if err := l.CheckProjectDir(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "pylaunch: %v\n", err)
		return exitWith(1)
	}

	env, err := l.ProbeVenv()
	if err != nil {
		var missing *venv.MissingError
		if !errors.As(err, &missing) {
			fmt.Fprintf(os.Stderr, "pylaunch: %v\n", err)
			return exitWith(2)
		}
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: %v\n", missing)
		fmt.Fprintf(os.Stderr, "create one with 'python -m venv %s' in the project directory, or point venv_dir at an existing environment\n", cfg.VenvDir)
		waitForAck()
	}

	res, err := l.Run(context.Background(), env, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pylaunch: %v\n", err)
		return exitWith(2)
	}

	recordLaunch(res)

	if res.ExitCode != 0 {
		return exitWith(res.ExitCode)
	}
	return nil
}

// shouldPause reports whether the missing-venv warning should block for
// acknowledgment: only under the interactive policy and only on a real
// terminal, so automated runs never block.
func shouldPause(interactive bool, stdin *os.File) bool {
	if !interactive {
		return false
	}
	return isatty.IsTerminal(stdin.Fd()) || isatty.IsCygwinTerminal(stdin.Fd())
}

// waitForAck pauses for Enter after the venv warning.
func waitForAck() {
	if !shouldPause(cfg.Interactive, os.Stdin) {
		return
	}
	fmt.Fprint(os.Stderr, "press Enter to continue without a venv... ")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}

// recordLaunch writes the result to the history store. Best effort: a
// history failure must never change the launch outcome.
func recordLaunch(res *report.Result) {
	if cfg.HistoryPath == "" {
		return
	}
	st, err := store.Open(cfg.HistoryPath)
	if err != nil {
		logrus.WithError(err).Warn("history store unavailable")
		return
	}
	defer st.Close()
	if err := st.Record(res); err != nil {
		logrus.WithError(err).Warn("failed to record launch")
	}
}
