package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pylaunch/pylaunch/internal/config"
)

var (
	cfgFile         string
	outputFormat    string
	flagProjectDir  string
	flagVenvDir     string
	flagModule      string
	flagInterpreter string
	flagInteractive bool
	flagLogLevel    string

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pylaunch",
	Short: "Launch a Python project in its own environment",
	Long: `pylaunch resolves a configured project directory, picks up the project's
virtual environment when one exists, and runs the project's package
entrypoint as a module execution, forwarding all arguments verbatim.
The launcher exits with the entrypoint's exit code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitWith(code int) error {
	return &exitError{code: code}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(os.Stderr, "pylaunch: %v\n", err)
		return 2
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pylaunch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagProjectDir, "project-dir", "", "project directory to launch in (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagVenvDir, "venv-dir", "", "virtual environment directory, relative to the project dir")
	rootCmd.PersistentFlags().StringVar(&flagModule, "module", "", "package entrypoint run as '<interpreter> -m <module>'")
	rootCmd.PersistentFlags().StringVar(&flagInterpreter, "interpreter", "", "interpreter used when the venv does not provide one")
	rootCmd.PersistentFlags().BoolVar(&flagInteractive, "interactive", true, "pause for acknowledgment on a missing venv (TTY only)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads the config file and PYLAUNCH_* environment variables,
// then applies flag overrides on top.
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pylaunch: %v\n", err)
		os.Exit(2)
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("project-dir") {
		cfg.ProjectDir = flagProjectDir
	}
	if flags.Changed("venv-dir") {
		cfg.VenvDir = flagVenvDir
	}
	if flags.Changed("module") {
		cfg.Module = flagModule
	}
	if flags.Changed("interpreter") {
		cfg.Interpreter = flagInterpreter
	}
	if flags.Changed("interactive") {
		cfg.Interactive = flagInteractive
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
