package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/fatih/color"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/pylaunch/pylaunch/internal/launcher"
	"github.com/pylaunch/pylaunch/internal/store"
	"github.com/pylaunch/pylaunch/internal/venv"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check launch preconditions",
	Long: `Doctor reports host information and verifies everything a launch needs:
the project directory, the virtual environment, the interpreter, and the
history store. It exits non-zero when a fatal precondition fails.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var (
	okMark   = color.New(color.FgGreen).Sprint("ok")
	warnMark = color.New(color.FgYellow).Sprint("warn")
	failMark = color.New(color.FgRed).Sprint("FAIL")
)

func runDoctor(cmd *cobra.Command, args []string) error {
	printHostInfo()

	fmt.Println("Checks:")
	fatal := false

	// Project directory
	if cfg.ProjectDir == "" {
		fmt.Printf("  [%s] project_dir is not set\n", failMark)
		fatal = true
	} else {
		l := launcher.New(launcher.Options{ProjectDir: cfg.ProjectDir})
		if err := l.CheckProjectDir(); err != nil {
			fmt.Printf("  [%s] %v\n", failMark, err)
			fatal = true
		} else {
			fmt.Printf("  [%s] project directory: %s\n", okMark, cfg.ProjectDir)
		}
	}

	// Virtual environment
	interpreter := cfg.Interpreter
	if cfg.ProjectDir != "" {
		env, err := venv.Locate(cfg.ProjectDir, cfg.VenvDir)
		var missing *venv.MissingError
		switch {
		case err == nil:
			fmt.Printf("  [%s] virtual environment: %s\n", okMark, env.Root)
			if env.Interpreter != "" {
				interpreter = env.Interpreter
			}
		case errors.As(err, &missing):
			fmt.Printf("  [%s] %v (launch will use the ambient environment)\n", warnMark, missing)
		default:
			fmt.Printf("  [%s] venv probe failed: %v\n", warnMark, err)
		}
	}

	// Interpreter
	if path, err := exec.LookPath(interpreter); err != nil {
		fmt.Printf("  [%s] interpreter not found: %s\n", failMark, interpreter)
		fatal = true
	} else {
		fmt.Printf("  [%s] interpreter: %s\n", okMark, path)
	}

	// History store
	if cfg.HistoryPath == "" {
		fmt.Printf("  [%s] history_path is not set, launches will not be recorded\n", warnMark)
	} else if st, err := store.Open(cfg.HistoryPath); err != nil {
		fmt.Printf("  [%s] history store unavailable: %v\n", warnMark, err)
	} else {
		st.Close()
		fmt.Printf("  [%s] history store: %s\n", okMark, cfg.HistoryPath)
	}

	if fatal {
		fmt.Println()
		fmt.Println("Fix the failing checks above, then re-run 'pylaunch doctor'.")
		return exitWith(1)
	}
	return nil
}

func printHostInfo() {
	fmt.Println("Host:")
	if info, err := host.Info(); err == nil {
		fmt.Printf("  OS: %s %s (%s/%s)\n", info.Platform, info.PlatformVersion, runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  Hostname: %s\n", info.Hostname)
	} else {
		fmt.Printf("  OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
	fmt.Printf("  CPU threads: %d\n", runtime.NumCPU())
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("  RAM: %.1f GB (%.1f GB available)\n",
			float64(vm.Total)/(1<<30), float64(vm.Available)/(1<<30))
	}
	if _, present := os.LookupEnv("VIRTUAL_ENV"); present {
		fmt.Printf("  Note: a venv is already active in this shell; the launcher builds its own child environment\n")
	}
	fmt.Println()
}
