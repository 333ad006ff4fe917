// Package launcher runs a Python package entrypoint inside its project
// context. The launcher never owns the outcome: it forwards argv and stdio,
// relays signals, and reports the child's exit code unchanged.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pylaunch/pylaunch/internal/report"
	"github.com/pylaunch/pylaunch/internal/venv"
)

// DirectoryError reports a project directory that does not exist or cannot
// be entered. This is the only error the launcher treats as fatal.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("project directory unavailable: %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// SpawnError reports that the entrypoint process could not be started.
type SpawnError struct {
	Interpreter string
	Err         error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Interpreter, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Options configure a Launcher.
type Options struct {
	// ProjectDir is the directory the entrypoint runs in. Required.
	ProjectDir string
	// VenvDir names the virtual environment, relative to ProjectDir
	// unless absolute.
	VenvDir string
	// Module is executed as `<interpreter> -m <module>`.
	Module string
	// Interpreter is used when the venv does not provide one.
	Interpreter string

	// Stdio overrides, nil means the launcher's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher launches the configured entrypoint.
type Launcher struct {
	opts Options
}

// New validates nothing; preconditions are checked per step so the CLI can
// distinguish fatal from non-fatal ones.
func New(opts Options) *Launcher {
	return &Launcher{opts: opts}
}

// CheckProjectDir verifies the project directory exists and is a directory.
func (l *Launcher) CheckProjectDir() error {
	info, err := os.Stat(l.opts.ProjectDir)
	if err != nil {
		return &DirectoryError{Path: l.opts.ProjectDir, Err: err}
	}
	if !info.IsDir() {
		return &DirectoryError{Path: l.opts.ProjectDir, Err: errors.New("not a directory")}
	}
	return nil
}

// ProbeVenv resolves the project's virtual environment. A *venv.MissingError
// means the launch should continue with the ambient environment.
func (l *Launcher) ProbeVenv() (*venv.Environment, error) {
	return venv.Locate(l.opts.ProjectDir, l.opts.VenvDir)
}

// Run spawns the entrypoint as a module execution and waits for it. The
// child gets ProjectDir as its working directory; the launcher's own cwd is
// never touched. env may be nil when no venv is available.
func (l *Launcher) Run(ctx context.Context, env *venv.Environment, args []string) (*report.Result, error) {
	interp := l.opts.Interpreter
	if env != nil && env.Interpreter != "" {
		interp = env.Interpreter
	}

	res := report.New(l.opts.Module, args)

	cmdArgs := append([]string{"-m", l.opts.Module}, args...)
	cmd := exec.CommandContext(ctx, interp, cmdArgs...)
	cmd.Dir = l.opts.ProjectDir
	cmd.Env = os.Environ()
	if env != nil {
		cmd.Env = env.Apply(os.Environ())
	}

	cmd.Stdin = l.opts.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = l.opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = l.opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Interpreter: interp, Err: err}
	}

	pid := cmd.Process.Pid
	logrus.WithFields(logrus.Fields{
		"pid":         pid,
		"interpreter": interp,
		"module":      l.opts.Module,
		"venv":        env != nil,
	}).Debug("entrypoint started")

	// Relay interrupts to the child; the launcher never kills it itself.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigc:
				if err := cmd.Process.Signal(sig); err != nil {
					logrus.WithError(err).Debug("signal relay failed")
				}
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)
	signal.Stop(sigc)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("wait failed: %w", err)
		}
		exitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			// Shell convention for signal deaths.
			exitCode = 128 + int(status.Signal())
		}
	}

	res.Complete(pid, exitCode, env != nil)
	logrus.WithFields(logrus.Fields{
		"pid":     pid,
		"exit":    exitCode,
		"runtime": res.Duration.String(),
	}).Debug("entrypoint exited")

	return res, nil
}
