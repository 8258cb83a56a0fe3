package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"mailstack/internal/logfields"
)

// ErrNotFound reports that a collaborator binary is not installed.
var ErrNotFound = errors.New("command not found")

// Command describes one external collaborator invocation.
type Command struct {
	Name  string
	Args  []string
	Env   []string
	Dir   string
	Stdin string
}

// Cmd is shorthand for a Command without environment or stdin.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Line renders the command the way an operator would type it.
func (c Command) Line() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is what the pipeline consumes from a collaborator: its exit status and
// its output.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if len(out) > 512 {
		out = "..." + out[len(out)-512:]
	}
	if out == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Code, out)
}

// ExitCodeOf returns the exit status carried by err, or -1 when err is not an
// exit failure.
func ExitCodeOf(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return -1
}

// Runner executes collaborator commands. Implementations must block until the
// command exits.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	c.Dir = cmd.Dir
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			logger.Debug("command not found", logfields.Command(cmd.Line()))
			return res, fmt.Errorf("%s: %w", cmd.Name, ErrNotFound)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			logger.Debug("command failed", logfields.Command(cmd.Line()), logfields.ExitCode(res.ExitCode), logfields.Duration(time.Since(start)))
			return res, &ExitError{Command: cmd.Line(), Code: res.ExitCode, Output: res.Stderr + res.Stdout}
		}
		return res, fmt.Errorf("%s: %w", cmd.Line(), err)
	}

	logger.Debug("command ok", logfields.Command(cmd.Line()), logfields.Duration(time.Since(start)))
	return res, nil
}
