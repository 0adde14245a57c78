package provisioner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/johnpolacek/create-bucket-cms/internal/logging"
)

// outputTailLines is how much captured output a ProcessError keeps.
const outputTailLines = 20

// Command describes one child process.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
	// Interactive commands inherit stdin, stdout and stderr.
	Interactive bool
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Executor runs child processes.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ProcessError reports a child process that failed to start or exited non-zero.
type ProcessError struct {
	Command  string
	ExitCode int
	// Output holds the tail of the captured output for non-interactive commands.
	Output string
	Err    error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Command)
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// ShellExecutor runs commands with os/exec.
type ShellExecutor struct{}

// NewShellExecutor returns the executor used outside of tests.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

// Run executes cmd and waits for it. Cancelling ctx kills the process.
func (ShellExecutor) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var output bytes.Buffer
	if cmd.Interactive {
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	} else {
		c.Stdout = &output
		c.Stderr = &output
	}

	logging.Debug("Executor", "running %q in %s", cmd.String(), cmd.Dir)
	err := c.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	pErr := &ProcessError{Command: cmd.String(), Output: tail(output.String(), outputTailLines), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		pErr.ExitCode = exitErr.ExitCode()
	}
	return pErr
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
