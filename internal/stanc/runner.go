package stanc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pentops/log.go/log"
)

// Exec runs a program to completion.
type Exec interface {
	Run(ctx context.Context, name string, args ...string) (*Output, error)
}

type Output struct {
	Stdout string
	Stderr string
}

// ProcessError is a failed or timed out invocation.
type ProcessError struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int // -1 when the process did not exit normally
	TimedOut bool
	Err      error
}

func (pe *ProcessError) Error() string {
	if pe.TimedOut {
		return fmt.Sprintf("Command timed out: %s", pe.Command)
	}
	msg := fmt.Sprintf("Command failed: %s", pe.Command)
	if detail := strings.TrimRight(pe.Stderr, "\r\n"); detail != "" {
		return msg + "\n" + detail
	}
	if detail := strings.TrimRight(pe.Stdout, "\r\n"); detail != "" {
		return msg + "\n" + detail
	}
	if pe.Err != nil {
		return msg + "\n" + pe.Err.Error()
	}
	return msg
}

func (pe *ProcessError) Unwrap() error {
	return pe.Err
}

func (pe *ProcessError) Timeout() bool {
	return pe.TimedOut
}

// Output returns the captured streams.
func (pe *ProcessError) Output() (stdout, stderr string) {
	return pe.Stdout, pe.Stderr
}

// waitDelay bounds how long a killed process's children may hold the output
// pipes open.
const waitDelay = 500 * time.Millisecond

// Runner executes programs directly, without a shell, so paths need no
// quoting. Timeout bounds every invocation when set.
type Runner struct {
	Timeout time.Duration
}

var _ Exec = &Runner{}

func (rr *Runner) Run(ctx context.Context, name string, args ...string) (*Output, error) {
	if rr.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rr.Timeout)
		defer cancel()
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	t0 := time.Now()
	err := cmd.Run()
	out := &Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	log.WithFields(ctx, map[string]interface{}{
		"cmd": name,
		"t0":  time.Since(t0).String(),
	}).Debug("Process exited")

	if err == nil {
		return out, nil
	}

	pe := &ProcessError{
		Command:  commandLine(name, args),
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		ExitCode: -1,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		pe.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		pe.TimedOut = true
	}
	return out, pe
}

func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = `"` + arg + `"`
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}
