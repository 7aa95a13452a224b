package transcode

import (
	"context"
	"errors"
	"os/exec"
)

// Result carries the exit code and combined stdout/stderr of a finished process.
type Result struct {
	ExitCode int
	Output   string
}

// ExecRunner runs an external command to completion. Implementations must
// honor ctx cancellation by killing the process.
type ExecRunner interface {
	Run(ctx context.Context, name string, args []string) (Result, error)
}

// OSRunner executes commands via os/exec.
type OSRunner struct{}

// Run executes the command and waits for it, returning the exit code and the
// merged diagnostic output. A non-zero exit is reported through Result, not
// through the error return; the error is reserved for spawn failures and
// context cancellation.
func (OSRunner) Run(ctx context.Context, name string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return Result{Output: string(out)}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode(), Output: string(out)}, nil
		}
		return Result{Output: string(out)}, err
	}
	return Result{ExitCode: 0, Output: string(out)}, nil
}
