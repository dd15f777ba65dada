package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// waitDelay bounds how long Wait keeps draining pipes after the process was
// killed, in case a grandchild still holds them open.
const waitDelay = 2 * time.Second

var (
	ErrTimeout     = errors.New("inference timed out")
	ErrInterrupted = errors.New("inference interrupted")
)

// Command is a single script invocation: `<Interpreter> <Script>` with Stdin
// written to the process and then closed.
type Command struct {
	Interpreter string
	Script      string
	Stdin       []byte
}

type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// StartError reports that the process could not be launched at all.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return e.Err.Error()
}

func (e *StartError) Unwrap() error {
	return e.Err
}

type Runner struct {
	logger *zap.Logger
}

func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{logger: logger}
}

// Run launches the command, feeds it Stdin and collects stdout and stderr
// concurrently until it exits. A non-zero exit is not an error: it is
// reported through Result.ExitCode. The process is killed when ctx ends, in
// which case the partial result is returned together with ErrInterrupted.
func (r *Runner) Run(ctx context.Context, command Command) (*Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, command.Interpreter, command.Script)
	cmd.Stdin = bytes.NewReader(command.Stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Err: err}
	}

	r.logger.Debug("inference process started",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("interpreter", command.Interpreter),
		zap.String("script", command.Script),
	)

	waitErr := cmd.Wait()
	result := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return result, fmt.Errorf("failed to wait for inference process: %w", waitErr)
	}

	return result, nil
}
