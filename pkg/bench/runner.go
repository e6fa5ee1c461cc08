package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/briefbench/pkg/summarizer"
)

// DefaultRunTimeout bounds one external summarize run.
const DefaultRunTimeout = 300 * time.Second

// RunParams identifies one summarize invocation.
type RunParams struct {
	Host         string
	URL          string
	Model        string
	TargetLength int
}

// RunOutcome is the result of one invocation.
type RunOutcome struct {
	Success bool
	Summary string
	Elapsed time.Duration
	Err     string
}

// Runner executes one summarization run.
type Runner interface {
	RunOnce(ctx context.Context, p RunParams) RunOutcome
}

// ExecRunner runs "summarize" in a child process with forced cache reuse.
type ExecRunner struct {
	// Binary is the briefbench executable.
	Binary string
	// ConfigPath is passed through as --config when set.
	ConfigPath string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Args returns the child's argument list for p.
func (r *ExecRunner) Args(p RunParams) []string {
	args := []string{"summarize"}
	if r.ConfigPath != "" {
		args = append(args, "--config", r.ConfigPath)
	}
	return append(args, p.Host, p.URL, p.Model, strconv.Itoa(p.TargetLength), summarizer.ReuseFlag)
}

// RunOnce implements Runner.
func (r *ExecRunner) RunOnce(ctx context.Context, p RunParams) RunOutcome {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, r.Args(p)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return RunOutcome{
			Elapsed: timeout,
			Err:     fmt.Sprintf("timeout after %d seconds", int(timeout.Seconds())),
		}
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return RunOutcome{Success: true, Summary: strings.TrimSpace(stdout.String()), Elapsed: elapsed}
	case errors.As(err, &exitErr):
		logger.Debug("summarize failed",
			zap.Int("status", exitErr.ExitCode()),
			zap.String("stderr", tail(stderr.String(), 2000)))
		return RunOutcome{Elapsed: elapsed, Err: fmt.Sprintf("summarize exited with status %d", exitErr.ExitCode())}
	default:
		return RunOutcome{Elapsed: elapsed, Err: fmt.Sprintf("execution error: %v", err)}
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
