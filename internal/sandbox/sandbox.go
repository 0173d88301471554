// Package sandbox runs a mutant binary against one test invocation and
// classifies the outcome, grounded on
// original_source/lib/ForkProcessSandbox.cpp. The original forks, installs
// a SIGALRM timer via setitimer, redirects stdout/stderr with freopen to
// uniquely-named temp files, and reports its result through mmap'd shared
// memory. Go cannot fork mid-runtime and keep running arbitrary Go code in
// the child (the goroutine scheduler and GC state don't survive a bare
// fork), so this package's Sandbox spawns the mutant as a real child
// process with os/exec instead, using a context deadline in place of the
// interval timer and captured pipes in place of the shared temp files. The
// Crashed/Timedout/AbnormalExit/Passed classification is unchanged.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/mutantlab/mutant/internal/mutant"
)

// reserved exit codes a mutant binary itself must never legitimately use,
// mirroring ForkProcessSandbox.cpp's MullTimeoutCode/MullExitCode pair
// (there 12/13; rotated in this project to improbable values, per an Open
// Question resolved in DESIGN.md).
const (
	timeoutExitCode = 217
	normalExitCode  = 218
)

// Outcome is the classification this package's Run produces, convertible
// to mutant.Status by the caller once it knows whether a non-Passed status
// means the test detected the mutant.
type Outcome struct {
	Status        mutant.Status
	RunningTimeMs int64
	Stdout        string
	Stderr        string
	ExitCode      int
}

// Sandbox runs one test's program invocation against a binary and reports
// how it finished.
type Sandbox interface {
	Run(ctx context.Context, binaryPath string, args []string, timeout time.Duration) (Outcome, error)
}

// Null runs the binary synchronously with no isolation, grounded on
// NullProcessSandbox::run()'s "result.status = function(); return result"
// — useful for debugging a single mutant without the cost of a watchdog
// timer, and as this package's default when a caller opts out of
// sandboxing entirely.
type Null struct {
	Exec Runner
}

// Runner abstracts process execution so Null and Process can share a test
// double. ProcessRunner is the production implementation.
type Runner interface {
	Run(ctx context.Context, binaryPath string, args []string) (stdout, stderr []byte, exitCode int, signaled bool, signal syscall.Signal, err error)
}

func (n Null) Run(ctx context.Context, binaryPath string, args []string, _ time.Duration) (Outcome, error) {
	runner := n.Exec
	if runner == nil {
		runner = ProcessRunner{}
	}
	start := time.Now()
	stdout, stderr, exitCode, signaled, sig, err := runner.Run(ctx, binaryPath, args)
	elapsed := time.Since(start)
	if err != nil && !isExitError(err) {
		return Outcome{}, err
	}
	return Outcome{
		Status:        classify(exitCode, signaled, sig),
		RunningTimeMs: elapsed.Milliseconds(),
		Stdout:        string(stdout),
		Stderr:        string(stderr),
		ExitCode:      exitCode,
	}, nil
}

// Process runs the binary as an isolated child process bounded by timeout,
// grounded on ForkProcessSandbox::run(): a watchdog deadline stands in for
// the SIGALRM/setitimer pair, and the child's stdout and stderr are
// captured the way the original reads back its freopen'd temp files.
type Process struct {
	Exec Runner
}

func (p Process) Run(ctx context.Context, binaryPath string, args []string, timeout time.Duration) (Outcome, error) {
	runner := p.Exec
	if runner == nil {
		runner = ProcessRunner{}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, exitCode, signaled, sig, err := runner.Run(runCtx, binaryPath, args)
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Outcome{
			Status:        mutant.StatusTimedout,
			RunningTimeMs: elapsed.Milliseconds(),
			Stdout:        string(stdout),
			Stderr:        string(stderr),
			ExitCode:      exitCode,
		}, nil
	}
	if err != nil && !isExitError(err) {
		return Outcome{}, err
	}

	return Outcome{
		Status:        classify(exitCode, signaled, sig),
		RunningTimeMs: elapsed.Milliseconds(),
		Stdout:        string(stdout),
		Stderr:        string(stderr),
		ExitCode:      exitCode,
	}, nil
}

// classify reproduces ForkProcessSandbox.cpp's waitpid-status
// interpretation: WIFSIGNALED maps to Crashed regardless of which signal,
// WIFEXITED with the reserved timeout code maps to Timedout (the wall-clock
// deadline path normally intercepts this first, but a mutant that itself
// exits with this code is treated identically), WIFEXITED with anything
// other than the reserved normal-exit code maps to AbnormalExit, and the
// reserved normal-exit code maps to Passed so the caller's test-result
// interpretation can downgrade it to Failed based on stdout/stderr content.
func classify(exitCode int, signaled bool, _ syscall.Signal) mutant.Status {
	if signaled {
		return mutant.StatusCrashed
	}
	switch exitCode {
	case timeoutExitCode:
		return mutant.StatusTimedout
	case normalExitCode:
		return mutant.StatusPassed
	default:
		return mutant.StatusAbnormalExit
	}
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// ProcessRunner is the production Runner: os/exec with stdout and stderr
// captured separately and a process group so a killed driver cannot orphan the mutant
// subprocess, mirroring ForkProcessSandbox.cpp's use of the child's own
// process group to isolate its signal delivery.
type ProcessRunner struct{}

func (ProcessRunner) Run(ctx context.Context, binaryPath string, args []string) (stdout, stderr []byte, exitCode int, signaled bool, signal syscall.Signal, err error) {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	configureSysProcAttr(cmd)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = outBuf.Bytes()
	stderr = errBuf.Bytes()

	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			signaled = true
			signal = ws.Signal()
		}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return stdout, stderr, exitCode, signaled, signal, exitErr
		}
		return stdout, stderr, exitCode, signaled, signal, runErr
	}
	return stdout, stderr, exitCode, signaled, signal, nil
}
