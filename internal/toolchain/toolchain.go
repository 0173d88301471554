// Package toolchain wraps the host compiler and linker: the two
// operations spec.md §6 names as consumed external collaborators,
// "compile(module) -> objectBytes" and "link(objects[], extraArgs[]) ->
// executablePath". Adapted from internal/compiler/{compiler.go,gcc.go}'s
// template-based command construction, generalized from compiling a
// single seed's source text to compiling an ir.Module (this engine's unit
// of work) and extended with the link step the teacher never needed.
//
// The teacher's internal/exec.CommandExecutor shelled out via a generic
// Run(command, args...) (*ExecutionResult, error) with no notion of what
// it was running. That package had no remaining adaptation to offer this
// engine: it is folded in here as commandRunner/hostCommandRunner, scoped
// to the one thing this package actually needs run, and its exit handling
// is widened from "exit code or bust" to the same
// signalled/normal-exit/nonzero-exit classification internal/sandbox
// applies to mutant binaries, since a crashing compiler or linker (e.g.
// a segfaulting cc1) is a meaningfully different toolchain failure than
// one that merely rejects the input.
package toolchain

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mutantlab/mutant/internal/ir"
)

// toolOutcome is the structured result of running one compile or link
// command, distinguishing a clean non-zero rejection from a crashing
// subprocess the way internal/sandbox.Outcome distinguishes
// AbnormalExit from Crashed for mutant binaries.
type toolOutcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Crashed  bool
	Signal   syscall.Signal
}

// commandRunner runs one toolchain command (a compiler or linker
// invocation) and reports its outcome. Abstracted so toolchain_test.go
// can substitute a fake instead of invoking a real compiler.
type commandRunner interface {
	run(command string, args ...string) (*toolOutcome, error)
}

// hostCommandRunner is the production commandRunner: a real child process
// on the host, stdout and stderr captured separately the same way
// internal/sandbox.ProcessRunner captures a mutant's output.
type hostCommandRunner struct{}

func (hostCommandRunner) run(command string, args ...string) (*toolOutcome, error) {
	cmd := exec.Command(command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	outcome := &toolOutcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			outcome.Crashed = true
			outcome.Signal = ws.Signal()
		}
	}

	// cmd.Run() returns an error for a non-zero exit or a signal death;
	// both are reported through outcome instead. Any other error (command
	// not found, couldn't fork) has no outcome to report and propagates.
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, runErr
		}
	}

	return outcome, nil
}

// errorFor turns a non-success toolOutcome into the error runTemplate
// surfaces, naming the command and distinguishing a crash from a clean
// rejection.
func (o *toolOutcome) errorFor(command string) error {
	if o.Crashed {
		return fmt.Errorf("command %q crashed (signal %s)\nstdout:\n%s\nstderr:\n%s", command, o.Signal, o.Stdout, o.Stderr)
	}
	return fmt.Errorf("command %q exited %d\nstdout:\n%s\nstderr:\n%s", command, o.ExitCode, o.Stdout, o.Stderr)
}

// Compiler turns one IR module into a native object file.
type Compiler interface {
	Compile(module *ir.Module) ([]byte, error)
}

// Linker produces a runnable binary from a set of object files.
type Linker interface {
	Link(objects [][]byte, extraArgs []string) (string, error)
}

// GCC implements Compiler and Linker the way GccCompiler.Compile did:
// a command template read from disk with {input_path}/{output_path}
// placeholders, run in a scratch temp directory.
type GCC struct {
	// CompileCommandPath names a file holding the compile command
	// template, e.g. "gcc -c {input_path} -o {output_path}".
	CompileCommandPath string
	// LinkCommandPath names a file holding the link command template,
	// e.g. "gcc {input_path} -o {output_path}".
	LinkCommandPath string
	// Exec runs the substituted command line and classifies its outcome.
	// Defaults to hostCommandRunner, a plain child process on the host;
	// compiling and linking need neither cancellation nor per-call
	// environment injection, unlike internal/sandbox's own command
	// execution, so there is nothing here to borrow from that package
	// either.
	Exec commandRunner
}

// NewGCC creates a GCC toolchain backed by the two given command-template
// files.
func NewGCC(compileCommandPath, linkCommandPath string) *GCC {
	return &GCC{
		CompileCommandPath: compileCommandPath,
		LinkCommandPath:    linkCommandPath,
		Exec:               hostCommandRunner{},
	}
}

// Compile serializes module, writes it to a scratch directory, and runs
// the compile command template against it, returning the resulting
// object file's bytes.
func (g *GCC) Compile(module *ir.Module) ([]byte, error) {
	data, err := module.Serialize()
	if err != nil {
		return nil, fmt.Errorf("toolchain: serializing module %q: %w", module.Name, err)
	}

	tempDir, err := os.MkdirTemp("", "mutant-compile-")
	if err != nil {
		return nil, fmt.Errorf("toolchain: creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "module.bc")
	if err := os.WriteFile(inputPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("toolchain: writing module: %w", err)
	}
	outputPath := filepath.Join(tempDir, "module.o")

	if err := g.runTemplate(g.CompileCommandPath, inputPath, outputPath); err != nil {
		return nil, fmt.Errorf("toolchain: compiling module %q: %w", module.Name, err)
	}

	object, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("toolchain: reading compiled object: %w", err)
	}
	return object, nil
}

// Link writes objects to a scratch directory and runs the link command
// template over them plus extraArgs, returning the path to the produced
// executable. The returned path survives after this call: unlike Compile,
// which cleans up its scratch directory because it only needs to hand
// back bytes, the caller still needs to exec this file.
func (g *GCC) Link(objects [][]byte, extraArgs []string) (string, error) {
	tempDir, err := os.MkdirTemp("", "mutant-link-")
	if err != nil {
		return "", fmt.Errorf("toolchain: creating temp dir: %w", err)
	}

	inputPaths := make([]string, len(objects))
	for i, object := range objects {
		path := filepath.Join(tempDir, fmt.Sprintf("object-%d.o", i))
		if err := os.WriteFile(path, object, 0o644); err != nil {
			os.RemoveAll(tempDir)
			return "", fmt.Errorf("toolchain: writing object %d: %w", i, err)
		}
		inputPaths[i] = path
	}
	outputPath := filepath.Join(tempDir, "mutant-binary")

	if err := g.runTemplate(g.LinkCommandPath, strings.Join(inputPaths, " "), outputPath, extraArgs...); err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("toolchain: linking: %w", err)
	}

	return outputPath, nil
}

// runTemplate reads the command template at templatePath, substitutes
// {input_path} and {output_path} (already-absolute scratch-directory
// paths), appends extraArgs, and runs the result via g.Exec, exactly as
// GccCompiler.Compile's placeholder substitution did.
func (g *GCC) runTemplate(templatePath, inputPath, outputPath string, extraArgs ...string) error {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("reading command template %s: %w", templatePath, err)
	}

	command := strings.ReplaceAll(string(raw), "{input_path}", inputPath)
	command = strings.ReplaceAll(command, "{output_path}", outputPath)
	command = strings.TrimSpace(command)

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return fmt.Errorf("empty command template %s", templatePath)
	}
	parts = append(parts, extraArgs...)

	runner := g.Exec
	if runner == nil {
		runner = hostCommandRunner{}
	}

	outcome, err := runner.run(parts[0], parts[1:]...)
	if err != nil {
		return err
	}
	if outcome.Crashed || outcome.ExitCode != 0 {
		return outcome.errorFor(command)
	}
	return nil
}
