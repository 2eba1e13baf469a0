// Package toolexec runs external command-line tools behind a small interface
// so clients can be exercised with fakes in tests.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"mediarelay/internal/services"
)

const stderrTail = 2048

// Output holds the captured streams of one invocation.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Output, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, binary string, args []string) (Output, error)

// Run calls f.
func (f ExecutorFunc) Run(ctx context.Context, binary string, args []string) (Output, error) {
	return f(ctx, binary, args)
}

// Command executes binaries with exec.CommandContext.
type Command struct{}

// Run starts binary, waits for it, and classifies failures: a missing binary
// or non-zero exit is ErrExternalTool, an expired context is ErrTimeout.
func (Command) Run(ctx context.Context, binary string, args []string) (Output, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}
	name := commandName(binary)
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, services.Wrap(services.ErrTimeout, name, "run", "deadline exceeded", ctxErr)
		}
		return out, services.Wrap(services.ErrTransient, name, "run", "cancelled", ctxErr)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return out, services.Wrap(services.ErrExternalTool, name, "run", "binary not found", err)
	}
	return out, services.Wrap(services.ErrExternalTool, name, "run", Tail(out.Stderr), err)
}

// Tail returns the trailing portion of tool diagnostics, trimmed.
func Tail(data []byte) string {
	text := strings.TrimSpace(string(data))
	if len(text) > stderrTail {
		text = "..." + text[len(text)-stderrTail:]
	}
	return text
}

func commandName(binary string) string {
	binary = strings.TrimSpace(binary)
	if idx := strings.LastIndexAny(binary, `/\`); idx >= 0 {
		binary = binary[idx+1:]
	}
	if binary == "" {
		return "command"
	}
	return binary
}

// Describe renders a command line for debug logs.
func Describe(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}
