// Package tools runs the external binaries this repo wraps (docker compose,
// lncli, bitcoin-cli, loop).
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
)

// Cmd describes one external process. Nil streams are discarded, except Stdin
// which reads as empty.
type Cmd struct {
	Name   string
	Args   []string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c Cmd) WithStreams(streams Streams) Cmd {
	c.Stdin = streams.Stdin
	c.Stdout = streams.Stdout
	c.Stderr = streams.Stderr
	return c
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Streams connects a pass-through command to the caller's terminal.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CommandRunner abstracts process execution so callers can be tested without
// the real binaries.
type CommandRunner interface {
	Run(ctx context.Context, cmd Cmd) (int, error)
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Cmd, e.Code)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// ExecRunner executes commands on the local host.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, c Cmd) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if r.Logger != nil {
		r.Logger.Debug("Running command", slog.String("cmd", c.String()))
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		// killed by a signal: report it the way a shell does
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			code = 128 + int(status.Signal())
		}
		return code, &ExitError{Cmd: c.Name, Code: code}
	}

	exitCode := 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return exitCode, fmt.Errorf("cmd.Run(%s) %w", c.Name, err)
}

// Output runs cmd capturing stdout. A non-zero exit yields an *ExitError
// carrying the captured stderr.
func Output(ctx context.Context, runner CommandRunner, cmd Cmd) ([]byte, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code, err := runner.Run(ctx, cmd)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = stderr.String()
			return stdout.Bytes(), exitErr
		}
		return stdout.Bytes(), err
	}
	if code != 0 {
		return stdout.Bytes(), &ExitError{Cmd: cmd.Name, Code: code, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}

// ExitCode maps an error returned by a CommandRunner to a process exit status.
func ExitCode(code int, err error) int {
	if err == nil {
		return code
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if code != 0 {
		return code
	}
	return 1
}
