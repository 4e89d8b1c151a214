// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package shelltest provides a recording shell.Runner for stage tests.
package shelltest

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/shell"
)

// Call is one recorded invocation.
type Call struct {
	Command shell.Command
	// Stdin is the full stdin content, read at call time.
	Stdin string
}

// Line returns the unredacted command line, for assertions.
func (c Call) Line() string {
	return strings.TrimSpace(c.Command.Name + " " + strings.Join(c.Command.Args, " "))
}

// Runner records every command and answers through Handler.
// A nil Handler makes every command succeed with empty output.
type Runner struct {
	Handler func(cmd shell.Command) (shell.Result, error)

	mu    sync.Mutex
	calls []Call
}

// Run records cmd and delegates to Handler.
func (r *Runner) Run(ctx context.Context, cmd shell.Command) (shell.Result, error) {
	if err := ctx.Err(); err != nil {
		return shell.Result{ExitCode: -1}, &shell.CommandError{Command: cmd.String(), ExitCode: -1, Err: err}
	}

	var stdin string
	if cmd.Stdin != nil {
		data, err := io.ReadAll(cmd.Stdin)
		if err != nil {
			return shell.Result{}, fmt.Errorf("shelltest: read stdin: %w", err)
		}
		stdin = string(data)
	}

	r.mu.Lock()
	r.calls = append(r.calls, Call{Command: cmd, Stdin: stdin})
	r.mu.Unlock()

	if r.Handler == nil {
		return shell.Result{}, nil
	}
	return r.Handler(cmd)
}

// Calls returns a copy of the recorded calls.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the recorded command lines in order.
func (r *Runner) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

// Fail builds the error a real runner returns for a non-zero exit, with
// cmd.Secrets masked in stderr.
func Fail(cmd shell.Command, exitCode int, stderr string) (shell.Result, error) {
	stderr = logging.Redact(stderr, cmd.Secrets...)
	res := shell.Result{Stderr: stderr, ExitCode: exitCode}
	return res, &shell.CommandError{
		Command:  cmd.String(),
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      fmt.Errorf("exit status %d", exitCode),
	}
}

// NotInstalled builds the error a real runner returns for a missing binary.
func NotInstalled(cmd shell.Command) (shell.Result, error) {
	return shell.Result{ExitCode: -1}, &shell.CommandError{
		Command:  cmd.String(),
		ExitCode: -1,
		Err:      &exec.Error{Name: cmd.Name, Err: exec.ErrNotFound},
	}
}
