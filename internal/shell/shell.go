// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package shell runs the external programs the provisioning stages drive:
// apt-get, dpkg-query, osmium, psql, systemctl and osm2pgrouting.
//
// Commands are bound to the run context, so cancelling a run kills the child.
// Every command line that reaches a log or an error passes through
// logging.RedactArgs and the command's declared Secrets.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
)

const (
	// DefaultTailLines is how many trailing stderr lines a CommandError keeps.
	DefaultTailLines = 20

	// maxStdout caps captured stdout; longer output is logged but not retained.
	maxStdout = 1 << 20

	// waitDelay bounds how long a cancelled child may hold its pipes open.
	waitDelay = 10 * time.Second
)

// Command describes one external program invocation.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string
	// Args are passed verbatim.
	Args []string
	// Env entries (KEY=VALUE) are appended to the inherited environment.
	Env []string
	// Stdin, if non-nil, is streamed to the child.
	Stdin io.Reader
	// Dir is the working directory; empty means the current one.
	Dir string
	// Secrets are masked wherever the command or its output is reported.
	Secrets []string
}

// String returns the redacted command line.
func (c Command) String() string {
	parts := append([]string{c.Name}, logging.RedactArgs(c.Args)...)
	return logging.Redact(strings.Join(parts, " "), c.Secrets...)
}

// Label is the short program name used as a metric label.
func (c Command) Label() string {
	return filepath.Base(c.Name)
}

// Result is the captured outcome of a successful or failed command.
type Result struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands. ExecRunner is the production implementation;
// shelltest.Runner records calls for tests.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// CommandError reports a command that could not start or exited non-zero.
type CommandError struct {
	// Command is the redacted command line.
	Command string
	// ExitCode is -1 when the process never ran or was killed.
	ExitCode int
	// Stderr holds the trailing stderr lines, redacted.
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Command, e.Err)
	if last := lastLine(e.Stderr); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the executable is not installed.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// TailLines overrides DefaultTailLines.
	TailLines int
}

// NewExecRunner returns an ExecRunner with default settings.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{TailLines: DefaultTailLines}
}

// Run executes cmd and waits for it. Output lines are logged at debug level
// as they arrive.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	tailLines := r.TailLines
	if tailLines <= 0 {
		tailLines = DefaultTailLines
	}

	logger := logging.Ctx(ctx).With().Str("command", c.Label()).Logger()
	logger.Debug().Str("cmdline", c.String()).Msg("Running command")

	stdout := &cappedBuffer{max: maxStdout}
	stderr := newTailBuffer(tailLines)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin
	cmd.Dir = c.Dir
	cmd.Stdout = io.MultiWriter(stdout, &lineLogger{logger: logger, stream: "stdout", secrets: c.Secrets})
	cmd.Stderr = io.MultiWriter(stderr, &lineLogger{logger: logger, stream: "stderr", secrets: c.Secrets})
	cmd.WaitDelay = waitDelay

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)
	metrics.RecordCommand(c.Label(), duration, runErr)

	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   logging.Redact(stderr.String(), c.Secrets...),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: duration,
	}
	if runErr == nil {
		logger.Debug().Dur("duration", duration).Msg("Command finished")
		return res, nil
	}

	cause := runErr
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause = ctxErr
	}
	return res, &CommandError{
		Command:  c.String(),
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		Err:      redactError(cause, c.Secrets),
	}
}

// redactError masks secrets in err's message while keeping it matchable
// with errors.Is for the sentinels callers test against.
func redactError(err error, secrets []string) error {
	msg := logging.Redact(err.Error(), secrets...)
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// cappedBuffer keeps the first max bytes written to it.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
