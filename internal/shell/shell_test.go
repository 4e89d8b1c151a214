// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandStringRedacts(t *testing.T) {
	c := Command{
		Name:    "osm2pgrouting",
		Args:    []string{"--dbname", "kw", "--password", "takeme@kw", "--clean"},
		Secrets: []string{"takeme@kw"},
	}
	got := c.String()
	if strings.Contains(got, "takeme") {
		t.Errorf("String() leaks secret: %s", got)
	}
	if !strings.HasPrefix(got, "osm2pgrouting --dbname kw --password ") {
		t.Errorf("String() = %q", got)
	}
}

func TestCommandLabel(t *testing.T) {
	if got := (Command{Name: "/usr/bin/osmium"}).Label(); got != "osmium" {
		t.Errorf("Label() = %q, want osmium", got)
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	requireSh(t)

	r := NewExecRunner()
	res, err := r.Run(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-c", "cat; echo done"},
		Stdin: strings.NewReader("from stdin\n"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := string(res.Stdout); got != "from stdin\ndone\n" {
		t.Errorf("Stdout = %q", got)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestExecRunnerEnv(t *testing.T) {
	requireSh(t)

	res, err := NewExecRunner().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "printf %s \"$DEBIAN_FRONTEND\""},
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if string(res.Stdout) != "noninteractive" {
		t.Errorf("Stdout = %q, want noninteractive", res.Stdout)
	}
}

func TestExecRunnerFailureRedactsStderr(t *testing.T) {
	requireSh(t)

	_, err := NewExecRunner().Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "echo first >&2; echo 'auth failed for hunter2' >&2; exit 3"},
		Secrets: []string{"hunter2"},
	})

	var cerr *CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("Run() error = %v, want *CommandError", err)
	}
	if cerr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", cerr.ExitCode)
	}
	if strings.Contains(cerr.Error(), "hunter2") || strings.Contains(cerr.Stderr, "hunter2") {
		t.Errorf("secret leaked: %q / %q", cerr.Error(), cerr.Stderr)
	}
	if !strings.HasSuffix(cerr.Error(), "auth failed for ********") {
		t.Errorf("Error() = %q, want last stderr line appended", cerr.Error())
	}
}

func TestExecRunnerNotFound(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Command{Name: "roadbed-no-such-binary"})
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}

func TestExecRunnerCancel(t *testing.T) {
	requireSh(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExecRunner().Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 30"}})
	if err == nil {
		t.Fatal("Run() expected error on cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 15*time.Second {
		t.Error("cancelled command was not killed promptly")
	}
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(2)
	_, _ = tb.Write([]byte("one\ntwo\nthr"))
	_, _ = tb.Write([]byte("ee\nfour\npartial"))

	if got := tb.String(); got != "three\nfour\npartial" {
		t.Errorf("String() = %q", got)
	}
}

func TestTailBufferCarriageReturns(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		want   string
	}{
		{"progress overwrite", []string{"10%\r20%\r30%\rdone\n"}, "30%\ndone"},
		{"crlf", []string{"one\r\ntwo\r\n"}, "one\ntwo"},
		{"crlf split across writes", []string{"one\r", "\ntwo\r", "\n"}, "one\ntwo"},
		{"blank line kept", []string{"one\n\ntwo\n"}, "\ntwo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := newTailBuffer(2)
			for _, w := range tt.writes {
				_, _ = tb.Write([]byte(w))
			}
			if got := tb.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTailBufferBoundsPartialLine(t *testing.T) {
	tb := newTailBuffer(3)
	chunk := bytes.Repeat([]byte("x"), 1000)
	for range 20 {
		_, _ = tb.Write(chunk)
	}
	if len(tb.partial) > maxLineBytes {
		t.Errorf("partial = %d bytes, want at most %d", len(tb.partial), maxLineBytes)
	}
	for _, line := range tb.lines {
		if len(line) != maxLineBytes {
			t.Errorf("line = %d bytes, want %d", len(line), maxLineBytes)
		}
	}
}

func TestLineLoggerSplitsCarriageReturns(t *testing.T) {
	var buf bytes.Buffer
	l := &lineLogger{
		logger:  zerolog.New(&buf).Level(zerolog.DebugLevel),
		stream:  "stderr",
		secrets: []string{"hunter2"},
	}
	_, _ = l.Write([]byte("Processing 10%\rProcessing 20%\r"))
	_, _ = l.Write([]byte("\npassword hunter2\n"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("events = %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], `"message":"Processing 20%"`) {
		t.Errorf("event = %s, want Processing 20%%", lines[1])
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Errorf("log leaks secret: %s", buf.String())
	}
	if len(l.partial) != 0 {
		t.Errorf("partial = %q, want empty", l.partial)
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 4}
	n, _ := b.Write([]byte("abcdef"))
	if n != 6 {
		t.Errorf("Write() n = %d, want 6", n)
	}
	_, _ = b.Write([]byte("gh"))
	if got := string(b.Bytes()); got != "abcd" {
		t.Errorf("Bytes() = %q, want abcd", got)
	}
}

func TestLastLine(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"only":            "only",
		"a\nb\n":          "b",
		"a\n  last  \n\n": "last",
	}
	for in, want := range tests {
		if got := lastLine(in); got != want {
			t.Errorf("lastLine(%q) = %q, want %q", in, got, want)
		}
	}
}
