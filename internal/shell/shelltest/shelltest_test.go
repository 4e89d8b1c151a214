// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package shelltest

import (
	"context"
	"strings"
	"testing"

	"github.com/tomtom215/roadbed/internal/shell"
)

func TestRunnerRecords(t *testing.T) {
	r := &Runner{}
	_, err := r.Run(context.Background(), shell.Command{
		Name:  "psql",
		Args:  []string{"-d", "postgres"},
		Stdin: strings.NewReader("SELECT 1;"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := r.Calls()
	if len(calls) != 1 {
		t.Fatalf("Calls() = %d, want 1", len(calls))
	}
	if calls[0].Stdin != "SELECT 1;" {
		t.Errorf("Stdin = %q", calls[0].Stdin)
	}
	if got := r.Lines()[0]; got != "psql -d postgres" {
		t.Errorf("Lines()[0] = %q", got)
	}
}

func TestRunnerHandlerAndHelpers(t *testing.T) {
	r := &Runner{Handler: func(cmd shell.Command) (shell.Result, error) {
		if cmd.Name == "osmium" {
			return NotInstalled(cmd)
		}
		return Fail(cmd, 100, "E: Unable to locate package")
	}}

	_, err := r.Run(context.Background(), shell.Command{Name: "osmium"})
	if !shell.IsNotFound(err) {
		t.Errorf("NotInstalled error not recognised: %v", err)
	}

	_, err = r.Run(context.Background(), shell.Command{Name: "apt-get"})
	if err == nil || !strings.Contains(err.Error(), "Unable to locate package") {
		t.Errorf("Fail error = %v", err)
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{}
	if _, err := r.Run(ctx, shell.Command{Name: "true"}); err == nil {
		t.Error("Run() on cancelled context expected error")
	}
	if len(r.Calls()) != 0 {
		t.Error("cancelled call should not be recorded")
	}
}
