// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateRunID(t *testing.T) {
	t.Parallel()

	id1 := GenerateRunID()
	id2 := GenerateRunID()

	if len(id1) != 8 {
		t.Errorf("expected 8-character run ID, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique run IDs")
	}
}

func TestRunIDAndStageContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if id := RunIDFromContext(ctx); id != "" {
		t.Errorf("expected empty run ID, got %s", id)
	}
	if s := StageFromContext(ctx); s != "" {
		t.Errorf("expected empty stage, got %s", s)
	}

	ctx = ContextWithRunID(ctx, "abc12345")
	ctx = ContextWithStage(ctx, "IndexBuilder")

	if id := RunIDFromContext(ctx); id != "abc12345" {
		t.Errorf("RunIDFromContext = %q, want %q", id, "abc12345")
	}
	if s := StageFromContext(ctx); s != "IndexBuilder" {
		t.Errorf("StageFromContext = %q, want %q", s, "IndexBuilder")
	}
}

func TestCtxAddsFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithRunID(ctx, "run-1")
	ctx = ContextWithStage(ctx, "CostAnnotator")

	Ctx(ctx).Info().Msg("annotated")

	output := buf.String()
	for _, want := range []string{`"run_id":"run-1"`, `"stage":"CostAnnotator"`, "annotated"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestCtxWithoutFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))

	Ctx(ctx).Info().Msg("plain")

	if strings.Contains(buf.String(), "run_id") {
		t.Errorf("expected no run_id in output: %s", buf.String())
	}
}
