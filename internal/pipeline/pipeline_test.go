// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/roadbed/internal/models"
)

var stageOrder = []struct {
	name    string
	reaches State
}{
	{"PackageInstaller", StatePackagesInstalled},
	{"DatasetFetcher", StateDatasetFetched},
	{"RegionExtractor", StateRegionExtracted},
	{"DatabaseProvisioner", StateDatabaseReady},
	{"SchemaImporter", StateSchemaImported},
	{"IndexBuilder", StateIndexesBuilt},
	{"CostAnnotator", StateCostsAnnotated},
	{"HealthVerifier", StateVerified},
}

// recordingSteps builds the full stage list. Each stage appends its name to
// ran; failures maps a stage name to the error it returns.
func recordingSteps(ran *[]string, failures map[string]error) []Step {
	steps := make([]Step, 0, len(stageOrder))
	for _, s := range stageOrder {
		name := s.name
		steps = append(steps, Step{
			Stage: StageFunc{StageName: name, Fn: func(ctx context.Context) error {
				*ran = append(*ran, name)
				return failures[name]
			}},
			Reaches: s.reaches,
		})
	}
	return steps
}

func TestRunAllStages(t *testing.T) {
	var ran []string
	journal := NewInMemoryJournal()
	p, err := New(recordingSteps(&ran, nil), journal)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec, err := p.Run(context.Background(), Options{RunID: "run-all"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(ran) != len(stageOrder) {
		t.Fatalf("ran %d stages, want %d: %v", len(ran), len(stageOrder), ran)
	}
	for i, s := range stageOrder {
		if ran[i] != s.name {
			t.Errorf("stage %d = %s, want %s", i, ran[i], s.name)
		}
	}
	if rec.State != StateVerified {
		t.Errorf("State = %s, want Verified", rec.State)
	}
	if rec.Failed() {
		t.Error("Failed() = true, want false")
	}
	if !rec.Finished() {
		t.Error("Finished() = false, want true")
	}
	for _, r := range rec.Stages {
		if r.Status != StatusSucceeded {
			t.Errorf("stage %s status = %s, want succeeded", r.Stage, r.Status)
		}
	}

	// One save per stage plus the final save.
	if got := journal.Saves(); got != len(stageOrder)+1 {
		t.Errorf("journal saves = %d, want %d", got, len(stageOrder)+1)
	}
	saved, _ := journal.Load(context.Background())
	if saved == nil || saved.RunID != "run-all" || saved.State != StateVerified {
		t.Errorf("saved record = %+v", saved)
	}
}

func TestRunHaltsOnFailure(t *testing.T) {
	var ran []string
	cause := models.TransientError("wait for database", models.ErrReadinessTimeout)
	p, err := New(recordingSteps(&ran, map[string]error{"DatabaseProvisioner": cause}), nil)
	if err != nil {
		t.Fatal(err)
	}

	rec, err := p.Run(context.Background(), Options{})

	var serr *StageError
	if !errors.As(err, &serr) {
		t.Fatalf("Run() error = %v, want *StageError", err)
	}
	if serr.Stage != "DatabaseProvisioner" {
		t.Errorf("StageError.Stage = %q", serr.Stage)
	}
	if serr.State != StateRegionExtracted {
		t.Errorf("StageError.State = %s, want RegionExtracted", serr.State)
	}
	if serr.Kind() != models.KindTransient {
		t.Errorf("StageError.Kind() = %s, want transient", serr.Kind())
	}
	if !errors.Is(err, models.ErrReadinessTimeout) {
		t.Error("errors.Is(err, ErrReadinessTimeout) = false")
	}
	if !strings.Contains(err.Error(), "stage DatabaseProvisioner failed (transient)") {
		t.Errorf("Error() = %q", err.Error())
	}

	for _, name := range ran {
		if name == "SchemaImporter" {
			t.Fatal("SchemaImporter ran after DatabaseProvisioner failed")
		}
	}
	if len(ran) != 4 {
		t.Errorf("ran = %v, want 4 stages", ran)
	}

	if rec.FailedStage != "DatabaseProvisioner" {
		t.Errorf("FailedStage = %q", rec.FailedStage)
	}
	last := rec.Stages[len(rec.Stages)-1]
	if last.Status != StatusFailed || last.Kind != "transient" {
		t.Errorf("last stage result = %+v", last)
	}
}

func TestRunFrom(t *testing.T) {
	var ran []string
	p, err := New(recordingSteps(&ran, nil), nil)
	if err != nil {
		t.Fatal(err)
	}

	rec, err := p.Run(context.Background(), Options{From: "indexbuilder"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"IndexBuilder", "CostAnnotator", "HealthVerifier"}
	if strings.Join(ran, ",") != strings.Join(want, ",") {
		t.Errorf("ran = %v, want %v", ran, want)
	}
	skipped := 0
	for _, r := range rec.Stages {
		if r.Status == StatusSkipped {
			skipped++
		}
	}
	if skipped != 5 {
		t.Errorf("skipped = %d, want 5", skipped)
	}
	if rec.State != StateVerified {
		t.Errorf("State = %s, want Verified", rec.State)
	}
}

func TestRunFromUnknownStage(t *testing.T) {
	var ran []string
	p, err := New(recordingSteps(&ran, nil), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Run(context.Background(), Options{From: "Geocoder"})
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("Run() error = %v, want ErrUnknownStage", err)
	}
	if len(ran) != 0 {
		t.Errorf("stages ran before rejection: %v", ran)
	}
}

func TestRunCancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran []string

	steps := recordingSteps(&ran, nil)
	steps[1].Stage = StageFunc{StageName: "DatasetFetcher", Fn: func(context.Context) error {
		ran = append(ran, "DatasetFetcher")
		cancel()
		return nil
	}}

	p, err := New(steps, nil)
	if err != nil {
		t.Fatal(err)
	}

	rec, err := p.Run(ctx, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran = %v, want 2 stages", ran)
	}
	if rec.State != StateDatasetFetched {
		t.Errorf("State = %s, want DatasetFetched", rec.State)
	}
	if rec.FailedStage != "RegionExtractor" {
		t.Errorf("FailedStage = %q, want RegionExtractor", rec.FailedStage)
	}
}

func TestNewValidation(t *testing.T) {
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name    string
		steps   []Step
		wantErr string
	}{
		{"empty", nil, "no steps"},
		{"nil stage", []Step{{Reaches: StatePackagesInstalled}}, "has no stage"},
		{
			name: "duplicate",
			steps: []Step{
				{Stage: StageFunc{"A", noop}, Reaches: StatePackagesInstalled},
				{Stage: StageFunc{"a", noop}, Reaches: StateDatasetFetched},
			},
			wantErr: "duplicate",
		},
		{
			name: "non-increasing state",
			steps: []Step{
				{Stage: StageFunc{"A", noop}, Reaches: StateDatasetFetched},
				{Stage: StageFunc{"B", noop}, Reaches: StatePackagesInstalled},
			},
			wantErr: "does not follow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.steps, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStageNames(t *testing.T) {
	var ran []string
	p, err := New(recordingSteps(&ran, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := p.StageNames()
	if len(names) != 8 || names[0] != "PackageInstaller" || names[7] != "HealthVerifier" {
		t.Errorf("StageNames() = %v", names)
	}
}

func TestPreviousFailedRunIsReadable(t *testing.T) {
	journal := NewInMemoryJournal()
	var ran []string
	p, err := New(recordingSteps(&ran, map[string]error{"CostAnnotator": models.DataError("preflight", errors.New("missing length_m"))}), journal)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), Options{RunID: "first"}); err == nil {
		t.Fatal("expected failure")
	}

	last, err := p.LastRun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if last.RunID != "first" || last.FailedStage != "CostAnnotator" || last.State != StateIndexesBuilt {
		t.Errorf("LastRun() = %+v", last)
	}
}

func TestStateString(t *testing.T) {
	if StateDatabaseReady.String() != "DatabaseReady" {
		t.Errorf("String() = %q", StateDatabaseReady.String())
	}
	if State(99).String() != "State(99)" {
		t.Errorf("String() = %q", State(99).String())
	}

	var s State
	if err := s.UnmarshalText([]byte("CostsAnnotated")); err != nil || s != StateCostsAnnotated {
		t.Errorf("UnmarshalText() = %v, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("Bogus")); err == nil {
		t.Error("UnmarshalText(Bogus) expected error")
	}
}
