// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package pipeline runs the provisioning stages strictly in order and tracks
// the state the target host has reached.
//
// # State Machine
//
//	NotStarted -> PackagesInstalled -> DatasetFetched -> RegionExtracted ->
//	DatabaseReady -> SchemaImported -> IndexesBuilt -> CostsAnnotated -> Verified
//
// Each Step pairs a Stage with the State it reaches on success. The first
// failing stage halts the run; Run returns a *StageError carrying the stage
// name and the last state reached. Nothing is rolled back: side effects of
// completed stages persist and every stage is safe to re-run.
//
// # Run Journal
//
// The RunRecord of the current run is saved to a Journal after every stage,
// so an interrupted or failed run leaves a record of how far it got. The
// BadgerJournal persists across processes; InMemoryJournal is used when no
// journal path is configured and in tests.
//
// # Resuming
//
// Options.From starts the run at a named stage. Earlier stages are recorded
// as skipped and their states are assumed reached.
package pipeline
