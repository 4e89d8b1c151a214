// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package logging provides the zerolog-based structured logger used by every
// provisioning stage.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "console"})
//
//	logging.Info().Str("stage", "IndexBuilder").Msg("Stage started")
//	logging.Err(err).Msg("Stage failed")
//
//	// Run-scoped logging: every line carries run_id and, inside a stage, the stage name.
//	ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())
//	ctx = logging.ContextWithStage(ctx, "DatasetFetcher")
//	logging.Ctx(ctx).Info().Int64("bytes", n).Msg("Download progress")
//
// # Configuration
//
// Environment variables (mapped through the config package):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: console)
//   - LOG_CALLER: include caller file and line (default: false)
//
// # Secrets
//
// The administrative database password is never logged. Command lines pass
// through RedactArgs and free text through Redact before reaching a log event
// or an error message.
package logging
