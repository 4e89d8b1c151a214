// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
	"github.com/tomtom215/roadbed/internal/models"
)

// WaitReady connects to the maintenance database at a constant interval until
// SELECT 1 succeeds. It returns a KindTransient error wrapping
// models.ErrReadinessTimeout once rc.Timeout has elapsed, or a KindEnvironment
// error carrying the context error if ctx ends first. Authentication failures
// stop the poll immediately.
func WaitReady(ctx context.Context, connector Connector, cfg config.DatabaseConfig, rc config.ReadinessConfig) error {
	logger := logging.Ctx(ctx)
	start := time.Now()
	attempts := 0

	ping := func() (struct{}, error) {
		attempts++
		err := pingOnce(ctx, connector, cfg)
		metrics.RecordReadinessAttempt(err == nil)
		if err != nil && isAuthFailure(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	notify := func(err error, next time.Duration) {
		logger.Debug().
			Err(err).
			Int("attempt", attempts).
			Dur("retry_in", next).
			Msg("Database not ready")
	}

	_, err := backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewConstantBackOff(rc.Interval)),
		backoff.WithMaxElapsedTime(rc.Timeout),
		backoff.WithNotify(notify),
	)

	switch {
	case err == nil:
		logger.Info().
			Int("attempts", attempts).
			Dur("waited", time.Since(start)).
			Msg("Database is accepting connections")
		return nil
	case ctx.Err() != nil:
		return models.EnvironmentError("wait for database", ctx.Err())
	case isAuthFailure(err):
		return models.EnvironmentError("wait for database", err)
	default:
		return models.TransientError("wait for database",
			fmt.Errorf("%w: %s not available after %s (%d attempts): %v",
				models.ErrReadinessTimeout, cfg.Address(), rc.Timeout, attempts, err))
	}
}

func pingOnce(ctx context.Context, connector Connector, cfg config.DatabaseConfig) error {
	conn, err := Open(ctx, connector, cfg, models.MaintenanceDatabase)
	if err != nil {
		return err
	}
	defer CloseQuietly(ctx, conn)

	var one int
	return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// isAuthFailure reports SQLSTATE class 28 (invalid authorization).
func isAuthFailure(err error) bool {
	return strings.HasPrefix(SQLState(err), "28")
}
