// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package cost annotates every edge with travel time in seconds for both
// directions.
//
//	cost_time         = length_m / (speed_fwd * 1000/3600), speed_fwd = maxspeed_forward  if > 0 else 50
//	reverse_cost_time = length_m / (speed_bwd * 1000/3600), speed_bwd = maxspeed_backward if > 0 else 50
//
// Every row is recomputed on each run, so the stage is safe to repeat.
package cost

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/database"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
	"github.com/tomtom215/roadbed/internal/models"
)

// StageName is the pipeline name of this stage.
const StageName = "CostAnnotator"

// FallbackSpeedKPH applies where the posted speed is missing or not positive.
const FallbackSpeedKPH = 50

// TravelTimeSeconds is the Go form of the annotation formula.
func TravelTimeSeconds(lengthM, speedKPH float64) float64 {
	if !(speedKPH > 0) {
		speedKPH = FallbackSpeedKPH
	}
	return lengthM / (speedKPH * 1000 / 3600)
}

// RequiredColumns must exist on the edge table before annotation.
var RequiredColumns = []string{models.ColLength, models.ColSpeedForward, models.ColSpeedBackward}

const columnsSQL = `
SELECT coalesce(array_agg(column_name::text), '{}')
FROM information_schema.columns
WHERE table_schema = current_schema()
  AND table_name = $1
  AND column_name = ANY($2)`

// speedExpr is the SQL form of TravelTimeSeconds for one direction.
func speedExpr(speedCol string) string {
	return fmt.Sprintf("%s / ((CASE WHEN %s > 0 THEN %s ELSE %d END) * 1000.0 / 3600.0)",
		models.ColLength, speedCol, speedCol, FallbackSpeedKPH)
}

// Statements returns the annotation statements in execution order.
func Statements() []string {
	return []string{
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s double precision", models.EdgeTable, models.ColCostTime),
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s double precision", models.EdgeTable, models.ColReverseCostTime),
		fmt.Sprintf("UPDATE %s SET %s = %s, %s = %s",
			models.EdgeTable,
			models.ColCostTime, speedExpr(models.ColSpeedForward),
			models.ColReverseCostTime, speedExpr(models.ColSpeedBackward)),
	}
}

var nullCountSQL = fmt.Sprintf("SELECT count(*) FROM %s WHERE %s IS NULL OR %s IS NULL",
	models.EdgeTable, models.ColCostTime, models.ColReverseCostTime)

// Annotator is the CostAnnotator stage.
type Annotator struct {
	db        config.DatabaseConfig
	connector database.Connector
}

// New creates an Annotator.
func New(db config.DatabaseConfig, connector database.Connector) *Annotator {
	return &Annotator{db: db, connector: connector}
}

// Name implements pipeline.Stage.
func (a *Annotator) Name() string { return StageName }

// Run adds the cost columns if needed and recomputes them in one transaction.
func (a *Annotator) Run(ctx context.Context) (err error) {
	logger := logging.Ctx(ctx)

	conn, err := database.Open(ctx, a.connector, a.db, a.db.Name)
	if err != nil {
		return models.EnvironmentError("connect to "+a.db.Name, err)
	}
	defer database.CloseQuietly(ctx, conn)

	if err := checkColumns(ctx, conn); err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return models.EnvironmentError("begin annotation", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	var updated int64
	for _, stmt := range Statements() {
		tag, execErr := tx.Exec(ctx, stmt)
		if execErr != nil {
			return models.EnvironmentError("annotate costs", execErr)
		}
		if tag.Update() {
			updated = tag.RowsAffected()
		}
	}

	var nulls int64
	if err = tx.QueryRow(ctx, nullCountSQL).Scan(&nulls); err != nil {
		return models.EnvironmentError("count unannotated edges", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return models.EnvironmentError("commit annotation", err)
	}

	metrics.RecordCostRows(updated-nulls, nulls)
	logger.Info().Int64("edges", updated).Msg("Travel-time costs annotated")
	if nulls > 0 {
		logger.Warn().
			Int64("edges", nulls).
			Str("column", models.ColLength).
			Msg("Edges left without cost because length is NULL")
	}
	return nil
}

// checkColumns fails with a data error naming any missing input column.
func checkColumns(ctx context.Context, conn database.Conn) error {
	var present []string
	if err := conn.QueryRow(ctx, columnsSQL, models.EdgeTable, RequiredColumns).Scan(&present); err != nil {
		return models.EnvironmentError("inspect "+models.EdgeTable+" columns", err)
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !slices.Contains(present, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return models.DataError("inspect "+models.EdgeTable+" columns",
			fmt.Errorf("table %s is missing columns: %s", models.EdgeTable, strings.Join(missing, ", ")))
	}
	return nil
}
