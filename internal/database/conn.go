// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/logging"
)

// SQLSTATE codes handled explicitly.
const (
	SQLStateDuplicateDatabase = "42P04"
	SQLStateUniqueViolation   = "23505"
	SQLStateUndefinedTable    = "42P01"
)

// Conn is the subset of *pgx.Conn the stages use.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Connector opens connections from a connection string.
type Connector interface {
	Connect(ctx context.Context, connString string) (Conn, error)
}

// PgxConnector connects with pgx.
type PgxConnector struct{}

// Connect opens a single pgx connection.
func (PgxConnector) Connect(ctx context.Context, connString string) (Conn, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Open connects to the named database as the configured admin user.
func Open(ctx context.Context, connector Connector, cfg config.DatabaseConfig, name string) (Conn, error) {
	conn, err := connector.Connect(ctx, cfg.ConnString(name))
	if err != nil {
		return nil, redactConnError(err, cfg.AdminPassword)
	}
	return conn, nil
}

// CloseQuietly closes conn, logging rather than returning any error.
func CloseQuietly(ctx context.Context, conn Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Failed to close database connection")
	}
}

// SQLState returns the SQLSTATE of a server error in err's chain, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// QuoteIdent quotes a single SQL identifier.
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// redactConnError masks the password should a driver echo the connection string.
func redactConnError(err error, password string) error {
	if password == "" || !strings.Contains(err.Error(), password) {
		return err
	}
	return &redactedError{msg: logging.Redact(err.Error(), password), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
