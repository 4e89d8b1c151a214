// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package pgtest provides a scripted database.Conn for stage tests.
package pgtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/roadbed/internal/database"
)

// Response scripts the answer to statements containing Match.
type Response struct {
	Match string
	// Values are assigned to QueryRow destinations in order.
	Values []any
	// Tag is the command tag returned by Exec, e.g. "UPDATE 42".
	Tag string
	Err error
}

// Conn records statements and answers them from Responses. The first Response
// whose Match is a substring of the statement wins. Unmatched Exec calls
// succeed and unmatched QueryRow calls return pgx.ErrNoRows.
type Conn struct {
	Responses []Response
	// Name identifies the connection in Connector logs.
	Name string

	mu         sync.Mutex
	statements []string
	closed     bool
	committed  int
	rolledBack int
}

// Exec records sql.
func (c *Conn) Exec(ctx context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if err := ctx.Err(); err != nil {
		return pgconn.CommandTag{}, err
	}
	c.record(sql)
	r, ok := c.lookup(sql)
	if !ok {
		return pgconn.NewCommandTag(""), nil
	}
	return pgconn.NewCommandTag(r.Tag), r.Err
}

// QueryRow records sql.
func (c *Conn) QueryRow(ctx context.Context, sql string, _ ...any) pgx.Row {
	if err := ctx.Err(); err != nil {
		return row{err: err}
	}
	c.record(sql)
	r, ok := c.lookup(sql)
	if !ok {
		return row{err: pgx.ErrNoRows}
	}
	return row{values: r.Values, err: r.Err}
}

// Begin starts a recorded transaction.
func (c *Conn) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.record("BEGIN")
	if r, ok := c.lookup("BEGIN"); ok && r.Err != nil {
		return nil, r.Err
	}
	return &Tx{conn: c}, nil
}

// Close marks the connection closed.
func (c *Conn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Statements returns the recorded statements in order.
func (c *Conn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Committed returns the number of committed transactions.
func (c *Conn) Committed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// RolledBack returns the number of transactions rolled back before commit.
func (c *Conn) RolledBack() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rolledBack
}

func (c *Conn) record(sql string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, strings.Join(strings.Fields(sql), " "))
}

func (c *Conn) lookup(sql string) (Response, bool) {
	for _, r := range c.Responses {
		if strings.Contains(sql, r.Match) {
			return r, true
		}
	}
	return Response{}, false
}

// Tx is a transaction on Conn. Methods the stages do not use panic through the
// nil embedded interface.
type Tx struct {
	pgx.Tx
	conn *Conn
	done bool
}

// Exec records sql on the parent connection.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.done {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	return t.conn.Exec(ctx, sql, args...)
}

// QueryRow records sql on the parent connection.
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.done {
		return row{err: pgx.ErrTxClosed}
	}
	return t.conn.QueryRow(ctx, sql, args...)
}

// Commit ends the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.conn.record("COMMIT")
	if r, ok := t.conn.lookup("COMMIT"); ok && r.Err != nil {
		return r.Err
	}
	t.conn.mu.Lock()
	t.conn.committed++
	t.conn.mu.Unlock()
	return nil
}

// Rollback ends the transaction. After Commit it returns pgx.ErrTxClosed.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.conn.record("ROLLBACK")
	t.conn.mu.Lock()
	t.conn.rolledBack++
	t.conn.mu.Unlock()
	return nil
}

type row struct {
	values []any
	err    error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("pgtest: scan %d destinations from %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		if err := assign(d, r.values[i]); err != nil {
			return fmt.Errorf("pgtest: column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return errors.New("destination is not a non-nil pointer")
	}
	target := dv.Elem()

	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case target.Kind() == reflect.Pointer && v.Type().ConvertibleTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(v.Convert(target.Type().Elem()))
		target.Set(p)
	case v.Type().ConvertibleTo(target.Type()):
		target.Set(v.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}

// Connector hands out Conns by database name, taken from the path of the
// connection string.
type Connector struct {
	// Conns maps database name to connection. A missing name gets a fresh Conn.
	Conns map[string]*Conn
	// Fail, when set, is consulted before each connect with the 1-based attempt.
	Fail func(attempt int) error

	mu       sync.Mutex
	attempts int
	targets  []string
}

// Connect returns the scripted connection for the database in connString.
func (c *Connector) Connect(ctx context.Context, connString string) (database.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts++
	if c.Fail != nil {
		if err := c.Fail(c.attempts); err != nil {
			return nil, err
		}
	}

	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	name := cfg.Database
	c.targets = append(c.targets, name)

	if c.Conns == nil {
		c.Conns = make(map[string]*Conn)
	}
	conn, ok := c.Conns[name]
	if !ok {
		conn = &Conn{Name: name}
		c.Conns[name] = conn
	}
	return conn, nil
}

// Attempts returns the number of Connect calls.
func (c *Connector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Targets returns the database names connected to, in order.
func (c *Connector) Targets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.targets...)
}

// PgError builds a server error with the given SQLSTATE.
func PgError(code, message string) error {
	return &pgconn.PgError{Severity: "ERROR", Code: code, Message: message}
}
