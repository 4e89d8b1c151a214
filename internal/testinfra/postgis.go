// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomtom215/roadbed/internal/config"
)

const (
	// DefaultPostGISImage carries PostgreSQL 16 with PostGIS and pgRouting.
	DefaultPostGISImage = "pgrouting/pgrouting:16-3.4-3.6.1"

	// DefaultPostGISPort is the server port inside the container.
	DefaultPostGISPort = "5432"

	// DefaultPassword is the superuser password set in the container.
	DefaultPassword = "roadbed-test"

	// DefaultDatabase is the routing database created at container start.
	DefaultDatabase = "kitchener_routing"
)

// PostGISContainer represents a running PostGIS/pgRouting server.
type PostGISContainer struct {
	testcontainers.Container

	// Config points at the routing database as the postgres superuser.
	Config config.DatabaseConfig
}

// PostGISOption configures the container.
type PostGISOption func(*postgisConfig)

type postgisConfig struct {
	image        string
	password     string
	database     string
	seedSQL      []string
	startTimeout time.Duration
}

// WithPostGISImage sets a custom image.
func WithPostGISImage(image string) PostGISOption {
	return func(c *postgisConfig) {
		c.image = image
	}
}

// WithPassword sets the superuser password.
func WithPassword(password string) PostGISOption {
	return func(c *postgisConfig) {
		c.password = password
	}
}

// WithDatabase sets the database created at startup.
func WithDatabase(name string) PostGISOption {
	return func(c *postgisConfig) {
		c.database = name
	}
}

// WithSeedSQL runs script against the database once the server is ready.
// Scripts run in the order given.
func WithSeedSQL(script string) PostGISOption {
	return func(c *postgisConfig) {
		c.seedSQL = append(c.seedSQL, script)
	}
}

// WithStartTimeout sets the timeout for waiting for the server to start.
func WithStartTimeout(timeout time.Duration) PostGISOption {
	return func(c *postgisConfig) {
		c.startTimeout = timeout
	}
}

// NewPostGISContainer creates and starts a PostGIS/pgRouting container.
func NewPostGISContainer(ctx context.Context, opts ...PostGISOption) (*PostGISContainer, error) {
	cfg := &postgisConfig{
		image:        DefaultPostGISImage,
		password:     DefaultPassword,
		database:     DefaultDatabase,
		startTimeout: 90 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultPostGISPort + "/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": cfg.password,
			"POSTGRES_DB":       cfg.database,
			"TZ":                "UTC",
		},
		// The entrypoint starts a temporary server for init scripts first,
		// so the ready line appears twice.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(DefaultPostGISPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, DefaultPostGISPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse mapped port %q: %w", port.Port(), err)
	}

	pg := &PostGISContainer{
		Container: container,
		Config: config.DatabaseConfig{
			Host:           host,
			Port:           portNum,
			Name:           cfg.database,
			AdminUser:      "postgres",
			AdminPassword:  cfg.password,
			OSUser:         "postgres",
			ServiceName:    "postgresql",
			ConnectTimeout: 5 * time.Second,
			Readiness: config.ReadinessConfig{
				Interval: 500 * time.Millisecond,
				Timeout:  30 * time.Second,
			},
		},
	}

	for i, script := range cfg.seedSQL {
		if err := pg.Exec(ctx, script); err != nil {
			container.Terminate(ctx) //nolint:errcheck
			return nil, fmt.Errorf("seed script %d: %w", i+1, err)
		}
	}

	return pg, nil
}

// Exec runs a script against the routing database. Multiple statements are
// allowed because no arguments are bound.
func (c *PostGISContainer) Exec(ctx context.Context, script string) error {
	conn, err := pgx.Connect(ctx, c.Config.ConnString(c.Config.Name))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, script)
	return err
}

// QueryFloat returns a single float column, or nil when the value is NULL.
func (c *PostGISContainer) QueryFloat(ctx context.Context, query string, args ...any) (*float64, error) {
	conn, err := pgx.Connect(ctx, c.Config.ConnString(c.Config.Name))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	var v *float64
	if err := conn.QueryRow(ctx, query, args...).Scan(&v); err != nil {
		return nil, err
	}
	return v, nil
}
