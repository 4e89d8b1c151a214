// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package index

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/database/pgtest"
	"github.com/tomtom215/roadbed/internal/models"
)

func testDB() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host: "localhost", Port: 5432, Name: "kitchener_routing",
		AdminUser: "postgres", AdminPassword: "pw", ConnectTimeout: 5 * time.Second,
	}
}

func TestDefinitionSQL(t *testing.T) {
	tests := []struct {
		def  Definition
		want string
	}{
		{
			def:  Definitions[0],
			want: `CREATE INDEX IF NOT EXISTS "ways_source_idx" ON "ways" ("source")`,
		},
		{
			def:  Definitions[2],
			want: `CREATE INDEX IF NOT EXISTS "ways_vertices_pgr_the_geom_idx" ON "ways_vertices_pgr" USING GIST ("the_geom")`,
		},
	}
	for _, tt := range tests {
		if got := tt.def.SQL(); got != tt.want {
			t.Errorf("SQL() = %s, want %s", got, tt.want)
		}
	}
}

func TestRunStatements(t *testing.T) {
	conn := &pgtest.Conn{}
	connector := &pgtest.Connector{Conns: map[string]*pgtest.Conn{"kitchener_routing": conn}}

	if err := New(testDB(), connector).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		`CREATE INDEX IF NOT EXISTS "ways_source_idx" ON "ways" ("source")`,
		`CREATE INDEX IF NOT EXISTS "ways_target_idx" ON "ways" ("target")`,
		`CREATE INDEX IF NOT EXISTS "ways_vertices_pgr_the_geom_idx" ON "ways_vertices_pgr" USING GIST ("the_geom")`,
		`CREATE INDEX IF NOT EXISTS "ways_the_geom_idx" ON "ways" USING GIST ("the_geom")`,
		`ANALYZE "ways"`,
		`ANALYZE "ways_vertices_pgr"`,
	}
	if got := conn.Statements(); !slices.Equal(got, want) {
		t.Errorf("statements =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if !conn.Closed() {
		t.Error("connection not closed")
	}
}

func TestRunIdempotent(t *testing.T) {
	conn := &pgtest.Conn{}
	connector := &pgtest.Connector{Conns: map[string]*pgtest.Conn{"kitchener_routing": conn}}
	b := New(testDB(), connector)

	for i := 0; i < 2; i++ {
		if err := b.Run(context.Background()); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
	}
	for _, s := range conn.Statements() {
		if strings.HasPrefix(s, "CREATE INDEX") && !strings.Contains(s, "IF NOT EXISTS") {
			t.Errorf("statement %q is not idempotent", s)
		}
	}
}

func TestRunMissingTable(t *testing.T) {
	conn := &pgtest.Conn{Responses: []pgtest.Response{
		{Match: "ways_source_idx", Err: pgtest.PgError("42P01", `relation "ways" does not exist`)},
	}}
	connector := &pgtest.Connector{Conns: map[string]*pgtest.Conn{"kitchener_routing": conn}}

	err := New(testDB(), connector).Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if models.KindOf(err) != models.KindData {
		t.Errorf("KindOf() = %s, want data", models.KindOf(err))
	}
	if n := len(conn.Statements()); n != 1 {
		t.Errorf("statements = %d, want to stop after the first failure", n)
	}
}
