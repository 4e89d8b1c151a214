// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

/*
Package database provisions the PostgreSQL server and routing database.

The DatabaseProvisioner stage runs an ordered sub-sequence:

 1. Set the administrative credential through psql over the local socket. The
    password is sent as a SCRAM-SHA-256 verifier computed client-side, so the
    plaintext never reaches argv or server statement logs.
 2. Restart and enable the service with systemctl.
 3. Poll until the server accepts connections. The poll uses a constant
    interval and gives up after the readiness timeout with
    models.ErrReadinessTimeout. Cancelling the run context stops it at once.
 4. Create the routing database. An existing database is logged and ignored.
 5. Install the PostGIS and pgRouting extensions and log their versions.

Connections go through the Connector and Conn interfaces, which *pgx.Conn
satisfies. The other SQL stages (importer check, index, cost, health) use the
same interfaces, and pgtest provides a scripted fake for them.
*/
package database
