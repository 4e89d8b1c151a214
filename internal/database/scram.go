// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package database

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// SCRAM parameters matching the PostgreSQL server defaults.
const (
	ScramIterations = 4096
	ScramSaltLen    = 16
)

// ScramVerifier returns the SCRAM-SHA-256 verifier PostgreSQL stores for
// password, reading a fresh salt from rand.
//
// Format: SCRAM-SHA-256$<iterations>:<salt>$<StoredKey>:<ServerKey>
func ScramVerifier(password string, rand io.Reader) (string, error) {
	salt := make([]byte, ScramSaltLen)
	if _, err := io.ReadFull(rand, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return scramVerifier(password, salt, ScramIterations), nil
}

func scramVerifier(password string, salt []byte, iterations int) string {
	salted := pbkdf2.Key([]byte(password), salt, iterations, sha256.Size, sha256.New)

	clientKey := hmacSHA256(salted, "Client Key")
	storedKey := sha256.Sum256(clientKey)
	serverKey := hmacSHA256(salted, "Server Key")

	enc := base64.StdEncoding
	return fmt.Sprintf("SCRAM-SHA-256$%d:%s$%s:%s",
		iterations,
		enc.EncodeToString(salt),
		enc.EncodeToString(storedKey[:]),
		enc.EncodeToString(serverKey),
	)
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}
