// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package logging

import "strings"

// Mask replaces secret values in logs and error messages.
const Mask = "********"

// sensitiveFlags are command-line flags whose following argument is a secret.
var sensitiveFlags = map[string]bool{
	"--password": true,
	"-W":         true,
	"--passwd":   true,
	"--secret":   true,
}

// sensitiveKeys are key names whose values are secrets.
var sensitiveKeys = map[string]bool{
	"password":       true,
	"admin_password": true,
	"passwd":         true,
	"secret":         true,
	"pgpassword":     true,
	"token":          true,
}

// RedactArgs returns a copy of args with the value of every password-like flag
// masked. Both "--password value" and "--password=value" forms are handled.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out); i++ {
		arg := out[i]
		if name, _, ok := strings.Cut(arg, "="); ok && sensitiveFlags[name] {
			out[i] = name + "=" + Mask
			continue
		}
		if sensitiveFlags[arg] && i+1 < len(out) {
			out[i+1] = Mask
			i++
		}
	}
	return out
}

// Redact replaces every occurrence of each non-empty secret in s with Mask.
func Redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Mask)
	}
	return s
}

// SanitizeValue masks value when key names a secret.
func SanitizeValue(key, value string) string {
	if value == "" {
		return ""
	}
	if sensitiveKeys[strings.ToLower(key)] {
		return Mask
	}
	return value
}

// SanitizeEnv masks the value of secret entries in a KEY=VALUE environment list.
func SanitizeEnv(env []string) []string {
	out := make([]string, len(env))
	for i, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			out[i] = kv
			continue
		}
		out[i] = k + "=" + SanitizeValue(k, v)
	}
	return out
}
