// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

//go:build integration

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// CapturedRequest is one request seen by an ExtractServer.
type CapturedRequest struct {
	Method    string
	Path      string
	UserAgent string
}

// ExtractServer serves a fixed extract body and captures every request.
type ExtractServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	captures []CapturedRequest

	// Body is served for GET requests.
	Body []byte

	// ResponseStatus is the HTTP status code to return (default: 200).
	ResponseStatus int
}

// NewExtractServer starts a server for body. It is closed with the test.
func NewExtractServer(t *testing.T, body []byte) *ExtractServer {
	t.Helper()

	es := &ExtractServer{Body: body, ResponseStatus: http.StatusOK}
	es.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		es.mu.Lock()
		es.captures = append(es.captures, CapturedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			UserAgent: r.UserAgent(),
		})
		status := es.ResponseStatus
		es.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(es.Body)))
		w.Write(es.Body) //nolint:errcheck
	}))
	t.Cleanup(es.Server.Close)

	return es
}

// URL returns the download URL for name.
func (es *ExtractServer) URL(name string) string {
	return es.Server.URL + "/" + name
}

// Requests returns a copy of the captured requests.
func (es *ExtractServer) Requests() []CapturedRequest {
	es.mu.Lock()
	defer es.mu.Unlock()
	return append([]CapturedRequest(nil), es.captures...)
}
