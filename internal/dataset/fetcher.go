// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package dataset fetches the country-scale base extract.
//
// The extract is downloaded once. If the file exists it is used as-is with no
// freshness check and no network access. Downloads stream into a ".part"
// sibling that is renamed into place only after a complete copy, so an
// interrupted download is never mistaken for a present extract.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
	"github.com/tomtom215/roadbed/internal/models"
)

// StageName is the pipeline name of this stage.
const StageName = "DatasetFetcher"

const (
	partSuffix       = ".part"
	progressInterval = 5 * time.Second
	userAgent        = "roadbed/1.0 (+https://github.com/tomtom215/roadbed)"
)

// Fetcher is the DatasetFetcher stage.
type Fetcher struct {
	cfg    config.DatasetConfig
	client *http.Client
}

// New creates a Fetcher. A nil client uses a client without an overall
// timeout, since extracts can take many minutes; the run context bounds it.
func New(cfg config.DatasetConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{cfg: cfg, client: client}
}

// Name implements pipeline.Stage.
func (f *Fetcher) Name() string { return StageName }

// Run downloads the base extract unless it is already present.
func (f *Fetcher) Run(ctx context.Context) error {
	logger := logging.Ctx(ctx)

	info, err := os.Stat(f.cfg.Path)
	switch {
	case err == nil && info.IsDir():
		return models.EnvironmentError("check base extract", fmt.Errorf("%s is a directory", f.cfg.Path))
	case err == nil:
		logger.Info().
			Str("path", f.cfg.Path).
			Int64("bytes", info.Size()).
			Msg("Base extract already present, skipping download")
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return models.EnvironmentError("check base extract", err)
	}

	n, err := f.download(ctx)
	if err != nil {
		return models.EnvironmentError("download base extract", err)
	}

	logger.Info().Str("path", f.cfg.Path).Int64("bytes", n).Msg("Base extract downloaded")
	return nil
}

// download fetches the URL into Path via a .part file and returns the byte count.
func (f *Fetcher) download(ctx context.Context) (n int64, err error) {
	if dir := filepath.Dir(f.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create directory: %w", err)
		}
	}

	part := f.cfg.Path + partSuffix
	if err := os.Remove(part); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("remove stale partial download: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	logging.Ctx(ctx).Info().Str("url", f.cfg.URL).Msg("Downloading base extract")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", f.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("GET %s: unexpected status %s", f.cfg.URL, resp.Status)
	}

	out, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", part, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(part)
		}
	}()

	pw := &progressWriter{
		ctx:       ctx,
		total:     resp.ContentLength,
		sometimes: rate.Sometimes{Interval: progressInterval},
	}
	n, err = io.Copy(io.MultiWriter(out, pw), resp.Body)
	if err != nil {
		return n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, fmt.Errorf("download truncated: got %d of %d bytes", n, resp.ContentLength)
	}
	if n == 0 {
		return 0, errors.New("server returned an empty body")
	}

	if err = out.Sync(); err != nil {
		return n, fmt.Errorf("sync %s: %w", part, err)
	}
	if err = out.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", part, err)
	}
	if err = os.Rename(part, f.cfg.Path); err != nil {
		return n, fmt.Errorf("rename %s: %w", part, err)
	}
	return n, nil
}

// progressWriter counts bytes and logs progress at most once per interval.
type progressWriter struct {
	ctx       context.Context
	total     int64
	written   int64
	sometimes rate.Sometimes
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	metrics.RecordDownloadBytes(int64(len(b)))

	p.sometimes.Do(func() {
		event := logging.Ctx(p.ctx).Info().Int64("bytes", p.written)
		if p.total > 0 {
			event = event.Int64("total", p.total).
				Float64("percent", float64(p.written)*100/float64(p.total))
		}
		event.Msg("Download progress")
	})
	return len(b), nil
}
