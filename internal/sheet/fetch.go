package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"controlling_resistances/internal/logger"
)

const defaultFetchTimeout = 10 * time.Second

// ErrNoSource is returned when neither the download nor the cache worked.
var ErrNoSource = errors.New("no sheet source available")

// Fetcher downloads a published CSV sheet and keeps a local copy so runs can
// continue offline.
type Fetcher struct {
	client *http.Client
	log    *logger.Logger
}

// NewFetcher builds a fetcher; timeout <= 0 uses 10 seconds.
func NewFetcher(timeout time.Duration, log *logger.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, log: log}
}

// Rows returns the parsed rows of the sheet at url. A successful download
// refreshes cachePath; any failure falls back to the cached copy.
func (f *Fetcher) Rows(ctx context.Context, url, cachePath string) ([][]string, error) {
	if url == "" {
		return ReadFile(cachePath)
	}

	rows, err := f.download(ctx, url, cachePath)
	if err == nil {
		return rows, nil
	}
	if f.log != nil {
		f.log.Warnw("sheet_download_failed", "url", url, "err", err)
	}

	cached, cacheErr := ReadFile(cachePath)
	if cacheErr != nil {
		return nil, fmt.Errorf("%w: download: %v; cache %q: %v", ErrNoSource, err, cachePath, cacheErr)
	}
	if f.log != nil {
		f.log.Infow("sheet_using_cache", "path", cachePath)
	}
	return cached, nil
}

func (f *Fetcher) download(ctx context.Context, url, cachePath string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	rows, err := ReadRows(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := os.WriteFile(cachePath, body, 0o644); err != nil && f.log != nil {
			f.log.Warnw("sheet_cache_write_failed", "path", cachePath, "err", err)
		}
	}
	return rows, nil
}

// ReadFile parses a CSV file from disk.
func ReadFile(path string) ([][]string, error) {
	if path == "" {
		return nil, errors.New("no file path given")
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadRows(fh)
}

// ReadRows parses CSV text. Rows may have different widths.
func ReadRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}
