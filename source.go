// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sassoftware/viya-pdf-viewer/logger"
)

// Source fetches the raw bytes of a document by identifier.
type Source interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id string) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context, id string) ([]byte, error) { return f(ctx, id) }

// HTTPSource fetches documents with GET {BaseURL}/pdf/{id}. It revalidates
// with If-None-Match and serves a 304 from its last copy.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
	// Timeout bounds each fetch; zero means no limit beyond ctx.
	Timeout time.Duration
	// MaxBytes caps the response body; zero means no cap.
	MaxBytes int64

	mu      sync.Mutex
	entries map[string]sourceEntry
}

type sourceEntry struct {
	etag string
	data []byte
}

// NewHTTPSource returns a source for baseURL limited by cfg.
func NewHTTPSource(baseURL string, cfg *Config) *HTTPSource {
	return &HTTPSource{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   http.DefaultClient,
		Timeout:  cfg.FetchTimeout,
		MaxBytes: cfg.MaxDocumentBytes,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	u := strings.TrimRight(s.BaseURL, "/") + "/pdf/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	s.mu.Lock()
	cached, hasCached := s.entries[id]
	s.mu.Unlock()
	if hasCached {
		req.Header.Set("If-None-Match", cached.etag)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && hasCached {
		logger.Debug("document not modified", "id", id)
		return cached.data, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body := io.Reader(resp.Body)
	if s.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, s.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, fmt.Errorf("document %q exceeds %d bytes", id, s.MaxBytes)
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		s.mu.Lock()
		if s.entries == nil {
			s.entries = make(map[string]sourceEntry)
		}
		s.entries[id] = sourceEntry{etag: etag, data: data}
		s.mu.Unlock()
	}
	logger.Debug("document fetched", "id", id, "bytes", len(data), "status", resp.StatusCode)
	return data, nil
}
