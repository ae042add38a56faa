// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sassoftware/viya-pdf-viewer/appconfig"
	"github.com/sassoftware/viya-pdf-viewer/cache"
	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/store"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*appconfig.Config, error) {
	cfg, err := appconfig.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pdfview config init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogFunc writes log lines to w. Debug lines are dropped unless debug
// is set.
func newLogFunc(w io.Writer, debug bool) logger.LogFunc {
	l := log.New(w, "pdfview ", log.LstdFlags)
	return func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		if level == logger.DebugLevel && !debug {
			return
		}
		var b strings.Builder
		for i := 0; i+1 < len(keyvals); i += 2 {
			fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
		}
		l.Printf("%-5s %s%s", strings.ToUpper(string(level)), msg, b.String())
	}
}

// installLogger routes the logger package to stderr and returns the
// function used.
func installLogger(cfg *appconfig.Config) logger.LogFunc {
	f := newLogFunc(os.Stderr, verbose || cfg.Debug)
	logger.SetLogger(f)
	return f
}

func openStore(ctx context.Context, cfg appconfig.StoreConfig) (store.Store, error) {
	if cfg.Driver == "postgres" {
		pg, err := store.OpenPostgres(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	db, err := store.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// openCache returns the configured frame cache, or nil when caching is
// off. The returned func releases it.
func openCache(ctx context.Context, cfg appconfig.CacheConfig) (cache.FrameCache, func() error, error) {
	noop := func() error { return nil }
	switch {
	case cfg.RedisURL != "":
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	case cfg.MemoryEntries > 0:
		return cache.NewMemory(cfg.MemoryEntries), noop, nil
	}
	return nil, noop, nil
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
