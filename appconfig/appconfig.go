// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package appconfig loads the pdfview command configuration from a YAML file
// with PDFVIEW_ environment overrides.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/sassoftware/viya-pdf-viewer/server"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "pdfview.yml"

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore: PDFVIEW_STORE__DRIVER=postgres sets store.driver.
const EnvPrefix = "PDFVIEW_"

// Config is the top-level pdfview configuration.
type Config struct {
	Server ServerConfig `yaml:"server" koanf:"server"`
	Store  StoreConfig  `yaml:"store" koanf:"store"`
	Cache  CacheConfig  `yaml:"cache" koanf:"cache"`
	Viewer ViewerConfig `yaml:"viewer" koanf:"viewer"`
	Debug  bool         `yaml:"debug" koanf:"debug"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" koanf:"addr" validate:"required"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" koanf:"max_upload_bytes" validate:"min=1"`
	RequestTimeout  time.Duration `yaml:"request_timeout" koanf:"request_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout" validate:"min=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins,omitempty" koanf:"allowed_origins"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver string `yaml:"driver" koanf:"driver" validate:"oneof=sqlite postgres"`
	// Path is the SQLite database file.
	Path string `yaml:"path" koanf:"path" validate:"required_if=Driver sqlite"`
	// URL is the Postgres connection string.
	URL string `yaml:"url" koanf:"url" validate:"required_if=Driver postgres"`
}

// CacheConfig configures the rendered frame cache. An empty RedisURL with
// MemoryEntries of zero disables caching.
type CacheConfig struct {
	RedisURL      string        `yaml:"redis_url" koanf:"redis_url"`
	TTL           time.Duration `yaml:"ttl" koanf:"ttl" validate:"min=0"`
	MemoryEntries int           `yaml:"memory_entries" koanf:"memory_entries" validate:"min=0"`
}

// ViewerConfig mirrors the renderer settings of viewer.Config.
type ViewerConfig struct {
	ZoomFactor            float64       `yaml:"zoom_factor" koanf:"zoom_factor"`
	MinScale              float64       `yaml:"min_scale" koanf:"min_scale"`
	MaxScale              float64       `yaml:"max_scale" koanf:"max_scale"`
	InitialScale          float64       `yaml:"initial_scale" koanf:"initial_scale"`
	MaxOutputPixels       int           `yaml:"max_output_pixels" koanf:"max_output_pixels"`
	MaxConcurrentRenders  int           `yaml:"max_concurrent_renders" koanf:"max_concurrent_renders"`
	MaxWorkersPerDocument int           `yaml:"max_workers_per_document" koanf:"max_workers_per_document"`
	RenderTimeout         time.Duration `yaml:"render_timeout" koanf:"render_timeout"`
	FetchTimeout          time.Duration `yaml:"fetch_timeout" koanf:"fetch_timeout"`
	MaxDocumentBytes      int64         `yaml:"max_document_bytes" koanf:"max_document_bytes"`
	ParsingMode           string        `yaml:"parsing_mode" koanf:"parsing_mode"`
}

// DefaultConfig returns the configuration used for keys that are not set.
func DefaultConfig() *Config {
	srv := server.DefaultConfig()
	v := viewer.NewDefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            srv.Addr,
			MaxUploadBytes:  srv.MaxUploadBytes,
			RequestTimeout:  srv.RequestTimeout,
			ShutdownTimeout: srv.ShutdownTimeout,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join("data", "documents.db"),
		},
		Cache: CacheConfig{
			TTL:           time.Hour,
			MemoryEntries: 256,
		},
		Viewer: ViewerConfig{
			ZoomFactor:            v.ZoomFactor,
			MinScale:              v.MinScale,
			MaxScale:              v.MaxScale,
			InitialScale:          v.InitialScale,
			MaxOutputPixels:       v.MaxOutputPixels,
			MaxConcurrentRenders:  v.MaxConcurrentRenders,
			MaxWorkersPerDocument: v.MaxWorkersPerDocument,
			RenderTimeout:         v.RenderTimeout,
			FetchTimeout:          v.FetchTimeout,
			MaxDocumentBytes:      v.MaxDocumentBytes,
			ParsingMode:           string(v.ParsingMode),
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PDFVIEW_*). A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// envKey maps PDFVIEW_CACHE__REDIS_URL to cache.redis_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks the application settings and the viewer settings they
// produce.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if err := c.ViewerConfig().Validate(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// ViewerConfig converts the viewer section into a library config.
func (c *Config) ViewerConfig() *viewer.Config {
	v := c.Viewer
	return &viewer.Config{
		ZoomFactor:            v.ZoomFactor,
		MinScale:              v.MinScale,
		MaxScale:              v.MaxScale,
		InitialScale:          v.InitialScale,
		MaxOutputPixels:       v.MaxOutputPixels,
		MaxConcurrentRenders:  v.MaxConcurrentRenders,
		MaxWorkersPerDocument: v.MaxWorkersPerDocument,
		RenderTimeout:         v.RenderTimeout,
		FetchTimeout:          v.FetchTimeout,
		MaxDocumentBytes:      v.MaxDocumentBytes,
		ParsingMode:           viewer.ParsingMode(v.ParsingMode),
		DebugOn:               c.Debug,
	}
}

// ServerConfig converts the server section.
func (c *Config) ServerConfig() server.Config {
	s := c.Server
	return server.Config{
		Addr:            s.Addr,
		MaxUploadBytes:  s.MaxUploadBytes,
		RequestTimeout:  s.RequestTimeout,
		AllowedOrigins:  s.AllowedOrigins,
		ShutdownTimeout: s.ShutdownTimeout,
	}
}
