// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		ZoomFactor:            1.15,
		MinScale:              0.2,
		MaxScale:              8,
		InitialScale:          1,
		MaxOutputPixels:       1 << 24,
		MaxConcurrentRenders:  8,
		MaxWorkersPerDocument: 2,
		RenderTimeout:         5 * time.Second,
		FetchTimeout:          5 * time.Second,
		MaxDocumentBytes:      10 << 20,
		ParsingMode:           BestEffort,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		shouldErr bool
	}{
		{
			name:      "valid config",
			mutate:    func(*Config) {},
			shouldErr: false,
		},
		{
			name:      "zoom factor must enlarge",
			mutate:    func(c *Config) { c.ZoomFactor = 1 },
			shouldErr: true,
		},
		{
			name:      "min scale must be positive",
			mutate:    func(c *Config) { c.MinScale = 0 },
			shouldErr: true,
		},
		{
			name:      "initial scale below min scale",
			mutate:    func(c *Config) { c.InitialScale = 0.1 },
			shouldErr: true,
		},
		{
			name:      "max scale below min scale",
			mutate:    func(c *Config) { c.MaxScale = 0.1 },
			shouldErr: true,
		},
		{
			name:      "missing max scale",
			mutate:    func(c *Config) { c.MaxScale = 0 },
			shouldErr: true,
		},
		{
			name:      "initial scale above max scale",
			mutate:    func(c *Config) { c.InitialScale = 9 },
			shouldErr: true,
		},
		{
			name:      "invalid MaxOutputPixels",
			mutate:    func(c *Config) { c.MaxOutputPixels = 0 },
			shouldErr: true,
		},
		{
			name:      "invalid MaxConcurrentRenders (too low)",
			mutate:    func(c *Config) { c.MaxConcurrentRenders = 0 },
			shouldErr: true,
		},
		{
			name:      "invalid MaxWorkersPerDocument (too high)",
			mutate:    func(c *Config) { c.MaxWorkersPerDocument = 100 },
			shouldErr: true,
		},
		{
			name:      "missing RenderTimeout",
			mutate:    func(c *Config) { c.RenderTimeout = 0 },
			shouldErr: true,
		},
		{
			name:      "missing FetchTimeout",
			mutate:    func(c *Config) { c.FetchTimeout = 0 },
			shouldErr: true,
		},
		{
			name:      "invalid MaxDocumentBytes",
			mutate:    func(c *Config) { c.MaxDocumentBytes = 0 },
			shouldErr: true,
		},
		{
			name:      "invalid ParsingMode",
			mutate:    func(c *Config) { c.ParsingMode = "invalid-mode" },
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.shouldErr {
				assert.Error(t, err, "expected validation error")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate(), "default config is valid")
	assert.Equal(t, 1.15, cfg.ZoomFactor)
	assert.Equal(t, 0.2, cfg.MinScale)
	assert.Equal(t, 1.25, cfg.InitialScale)
	assert.Equal(t, 10.0, cfg.MaxScale)
	assert.Equal(t, BestEffort, cfg.ParsingMode)
}
