// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sassoftware/viya-pdf-viewer/cache"
	"github.com/sassoftware/viya-pdf-viewer/logger"
)

type ParsingMode string

const (
	Strict     ParsingMode = "strict"
	BestEffort ParsingMode = "best-effort"
)

type Config struct {
	ZoomFactor            float64       `validate:"gt=1"`
	MinScale              float64       `validate:"gt=0"`
	MaxScale              float64       `validate:"gtfield=MinScale"`
	InitialScale          float64       `validate:"gtefield=MinScale,ltefield=MaxScale"`
	MaxOutputPixels       int           `validate:"min=1"`
	MaxConcurrentRenders  int           `validate:"min=1,max=64"`
	MaxWorkersPerDocument int           `validate:"min=1,max=16"`
	RenderTimeout         time.Duration `validate:"required"`
	FetchTimeout          time.Duration `validate:"required"`
	MaxDocumentBytes      int64         `validate:"min=1"`
	ParsingMode           ParsingMode   `validate:"oneof=strict best-effort"`
	DebugOn               bool
	Logger                logger.LogFunc
	// Cache holds encoded frames when set.
	Cache cache.FrameCache `validate:"-"`
}

func NewDefaultConfig() *Config {
	return &Config{
		ZoomFactor:            1.15,
		MinScale:              0.2,
		MaxScale:              10,
		InitialScale:          1.25,
		MaxOutputPixels:       1 << 26,
		MaxConcurrentRenders:  4,
		MaxWorkersPerDocument: 2,
		RenderTimeout:         10 * time.Second,
		FetchTimeout:          30 * time.Second,
		MaxDocumentBytes:      64 << 20,
		ParsingMode:           BestEffort,
		DebugOn:               false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}
