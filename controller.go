// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package viewer is the core of a paginated PDF viewer. A Controller loads a
// document from a Source, tracks the current page and zoom, and presents
// pages rendered by a Backend on a Surface.
package viewer

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/sassoftware/viya-pdf-viewer/logger"
)

// Status is the load state of a Controller.
type Status int

const (
	Unloaded Status = iota
	Loading
	Loaded
)

func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ViewState is a snapshot of what the controller is showing. It reflects
// the most recently requested view, even when that render failed.
type ViewState struct {
	Status         Status
	DocumentID     string
	CurrentPage    int
	TotalPages     int
	Scale          float64
	ContainerWidth int
	OutputWidth    int
	OutputHeight   int
}

// Controller owns one viewing session. Its methods are safe for concurrent
// use; overlapping renders are resolved in favour of the last one issued.
type Controller struct {
	cfg     *Config
	src     Source
	backend Backend
	surface Surface

	mu        sync.Mutex
	state     ViewState
	doc       Document
	loadSeq   uint64
	renderSeq uint64
	cancel    context.CancelFunc
}

// New returns a controller with nothing loaded.
func New(cfg *Config, src Source, backend Backend, surface Surface) (*Controller, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if src == nil || backend == nil || surface == nil {
		return nil, fmt.Errorf("source, backend and surface are required")
	}
	return &Controller{
		cfg:     cfg,
		src:     src,
		backend: backend,
		surface: surface,
		state:   ViewState{Status: Unloaded, Scale: cfg.InitialScale},
	}, nil
}

// State returns a snapshot of the view state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load fetches and parses the document id and shows its first page fitted
// to the container width. On failure the previous document stays loaded
// and a *LoadError is returned.
func (c *Controller) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.state.Status = Loading
	c.mu.Unlock()
	logger.Debug("loading document", "id", id)

	doc, err := c.fetch(ctx, id)

	c.mu.Lock()
	if seq != c.loadSeq {
		c.mu.Unlock()
		logger.Debug("load superseded", "id", id)
		return ErrSuperseded
	}
	if err != nil {
		if c.doc != nil {
			c.state.Status = Loaded
		} else {
			c.state.Status = Unloaded
		}
		c.mu.Unlock()
		return &LoadError{ID: id, Err: err}
	}
	// renders of the previous document must not present over this one
	c.renderSeq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.doc = doc
	c.state.Status = Loaded
	c.state.DocumentID = id
	c.state.CurrentPage = 1
	c.state.TotalPages = doc.PageCount()
	c.mu.Unlock()
	logger.Info("document loaded", "id", id, "pages", doc.PageCount())

	return c.RenderPage(ctx, 1, true)
}

func (c *Controller) fetch(ctx context.Context, id string) (Document, error) {
	data, err := c.src.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := c.backend.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	if doc.PageCount() < 1 {
		return nil, ErrNoPages
	}
	return doc, nil
}

// RenderPage shows page n. With fit, the scale is recomputed so the page
// width matches the container width.
func (c *Controller) RenderPage(ctx context.Context, n int, fit bool) error {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	if n < 1 || n > c.state.TotalPages {
		total := c.state.TotalPages
		c.mu.Unlock()
		return fmt.Errorf("page %d of %d: %w", n, total, ErrPageOutOfRange)
	}
	doc := c.doc
	c.state.CurrentPage = n
	scale, width := c.state.Scale, c.state.ContainerWidth
	total := c.state.TotalPages

	c.renderSeq++
	seq := c.renderSeq
	if c.cancel != nil {
		c.cancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	page, err := doc.Page(rctx, n)
	if err != nil {
		return c.renderFailed(seq, n, scale, err)
	}
	size := page.NativeSize()
	if fit {
		scale = c.fitScale(size, width, scale)
	}
	w, h, err := outputSize(size, scale, c.cfg.MaxOutputPixels)
	if err != nil {
		return c.renderFailed(seq, n, scale, err)
	}

	c.mu.Lock()
	if seq != c.renderSeq {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state.Scale = scale
	c.state.OutputWidth, c.state.OutputHeight = w, h
	c.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := page.Render(rctx, img, Viewport{Scale: scale}); err != nil {
		return c.renderFailed(seq, n, scale, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.renderSeq {
		logger.Debug("dropping superseded frame", "page", n, "scale", scale)
		return ErrSuperseded
	}
	frame := Frame{Page: n, TotalPages: total, Scale: scale, Image: img}
	if err := c.surface.Present(frame); err != nil {
		return &RenderError{Page: n, Scale: scale, Err: fmt.Errorf("present: %w", err)}
	}
	logger.Debug("page presented", "page", frame.Label(), "scale", scale, "width", w, "height", h)
	return nil
}

// fitScale returns the scale that makes the page as wide as the container,
// or current when the container width is unknown.
func (c *Controller) fitScale(size Size, width int, current float64) float64 {
	if width <= 0 || size.Width <= 0 {
		return current
	}
	return c.clamp(float64(width) / size.Width)
}

// outputSize is the pixel size of a page at scale. It fails with
// ErrFrameTooLarge instead of returning more than limit pixels.
func outputSize(size Size, scale float64, limit int) (int, int, error) {
	fw, fh := math.Floor(scale*size.Width), math.Floor(scale*size.Height)
	lim := float64(limit)
	if !(fw >= 0 && fh >= 0 && fw <= lim && fh <= lim && fw*fh <= lim) {
		return 0, 0, fmt.Errorf("%gx%g pixels: %w", fw, fh, ErrFrameTooLarge)
	}
	return int(fw), int(fh), nil
}

func (c *Controller) clamp(s float64) float64 {
	return math.Min(math.Max(s, c.cfg.MinScale), c.cfg.MaxScale)
}

func (c *Controller) renderFailed(seq uint64, n int, scale float64, err error) error {
	c.mu.Lock()
	latest := seq == c.renderSeq
	c.mu.Unlock()
	if !latest {
		return ErrSuperseded
	}
	return &RenderError{Page: n, Scale: scale, Err: err}
}

// Previous shows the previous page; it does nothing on the first page.
func (c *Controller) Previous(ctx context.Context) error {
	return c.step(ctx, -1)
}

// Next shows the next page; it does nothing on the last page.
func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, 1)
}

func (c *Controller) step(ctx context.Context, delta int) error {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	n := c.state.CurrentPage + delta
	if n < 1 || n > c.state.TotalPages {
		c.mu.Unlock()
		return nil
	}
	c.state.CurrentPage = n
	c.mu.Unlock()
	return c.RenderPage(ctx, n, false)
}

// ZoomIn multiplies the scale by the zoom factor, not going above the
// maximum scale, and re-renders.
func (c *Controller) ZoomIn(ctx context.Context) error {
	return c.zoom(ctx, func(s float64) float64 { return math.Min(s*c.cfg.ZoomFactor, c.cfg.MaxScale) })
}

// ZoomOut divides the scale by the zoom factor, not going below the
// minimum scale, and re-renders.
func (c *Controller) ZoomOut(ctx context.Context) error {
	return c.zoom(ctx, func(s float64) float64 { return math.Max(s/c.cfg.ZoomFactor, c.cfg.MinScale) })
}

func (c *Controller) zoom(ctx context.Context, next func(float64) float64) error {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	c.state.Scale = next(c.state.Scale)
	n := c.state.CurrentPage
	c.mu.Unlock()
	return c.RenderPage(ctx, n, false)
}

// FitToWidth recomputes the scale from the container width and re-renders.
func (c *Controller) FitToWidth(ctx context.Context) error {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	n := c.state.CurrentPage
	c.mu.Unlock()
	return c.RenderPage(ctx, n, true)
}

// Resize records the container width and refits the page when it changed.
func (c *Controller) Resize(ctx context.Context, width int) error {
	c.mu.Lock()
	changed := width != c.state.ContainerWidth
	c.state.ContainerWidth = width
	loaded := c.doc != nil
	c.mu.Unlock()
	if !changed || !loaded {
		return nil
	}
	return c.FitToWidth(ctx)
}
