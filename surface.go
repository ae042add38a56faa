// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"
)

// Frame is one rendered page ready for display.
type Frame struct {
	Page       int
	TotalPages int
	Scale      float64
	Image      *image.RGBA
}

// Label returns the page indicator text, for example "3 / 5".
func (f Frame) Label() string {
	return fmt.Sprintf("%d / %d", f.Page, f.TotalPages)
}

// Surface receives frames to display. Present is called with the
// controller lock held and must not call back into the controller.
type Surface interface {
	Present(Frame) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Frame) error

func (f SurfaceFunc) Present(fr Frame) error { return f(fr) }

// ImageSurface keeps the most recently presented frame.
type ImageSurface struct {
	mu       sync.Mutex
	frame    Frame
	has      bool
	presents int
}

func (s *ImageSurface) Present(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame, s.has = f, true
	s.presents++
	return nil
}

// Frame returns the last presented frame and whether there is one.
func (s *ImageSurface) Frame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.has
}

// Presents returns how many frames have been presented.
func (s *ImageSurface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// WritePNG encodes the last presented frame to w.
func (s *ImageSurface) WritePNG(w io.Writer) error {
	f, ok := s.Frame()
	if !ok {
		return errors.New("no frame presented")
	}
	return png.Encode(w, f.Image)
}
