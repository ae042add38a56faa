// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoDocument is returned by page and zoom operations before a
	// document has been loaded.
	ErrNoDocument = errors.New("no document loaded")
	// ErrPageOutOfRange is returned for page numbers outside 1..TotalPages.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrSuperseded is returned when a newer request replaced this one
	// before its result could be applied. The view is still consistent.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrUnknownTrigger is returned by Dispatch for unrecognized triggers.
	ErrUnknownTrigger = errors.New("unknown trigger")
	// ErrNoPages is the cause of a LoadError for documents without pages.
	ErrNoPages = errors.New("document has no pages")
	// ErrFrameTooLarge is the cause of a RenderError when the page at the
	// requested scale exceeds Config.MaxOutputPixels.
	ErrFrameTooLarge = errors.New("frame exceeds the output pixel limit")
)

// LoadError reports that a document could not be fetched or parsed.
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load document %q: %v", e.ID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports that a page could not be rasterized at a scale.
type RenderError struct {
	Page  int
	Scale float64
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d at scale %g: %v", e.Page, e.Scale, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// StatusError is returned by HTTPSource for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}
