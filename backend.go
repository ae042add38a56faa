// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"context"
	"image/draw"
)

// Size is a page size in PDF points at scale 1.
type Size struct {
	Width, Height float64
}

// Viewport describes how a page is mapped onto the output surface.
type Viewport struct {
	Scale float64
}

// Backend parses raw document bytes into a page collection.
type Backend interface {
	Parse(ctx context.Context, data []byte) (Document, error)
}

// Document is a parsed document. Pages are numbered from 1.
type Document interface {
	PageCount() int
	Page(ctx context.Context, n int) (Page, error)
}

// Page is a single page of a Document.
type Page interface {
	// NativeSize is the displayed page size at scale 1, after rotation.
	NativeSize() Size
	// Render paints the page into dst, whose bounds are the output size
	// for vp.
	Render(ctx context.Context, dst draw.Image, vp Viewport) error
}
