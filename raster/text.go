// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package raster

import (
	"context"
	"errors"
	"image"
	"math"
	"strings"

	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/pdf"
)

// A Glyph is one shown character code with its decoded text. The box is in
// page pixels at scale 1 with the origin at the top-left corner of the
// displayed page, like the frames Render paints.
type Glyph struct {
	Text string
	Min  pdf.Point
	Max  pdf.Point
	Size float64 // font size in page pixels
}

// Text returns the glyphs shown by the page content in content order.
// Invisible text (render mode 3) is included; scanned pages carry their
// recognized text that way. Whitespace codes only advance the position.
func Text(ctx context.Context, page pdf.Page) ([]Glyph, error) {
	if page.V.IsNull() {
		return nil, errors.New("page not found")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := page.Size()
	r := &renderer{
		ctx:     ctx,
		size:    image.Pt(int(math.Ceil(w)), int(math.Ceil(h))),
		page:    page,
		collect: true,
	}
	err := r.runPage(1)
	logger.Debug("page text collected", "ops", r.ops, "glyphs", len(r.glyphs))
	return r.glyphs, err
}

// addGlyph records the code shown with the text rendering matrix trm and
// horizontal advance w0 in text space units.
func (r *renderer) addGlyph(trm pdf.Matrix, code string, w0 float64) {
	if r.g.enc == nil {
		r.g.enc = r.g.font.Encoder()
	}
	text := r.g.enc.Decode(code)
	if strings.TrimSpace(text) == "" {
		return
	}
	if w0 <= 0 {
		w0 = 0.5
	}
	// the em box from the descender to the ascender
	pts := quad(trm, 0, -0.2, w0, 0.8)
	gl := Glyph{Text: text, Min: pdf.Point{X: pts[0].x, Y: pts[0].y}, Max: pdf.Point{X: pts[0].x, Y: pts[0].y}}
	for _, p := range pts[1:] {
		gl.Min.X, gl.Min.Y = math.Min(gl.Min.X, p.x), math.Min(gl.Min.Y, p.y)
		gl.Max.X, gl.Max.Y = math.Max(gl.Max.X, p.x), math.Max(gl.Max.Y, p.y)
	}
	gl.Size = math.Hypot(trm[1][0], trm[1][1])
	r.glyphs = append(r.glyphs, gl)
}
