// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package raster paints PDF pages into images.
//
// Vector paths are filled and stroked with golang.org/x/image/vector.
// Glyphs are drawn as filled bars sized from the font widths and images
// as flat placeholder boxes: a page keeps its layout and line work, which
// is what plan review needs, without a font or image decoder.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/pdf"
	"golang.org/x/image/vector"
)

// ErrContent wraps failures to interpret a page's content stream.
var ErrContent = errors.New("malformed page content")

// maxFormDepth bounds nested form XObjects.
const maxFormDepth = 8

// checkEvery is the number of operators between context checks.
const checkEvery = 256

var (
	imagePlaceholder = color.NRGBA{0xd0, 0xd0, 0xd0, 0xff}
	textAlpha        = uint8(0xb0)
)

// PageTransform returns the matrix that maps default user space of a page
// with the given crop box and rotation onto device pixels at scale, with
// the origin at the top-left corner of the displayed page.
func PageTransform(crop pdf.Rect, rotate int, scale float64) pdf.Matrix {
	s := scale
	x0, y0, x1, y1 := crop.Min.X, crop.Min.Y, crop.Max.X, crop.Max.Y
	switch rotate {
	case 90:
		return pdf.NewMatrix(0, s, s, 0, -s*y0, -s*x0)
	case 180:
		return pdf.NewMatrix(-s, 0, 0, s, s*x1, -s*y0)
	case 270:
		return pdf.NewMatrix(0, -s, -s, 0, s*y1, s*x1)
	}
	return pdf.NewMatrix(s, 0, 0, -s, -s*x0, s*y1)
}

// Render paints page into dst at the given scale. The page background is
// filled white first. Content outside dst is clipped.
func Render(ctx context.Context, page pdf.Page, dst draw.Image, scale float64) error {
	if page.V.IsNull() {
		return errors.New("page not found")
	}
	if scale <= 0 {
		return fmt.Errorf("invalid scale %v", scale)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	r := &renderer{
		ctx:    ctx,
		dst:    dst,
		size:   dst.Bounds().Size(),
		page:   page,
		raster: &vector.Rasterizer{},
	}
	if err := r.runPage(scale); err != nil {
		return err
	}
	logger.Debug("page rasterized", "ops", r.ops, "paths", r.paths)
	return nil
}

// runPage interprets the page content with the page transform at scale.
func (r *renderer) runPage(scale float64) error {
	r.g = newState(PageTransform(r.page.CropBox(), r.page.Rotate(), scale))
	err := r.run(r.page.V.Key("Contents"), r.page.Resources())
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrContent, err)
	}
	return nil
}

type renderer struct {
	ctx    context.Context
	dst    draw.Image
	size   image.Point
	page   pdf.Page
	raster *vector.Rasterizer

	g     gstate
	stack []gstate
	path  path
	res   pdf.Value
	depth int

	ops   int
	paths int

	// text extraction; dst is nil
	collect bool
	glyphs  []Glyph
}

func (r *renderer) run(content, res pdf.Value) error {
	prev := r.res
	r.res = res
	defer func() { r.res = prev }()
	return pdf.Interpret(content, r.do)
}

func (r *renderer) do(stk *pdf.Stack, op string) {
	r.ops++
	if r.ops%checkEvery == 0 {
		if err := r.ctx.Err(); err != nil {
			panic(err)
		}
	}
	args := stk.Args()
	if h, ok := handlers[op]; ok {
		h(r, args)
	}
}

// num returns args[i] as a float, or 0 when missing.
func num(args []pdf.Value, i int) float64 {
	if i < len(args) {
		return args[i].Float64()
	}
	return 0
}

var handlers map[string]func(*renderer, []pdf.Value)

func init() {
	handlers = map[string]func(*renderer, []pdf.Value){
		// graphics state
		"q":  func(r *renderer, a []pdf.Value) { r.save() },
		"Q":  func(r *renderer, a []pdf.Value) { r.restore() },
		"cm": (*renderer).concat,
		"w":  func(r *renderer, a []pdf.Value) { r.g.lineWidth = num(a, 0) },
		"gs": (*renderer).extGState,

		// path construction
		"m":  func(r *renderer, a []pdf.Value) { r.path.moveTo(r.g.ctm, num(a, 0), num(a, 1)) },
		"l":  func(r *renderer, a []pdf.Value) { r.path.lineTo(r.g.ctm, num(a, 0), num(a, 1)) },
		"c":  func(r *renderer, a []pdf.Value) { r.path.curveTo(r.g.ctm, num(a, 0), num(a, 1), num(a, 2), num(a, 3), num(a, 4), num(a, 5)) },
		"v":  (*renderer).curveV,
		"y":  func(r *renderer, a []pdf.Value) { r.path.curveTo(r.g.ctm, num(a, 0), num(a, 1), num(a, 2), num(a, 3), num(a, 2), num(a, 3)) },
		"h":  func(r *renderer, a []pdf.Value) { r.path.close() },
		"re": (*renderer).rect,

		// path painting; clipping is not applied
		"f":  func(r *renderer, a []pdf.Value) { r.fill(nonZero); r.path.reset() },
		"F":  func(r *renderer, a []pdf.Value) { r.fill(nonZero); r.path.reset() },
		"f*": func(r *renderer, a []pdf.Value) { r.fill(evenOdd); r.path.reset() },
		"S":  func(r *renderer, a []pdf.Value) { r.stroke(); r.path.reset() },
		"s":  func(r *renderer, a []pdf.Value) { r.path.close(); r.stroke(); r.path.reset() },
		"B":  func(r *renderer, a []pdf.Value) { r.fill(nonZero); r.stroke(); r.path.reset() },
		"B*": func(r *renderer, a []pdf.Value) { r.fill(evenOdd); r.stroke(); r.path.reset() },
		"b":  func(r *renderer, a []pdf.Value) { r.path.close(); r.fill(nonZero); r.stroke(); r.path.reset() },
		"b*": func(r *renderer, a []pdf.Value) { r.path.close(); r.fill(evenOdd); r.stroke(); r.path.reset() },
		"n":  func(r *renderer, a []pdf.Value) { r.path.reset() },

		// colour
		"g":   func(r *renderer, a []pdf.Value) { r.g.fill = colorFrom(a, r.g.fill) },
		"G":   func(r *renderer, a []pdf.Value) { r.g.stroke = colorFrom(a, r.g.stroke) },
		"rg":  func(r *renderer, a []pdf.Value) { r.g.fill = colorFrom(a, r.g.fill) },
		"RG":  func(r *renderer, a []pdf.Value) { r.g.stroke = colorFrom(a, r.g.stroke) },
		"k":   func(r *renderer, a []pdf.Value) { r.g.fill = colorFrom(a, r.g.fill) },
		"K":   func(r *renderer, a []pdf.Value) { r.g.stroke = colorFrom(a, r.g.stroke) },
		"sc":  func(r *renderer, a []pdf.Value) { r.g.fill = colorFrom(a, r.g.fill) },
		"scn": func(r *renderer, a []pdf.Value) { r.g.fill = colorFrom(a, r.g.fill) },
		"SC":  func(r *renderer, a []pdf.Value) { r.g.stroke = colorFrom(a, r.g.stroke) },
		"SCN": func(r *renderer, a []pdf.Value) { r.g.stroke = colorFrom(a, r.g.stroke) },
		"cs":  func(r *renderer, a []pdf.Value) { r.g.fill = defaultColor(a) },
		"CS":  func(r *renderer, a []pdf.Value) { r.g.stroke = defaultColor(a) },

		// text
		"BT": func(r *renderer, a []pdf.Value) { r.g.tm, r.g.tlm = pdf.Identity, pdf.Identity },
		"ET": func(r *renderer, a []pdf.Value) {},
		"Tc": func(r *renderer, a []pdf.Value) { r.g.tc = num(a, 0) },
		"Tw": func(r *renderer, a []pdf.Value) { r.g.tw = num(a, 0) },
		"Tz": func(r *renderer, a []pdf.Value) { r.g.th = num(a, 0) / 100 },
		"TL": func(r *renderer, a []pdf.Value) { r.g.tl = num(a, 0) },
		"Ts": func(r *renderer, a []pdf.Value) { r.g.trise = num(a, 0) },
		"Tr": func(r *renderer, a []pdf.Value) { r.g.tmode = int(num(a, 0)) },
		"Tf": (*renderer).setFont,
		"Td": func(r *renderer, a []pdf.Value) { r.moveText(num(a, 0), num(a, 1)) },
		"TD": func(r *renderer, a []pdf.Value) { r.g.tl = -num(a, 1); r.moveText(num(a, 0), num(a, 1)) },
		"Tm": func(r *renderer, a []pdf.Value) {
			m := pdf.NewMatrix(num(a, 0), num(a, 1), num(a, 2), num(a, 3), num(a, 4), num(a, 5))
			r.g.tm, r.g.tlm = m, m
		},
		"T*": func(r *renderer, a []pdf.Value) { r.moveText(0, -r.g.tl) },
		"Tj": func(r *renderer, a []pdf.Value) {
			if len(a) > 0 {
				r.showText(a[0].RawString())
			}
		},
		"TJ": (*renderer).showArray,
		"'":  func(r *renderer, a []pdf.Value) {
			r.moveText(0, -r.g.tl)
			if len(a) > 0 {
				r.showText(a[0].RawString())
			}
		},
		"\"": func(r *renderer, a []pdf.Value) {
			r.g.tw, r.g.tc = num(a, 0), num(a, 1)
			r.moveText(0, -r.g.tl)
			if len(a) > 2 {
				r.showText(a[2].RawString())
			}
		},

		// external objects
		"Do": (*renderer).doXObject,
		"BI": func(r *renderer, a []pdf.Value) { r.placeholder() },
	}
}

func (r *renderer) save() {
	r.stack = append(r.stack, r.g)
}

func (r *renderer) restore() {
	n := len(r.stack)
	if n == 0 {
		return
	}
	r.g = r.stack[n-1]
	r.stack = r.stack[:n-1]
}

func (r *renderer) concat(a []pdf.Value) {
	if len(a) != 6 {
		return
	}
	m := pdf.NewMatrix(num(a, 0), num(a, 1), num(a, 2), num(a, 3), num(a, 4), num(a, 5))
	r.g.ctm = m.Mul(r.g.ctm)
}

func (r *renderer) extGState(a []pdf.Value) {
	if len(a) == 0 {
		return
	}
	gs := r.res.Key("ExtGState").Key(a[0].Name())
	if v := gs.Key("LW"); !v.IsNull() {
		r.g.lineWidth = v.Float64()
	}
	if v := gs.Key("ca"); !v.IsNull() {
		r.g.fillAlpha = clamp01(v.Float64())
	}
	if v := gs.Key("CA"); !v.IsNull() {
		r.g.strokeAlpha = clamp01(v.Float64())
	}
}

func (r *renderer) curveV(a []pdf.Value) {
	x, y := r.path.currentUser(r.g.ctm)
	r.path.curveTo(r.g.ctm, x, y, num(a, 0), num(a, 1), num(a, 2), num(a, 3))
}

func (r *renderer) rect(a []pdf.Value) {
	x, y, w, h := num(a, 0), num(a, 1), num(a, 2), num(a, 3)
	r.path.moveTo(r.g.ctm, x, y)
	r.path.lineTo(r.g.ctm, x+w, y)
	r.path.lineTo(r.g.ctm, x+w, y+h)
	r.path.lineTo(r.g.ctm, x, y+h)
	r.path.close()
}

func (r *renderer) doXObject(a []pdf.Value) {
	if len(a) == 0 {
		return
	}
	xobj := r.res.Key("XObject").Key(a[0].Name())
	switch xobj.Key("Subtype").Name() {
	case "Image":
		r.placeholder()
	case "Form":
		if r.depth >= maxFormDepth {
			logger.Debug("form XObject nesting too deep", "name", a[0].Name())
			return
		}
		res := xobj.Key("Resources")
		if res.IsNull() {
			res = r.res
		}
		saved, savedStack, savedPath := r.g, r.stack, r.path
		r.stack = nil
		r.path = path{}
		r.g.ctm = pdf.MatrixFrom(xobj.Key("Matrix")).Mul(r.g.ctm)
		r.depth++
		err := r.run(xobj, res)
		r.depth--
		r.g, r.stack, r.path = saved, savedStack, savedPath
		if err != nil {
			if ctxErr := r.ctx.Err(); ctxErr != nil {
				panic(ctxErr)
			}
			logger.Debug("form XObject content", "name", a[0].Name(), "err", err)
		}
	}
}

// placeholder fills the unit square of the current transformation, which
// is where an image is painted.
func (r *renderer) placeholder() {
	var p path
	p.moveTo(r.g.ctm, 0, 0)
	p.lineTo(r.g.ctm, 1, 0)
	p.lineTo(r.g.ctm, 1, 1)
	p.lineTo(r.g.ctm, 0, 1)
	p.close()
	r.fillPath(p, imagePlaceholder, nonZero)
}
