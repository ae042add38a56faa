// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package raster

import (
	"image/color"
	"math"

	"github.com/sassoftware/viya-pdf-viewer/pdf"
)

type gstate struct {
	ctm         pdf.Matrix
	lineWidth   float64
	fill        color.NRGBA
	stroke      color.NRGBA
	fillAlpha   float64
	strokeAlpha float64

	// text state
	tm, tlm  pdf.Matrix
	tc, tw   float64
	th       float64
	tl       float64
	trise    float64
	tmode    int
	font     pdf.Font
	fontSize float64
	enc      pdf.TextEncoding
}

var black = color.NRGBA{0, 0, 0, 0xff}

func newState(base pdf.Matrix) gstate {
	return gstate{
		ctm:         base,
		lineWidth:   1,
		fill:        black,
		stroke:      black,
		fillAlpha:   1,
		strokeAlpha: 1,
		tm:          pdf.Identity,
		tlm:         pdf.Identity,
		th:          1,
	}
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func channel(x float64) uint8 {
	return uint8(math.Round(clamp01(x) * 255))
}

// colorFrom interprets colour operands by count: one gray, three RGB or
// four CMYK components. Pattern names and other forms keep prev.
func colorFrom(args []pdf.Value, prev color.NRGBA) color.NRGBA {
	var c []float64
	for _, a := range args {
		if a.Kind() != pdf.Integer && a.Kind() != pdf.Real {
			return prev
		}
		c = append(c, a.Float64())
	}
	switch len(c) {
	case 1:
		g := channel(c[0])
		return color.NRGBA{g, g, g, 0xff}
	case 3:
		return color.NRGBA{channel(c[0]), channel(c[1]), channel(c[2]), 0xff}
	case 4:
		k := 1 - clamp01(c[3])
		return color.NRGBA{
			channel((1 - clamp01(c[0])) * k),
			channel((1 - clamp01(c[1])) * k),
			channel((1 - clamp01(c[2])) * k),
			0xff,
		}
	}
	return prev
}

// defaultColor is the initial colour after a colour space change.
func defaultColor(args []pdf.Value) color.NRGBA {
	return black
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * clamp01(alpha)))
	return c
}

func (r *renderer) setFont(a []pdf.Value) {
	if len(a) < 2 {
		return
	}
	r.g.font = pdf.Font{V: r.res.Key("Font").Key(a[0].Name())}
	r.g.fontSize = a[1].Float64()
	if r.collect {
		r.g.enc = r.g.font.Encoder()
	}
}

func (r *renderer) moveText(tx, ty float64) {
	r.g.tlm = pdf.NewMatrix(1, 0, 0, 1, tx, ty).Mul(r.g.tlm)
	r.g.tm = r.g.tlm
}

func (r *renderer) showArray(a []pdf.Value) {
	if len(a) == 0 {
		return
	}
	arr := a[0]
	for i := 0; i < arr.Len(); i++ {
		v := arr.Index(i)
		switch v.Kind() {
		case pdf.String:
			r.showText(v.RawString())
		case pdf.Integer, pdf.Real:
			tx := -v.Float64() / 1000 * r.g.fontSize * r.g.th
			r.g.tm = pdf.NewMatrix(1, 0, 0, 1, tx, 0).Mul(r.g.tm)
		}
	}
}

// showText advances the text matrix over s and paints one bar per glyph,
// or records the glyphs when extracting text. Composite fonts use two-byte
// codes.
func (r *renderer) showText(s string) {
	g := &r.g
	wide := g.font.Composite()
	visible := g.tmode != 3 && g.tmode != 7
	paint := withAlpha(g.fill, g.fillAlpha)
	if g.tmode == 1 || g.tmode == 5 {
		paint = withAlpha(g.stroke, g.strokeAlpha)
	}
	paint.A = uint8(uint16(paint.A) * uint16(textAlpha) / 0xff)

	var bars [][]point
	for i := 0; i < len(s); {
		code := int(s[i])
		n := 1
		if wide && i+1 < len(s) {
			code = code<<8 | int(s[i+1])
			n = 2
		}
		i += n

		var w0 float64
		if wide {
			w0 = g.font.CIDWidth(code) / 1000
		} else {
			w0 = g.font.Width(code) / 1000
		}
		trm := pdf.NewMatrix(g.fontSize*g.th, 0, 0, g.fontSize, 0, g.trise).Mul(g.tm).Mul(g.ctm)
		if r.collect {
			r.addGlyph(trm, s[i-n:i], w0)
		} else if visible && code != ' ' && w0 > 0 {
			bars = append(bars, quad(trm, 0, 0, w0*0.92, 0.62))
		}

		tx := w0*g.fontSize + g.tc
		if n == 1 && code == ' ' {
			tx += g.tw
		}
		tx *= g.th
		g.tm = pdf.NewMatrix(1, 0, 0, 1, tx, 0).Mul(g.tm)
	}
	if len(bars) > 0 {
		r.fillPolys(bars, paint, union)
	}
}

// quad returns the rectangle (x0,y0)-(x1,y1) transformed by m.
func quad(m pdf.Matrix, x0, y0, x1, y1 float64) []point {
	pts := make([]point, 0, 4)
	for _, c := range [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}} {
		x, y := m.Apply(c[0], c[1])
		pts = append(pts, point{x, y})
	}
	return pts
}
