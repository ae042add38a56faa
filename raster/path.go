// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/sassoftware/viya-pdf-viewer/pdf"
	"golang.org/x/image/vector"
)

// point is a position in device pixels.
type point struct {
	x, y float64
}

type subpath struct {
	pts    []point
	closed bool
}

// path is the current path in device space. The current point is also kept
// in user space for the v operator.
type path struct {
	subs  []subpath
	userX float64
	userY float64
}

func (p *path) reset() {
	p.subs = p.subs[:0]
}

func (p *path) currentUser(pdf.Matrix) (float64, float64) {
	return p.userX, p.userY
}

func (p *path) moveTo(m pdf.Matrix, x, y float64) {
	dx, dy := m.Apply(x, y)
	p.subs = append(p.subs, subpath{pts: []point{{dx, dy}}})
	p.userX, p.userY = x, y
}

// last returns the subpath that new segments extend. After h, a segment
// without a preceding m starts at the closed subpath's first point.
func (p *path) last() *subpath {
	n := len(p.subs)
	if n == 0 {
		return nil
	}
	if s := &p.subs[n-1]; s.closed {
		p.subs = append(p.subs, subpath{pts: []point{s.pts[0]}})
	}
	return &p.subs[len(p.subs)-1]
}

func (p *path) lineTo(m pdf.Matrix, x, y float64) {
	s := p.last()
	if s == nil {
		p.moveTo(m, x, y)
		return
	}
	dx, dy := m.Apply(x, y)
	s.pts = append(s.pts, point{dx, dy})
	p.userX, p.userY = x, y
}

// curveTo appends a cubic Bézier from the current point, flattened into
// line segments in device space.
func (p *path) curveTo(m pdf.Matrix, x1, y1, x2, y2, x3, y3 float64) {
	s := p.last()
	if s == nil {
		p.moveTo(m, x3, y3)
		return
	}
	p0 := s.pts[len(s.pts)-1]
	ax, ay := m.Apply(x1, y1)
	bx, by := m.Apply(x2, y2)
	cx, cy := m.Apply(x3, y3)

	// segment count from the control polygon length, about 4px per segment
	l := math.Hypot(ax-p0.x, ay-p0.y) + math.Hypot(bx-ax, by-ay) + math.Hypot(cx-bx, cy-by)
	n := int(math.Ceil(l / 4))
	if n < 1 {
		n = 1
	}
	if n > 64 {
		n = 64
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		w0, w1, w2, w3 := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		s.pts = append(s.pts, point{
			w0*p0.x + w1*ax + w2*bx + w3*cx,
			w0*p0.y + w1*ay + w2*by + w3*cy,
		})
	}
	p.userX, p.userY = x3, y3
}

func (p *path) close() {
	if n := len(p.subs); n > 0 {
		p.subs[n-1].closed = true
	}
}

// fillRule selects how overlapping subpaths combine.
type fillRule int

const (
	nonZero fillRule = iota
	evenOdd
	// union paints every covered pixel, whatever the subpath orientation.
	// Strokes and glyph bars use it so their overlapping pieces never cancel.
	union
)

func (r *renderer) fill(rule fillRule) {
	r.fillPath(r.path, withAlpha(r.g.fill, r.g.fillAlpha), rule)
}

func (r *renderer) fillPath(p path, c color.NRGBA, rule fillRule) {
	var polys [][]point
	for _, s := range p.subs {
		if len(s.pts) >= 3 {
			polys = append(polys, s.pts)
		}
	}
	r.fillPolys(polys, c, rule)
}

// stroke paints each segment as a quad of the current line width, plus a
// square at every joint so that thick polylines have no notches.
func (r *renderer) stroke() {
	m := r.g.ctm
	scale := math.Sqrt(math.Abs(m[0][0]*m[1][1] - m[0][1]*m[1][0]))
	hw := r.g.lineWidth * scale / 2
	if hw < 0.5 {
		hw = 0.5
	}

	var polys [][]point
	for _, s := range r.path.subs {
		pts := s.pts
		if s.closed && len(pts) > 1 {
			pts = append(append([]point{}, pts...), pts[0])
		}
		for i := 0; i+1 < len(pts); i++ {
			a, b := pts[i], pts[i+1]
			dx, dy := b.x-a.x, b.y-a.y
			l := math.Hypot(dx, dy)
			if l == 0 {
				continue
			}
			nx, ny := -dy/l*hw, dx/l*hw
			polys = append(polys, []point{
				{a.x + nx, a.y + ny}, {b.x + nx, b.y + ny},
				{b.x - nx, b.y - ny}, {a.x - nx, a.y - ny},
			})
			if i > 0 && hw >= 1.5 {
				polys = append(polys, []point{
					{a.x - hw, a.y - hw}, {a.x + hw, a.y - hw},
					{a.x + hw, a.y + hw}, {a.x - hw, a.y + hw},
				})
			}
		}
	}
	r.fillPolys(polys, withAlpha(r.g.stroke, r.g.strokeAlpha), union)
}

// fillPolys rasterizes polygons into a rasterizer sized to their bounding
// box. The rasterizer accumulates signed coverage, which is the nonzero rule
// for subpaths as given.
func (r *renderer) fillPolys(polys [][]point, c color.NRGBA, rule fillRule) {
	if r.dst == nil || len(polys) == 0 || c.A == 0 {
		return
	}
	box, ok := r.bounds(polys)
	if !ok {
		return
	}
	clip := rect{float64(box.Min.X) - 1, float64(box.Min.Y) - 1, float64(box.Max.X) + 1, float64(box.Max.Y) + 1}
	var clipped [][]point
	for _, poly := range polys {
		poly = clipPolygon(poly, clip)
		if len(poly) < 3 {
			continue
		}
		if rule == union && signedArea(poly) > 0 {
			poly = reversed(poly)
		}
		clipped = append(clipped, poly)
	}
	if len(clipped) == 0 {
		return
	}

	z := r.raster
	origin := point{float64(box.Min.X), float64(box.Min.Y)}
	if rule != evenOdd {
		z.Reset(box.Dx(), box.Dy())
		z.DrawOp = draw.Over
		for _, poly := range clipped {
			trace(z, poly, origin)
		}
		z.Draw(r.dst, box.Add(r.dst.Bounds().Min), image.NewUniform(c), image.Point{})
		r.paths++
		return
	}

	// Even-odd: rasterize each subpath on its own and combine the coverage
	// masks by parity.
	size := image.Rect(0, 0, box.Dx(), box.Dy())
	acc := image.NewAlpha(size)
	one := image.NewAlpha(size)
	for _, poly := range clipped {
		clear(one.Pix)
		z.Reset(box.Dx(), box.Dy())
		z.DrawOp = draw.Src
		trace(z, poly, origin)
		z.Draw(one, size, image.Opaque, image.Point{})
		for i, b := range one.Pix {
			a := int(acc.Pix[i])
			acc.Pix[i] = uint8(a + int(b) - 2*a*int(b)/0xff)
		}
	}
	dst := box.Add(r.dst.Bounds().Min)
	draw.DrawMask(r.dst, dst, image.NewUniform(c), image.Point{}, acc, image.Point{}, draw.Over)
	r.paths++
}

// bounds returns the pixel box covered by polys within the page, and false
// when nothing is on the page.
func (r *renderer) bounds(polys [][]point) (image.Rectangle, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, pt := range poly {
			minX, minY = math.Min(minX, pt.x), math.Min(minY, pt.y)
			maxX, maxY = math.Max(maxX, pt.x), math.Max(maxY, pt.y)
		}
	}
	if math.IsNaN(minX) || math.IsNaN(minY) || math.IsNaN(maxX) || math.IsNaN(maxY) {
		return image.Rectangle{}, false
	}
	if maxX < 0 || maxY < 0 || minX > float64(r.size.X) || minY > float64(r.size.Y) {
		return image.Rectangle{}, false
	}
	box := image.Rect(
		int(math.Floor(math.Max(minX, 0))), int(math.Floor(math.Max(minY, 0))),
		int(math.Ceil(math.Min(maxX, float64(r.size.X)))), int(math.Ceil(math.Min(maxY, float64(r.size.Y)))),
	)
	return box, !box.Empty()
}

func trace(z *vector.Rasterizer, poly []point, origin point) {
	z.MoveTo(float32(poly[0].x-origin.x), float32(poly[0].y-origin.y))
	for _, pt := range poly[1:] {
		z.LineTo(float32(pt.x-origin.x), float32(pt.y-origin.y))
	}
	z.ClosePath()
}

func signedArea(poly []point) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].x*poly[j].y - poly[j].x*poly[i].y
	}
	return a / 2
}

func reversed(poly []point) []point {
	out := make([]point, len(poly))
	for i, pt := range poly {
		out[len(poly)-1-i] = pt
	}
	return out
}

type rect struct {
	x0, y0, x1, y1 float64
}

// clipPolygon clips poly to c (Sutherland-Hodgman), keeping the rasterizer
// away from far off-canvas coordinates.
func clipPolygon(poly []point, c rect) []point {
	inside := func(pt point, edge int) bool {
		switch edge {
		case 0:
			return pt.x >= c.x0
		case 1:
			return pt.x <= c.x1
		case 2:
			return pt.y >= c.y0
		}
		return pt.y <= c.y1
	}
	cross := func(a, b point, edge int) point {
		var t float64
		switch edge {
		case 0:
			t = (c.x0 - a.x) / (b.x - a.x)
		case 1:
			t = (c.x1 - a.x) / (b.x - a.x)
		case 2:
			t = (c.y0 - a.y) / (b.y - a.y)
		default:
			t = (c.y1 - a.y) / (b.y - a.y)
		}
		return point{a.x + t*(b.x-a.x), a.y + t*(b.y-a.y)}
	}

	out := poly
	for edge := 0; edge < 4 && len(out) > 0; edge++ {
		in := out
		out = make([]point, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case inside(cur, edge) && inside(prev, edge):
				out = append(out, cur)
			case inside(cur, edge):
				out = append(out, cross(prev, cur, edge), cur)
			case inside(prev, edge):
				out = append(out, cross(prev, cur, edge))
			}
			prev = cur
		}
	}
	return out
}
