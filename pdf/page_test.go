// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"testing"

	"github.com/sassoftware/viya-pdf-viewer/pdf/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageLookup(t *testing.T) {
	r := open(t, pdftest.Build(twoPages()...))

	assert.Equal(t, 2, r.NumPage())
	assert.False(t, r.Page(1).V.IsNull())
	assert.False(t, r.Page(2).V.IsNull())
	assert.True(t, r.Page(0).V.IsNull(), "pages are 1-indexed")
	assert.True(t, r.Page(3).V.IsNull())
	assert.True(t, r.Page(-1).V.IsNull())
}

func TestPageGeometry(t *testing.T) {
	r := open(t, pdftest.Build(
		pdftest.Page{Width: 200, Height: 100},
		pdftest.Page{},
		pdftest.Page{Width: 200, Height: 100, Rotate: 90},
		pdftest.Page{CropBox: []float64{10, 10, 110, 60}},
		pdftest.Page{Width: 300, Height: 400, Rotate: -90},
		pdftest.Page{Width: 300, Height: 400, Rotate: 45},
		pdftest.Page{CropBox: []float64{-50, -50, 5000, 5000}},
	))

	cases := []struct {
		page   int
		w, h   float64
		rotate int
	}{
		{1, 200, 100, 0},
		{2, 612, 792, 0},
		{3, 100, 200, 90},
		{4, 100, 50, 0},
		{5, 400, 300, 270},
		{6, 300, 400, 0},
		{7, 612, 792, 0},
	}
	for _, tc := range cases {
		p := r.Page(tc.page)
		require.False(t, p.V.IsNull(), "page %d", tc.page)
		w, h := p.Size()
		assert.Equal(t, tc.w, w, "page %d width", tc.page)
		assert.Equal(t, tc.h, h, "page %d height", tc.page)
		assert.Equal(t, tc.rotate, p.Rotate(), "page %d rotation", tc.page)
	}

	crop := r.Page(4).CropBox()
	assert.Equal(t, Point{10, 10}, crop.Min)
	assert.Equal(t, LetterBox, r.Page(4).MediaBox())
}

func TestPageContentsEmpty(t *testing.T) {
	r := open(t, pdftest.Build(pdftest.Page{}))
	rc := contentReader(Value{})
	buf := make([]byte, 4)
	n, err := rc.Read(buf)
	assert.Zero(t, n)
	assert.Error(t, err)
	assert.NoError(t, Interpret(r.Page(1).V.Key("Contents"), func(*Stack, string) {
		t.Fatal("empty content has no operators")
	}))
}

func TestFontWidth(t *testing.T) {
	r := open(t, pdftest.Build(pdftest.Page{}))
	f := r.Page(1).Font("F1")
	assert.Equal(t, "Helvetica", f.BaseFont())
	assert.Equal(t, 32, f.FirstChar())
	assert.Equal(t, 126, f.LastChar())
	assert.Equal(t, 556.0, f.Width('A'))
	assert.Equal(t, 500.0, f.Width(10), "codes outside /Widths fall back to a nominal width")

	missing := r.Page(1).Font("F9")
	assert.Equal(t, 500.0, missing.Width('A'))
}

func TestMatrix(t *testing.T) {
	scale := NewMatrix(2, 0, 0, 3, 0, 0)
	move := NewMatrix(1, 0, 0, 1, 10, 20)

	x, y := scale.Mul(move).Apply(1, 1)
	assert.Equal(t, 12.0, x, "scale then translate")
	assert.Equal(t, 23.0, y)

	x, y = move.Mul(scale).Apply(1, 1)
	assert.Equal(t, 22.0, x, "translate then scale")
	assert.Equal(t, 63.0, y)

	assert.Equal(t, move, Identity.Mul(move))
	assert.Equal(t, Identity, MatrixFrom(Value{}))
	assert.Equal(t, move, MatrixFrom(Value{&Reader{}, objptr{}, array{int64(1), int64(0), int64(0), int64(1), int64(10), int64(20)}}))
}

func TestRectIntersect(t *testing.T) {
	a := Rect{Point{0, 0}, Point{10, 10}}
	b := Rect{Point{5, 5}, Point{20, 20}}
	assert.Equal(t, Rect{Point{5, 5}, Point{10, 10}}, a.Intersect(b))
	assert.True(t, a.Intersect(Rect{Point{11, 11}, Point{12, 12}}).Empty())
}
