// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"fmt"
	"io"
	"math"

	"github.com/sassoftware/viya-pdf-viewer/logger"
)

// LetterBox is the page box assumed when a page tree carries no MediaBox.
var LetterBox = Rect{Min: Point{0, 0}, Max: Point{612, 792}}

// maxTreeDepth bounds page tree walks so that cyclic /Kids or /Parent
// references cannot loop forever.
const maxTreeDepth = 64

// A Page represent a single page in a PDF file.
// The methods interpret a Page dictionary stored in V.
type Page struct {
	V Value
}

// A Point represents an X, Y pair.
type Point struct {
	X float64
	Y float64
}

// A Rect represents a rectangle in default user space.
type Rect struct {
	Min, Max Point
}

// Dx returns the width of r.
func (r Rect) Dx() float64 { return r.Max.X - r.Min.X }

// Dy returns the height of r.
func (r Rect) Dy() float64 { return r.Max.Y - r.Min.Y }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Dx() <= 0 || r.Dy() <= 0 }

// Intersect returns the largest rectangle contained by both r and s.
func (r Rect) Intersect(s Rect) Rect {
	out := Rect{
		Min: Point{math.Max(r.Min.X, s.Min.X), math.Max(r.Min.Y, s.Min.Y)},
		Max: Point{math.Min(r.Max.X, s.Max.X), math.Min(r.Max.Y, s.Max.Y)},
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Page returns the page for the given page number.
// Page numbers are indexed starting at 1, not 0.
// If the page is not found, Page returns a Page with p.V.IsNull().
func (r *Reader) Page(num int) Page {
	logger.Debug(fmt.Sprintf("Reading Page %d", num), true)
	if num < 1 {
		return Page{}
	}
	num-- // now 0-indexed
	page := r.Trailer().Key("Root").Key("Pages")
	depth := 0
Search:
	for page.Key("Type").Name() == "Pages" && depth < maxTreeDepth {
		depth++
		count := int(page.Key("Count").Int64())
		if count <= num {
			return Page{}
		}
		kids := page.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			kid := kids.Index(i)
			switch kid.Key("Type").Name() {
			case "Pages":
				c := int(kid.Key("Count").Int64())
				if num < c {
					page = kid
					continue Search
				}
				num -= c
			case "Page":
				if num == 0 {
					return Page{kid}
				}
				num--
			default:
				// leaf without /Type, seen in damaged files
				if kid.Key("Kids").IsNull() && kid.Kind() == Dict {
					if num == 0 {
						return Page{kid}
					}
					num--
				}
			}
		}
		break
	}
	return Page{}
}

// NumPage returns the number of pages in the PDF file.
func (r *Reader) NumPage() int {
	n := int(r.Trailer().Key("Root").Key("Pages").Key("Count").Int64())
	if n < 0 {
		return 0
	}
	return n
}

func (p Page) findInherited(key string) Value {
	v := p.V
	for depth := 0; !v.IsNull() && depth < maxTreeDepth; depth++ {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return Value{}
}

func rectFrom(v Value) (Rect, bool) {
	if v.Kind() != Array || v.Len() < 4 {
		return Rect{}, false
	}
	x0, y0 := v.Index(0).Float64(), v.Index(1).Float64()
	x1, y1 := v.Index(2).Float64(), v.Index(3).Float64()
	r := Rect{
		Min: Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
	if r.Empty() {
		return Rect{}, false
	}
	return r, true
}

// MediaBox returns the page's media box, inherited from the page tree when
// the page omits it. Missing or degenerate boxes fall back to LetterBox.
func (p Page) MediaBox() Rect {
	if r, ok := rectFrom(p.findInherited("MediaBox")); ok {
		return r
	}
	return LetterBox
}

// CropBox returns the visible region of the page: the crop box clipped to
// the media box, or the media box itself when no crop box is usable.
func (p Page) CropBox() Rect {
	media := p.MediaBox()
	if r, ok := rectFrom(p.findInherited("CropBox")); ok {
		if c := r.Intersect(media); !c.Empty() {
			return c
		}
	}
	return media
}

// Rotate returns the page rotation in degrees, normalized to 0, 90, 180 or 270.
// Values that are not multiples of 90 are treated as 0.
func (p Page) Rotate() int {
	rot := int(p.findInherited("Rotate").Int64())
	if rot%90 != 0 {
		return 0
	}
	rot %= 360
	if rot < 0 {
		rot += 360
	}
	return rot
}

// Size returns the displayed width and height of the page in points:
// the crop box dimensions, swapped for 90 and 270 degree rotation.
func (p Page) Size() (width, height float64) {
	box := p.CropBox()
	width, height = box.Dx(), box.Dy()
	if rot := p.Rotate(); rot == 90 || rot == 270 {
		width, height = height, width
	}
	return width, height
}

// Resources returns the resources dictionary associated with the page.
func (p Page) Resources() Value {
	return p.findInherited("Resources")
}

// Font returns the font with the given resource name associated with the page.
func (p Page) Font(name string) Font {
	return Font{p.Resources().Key("Font").Key(name)}
}

// XObject returns the external object with the given resource name.
func (p Page) XObject(name string) Value {
	return p.Resources().Key("XObject").Key(name)
}

// Contents returns the decoded content stream of the page. When /Contents
// is an array its streams are concatenated with a separating newline.
// A page without content yields an empty reader.
func (p Page) Contents() io.ReadCloser {
	return contentReader(p.V.Key("Contents"))
}

func contentReader(v Value) io.ReadCloser {
	switch v.Kind() {
	case Stream:
		return v.Reader()
	case Array:
		var parts []io.ReadCloser
		for i := 0; i < v.Len(); i++ {
			s := v.Index(i)
			if s.Kind() != Stream {
				continue
			}
			parts = append(parts, s.Reader())
		}
		return &multiStream{parts: parts}
	}
	return io.NopCloser(eofReader{})
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// multiStream concatenates content streams. A separator is emitted between
// parts so that a token split across stream boundaries is not merged.
type multiStream struct {
	parts []io.ReadCloser
	i     int
	sep   bool
}

func (m *multiStream) Read(p []byte) (int, error) {
	for m.i < len(m.parts) {
		if len(p) == 0 {
			return 0, nil
		}
		if m.sep {
			m.sep = false
			p[0] = '\n'
			return 1, nil
		}
		n, err := m.parts[m.i].Read(p)
		if err == io.EOF {
			m.i++
			m.sep = true
			err = nil
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, io.EOF
}

func (m *multiStream) Close() error {
	var first error
	for _, rc := range m.parts {
		if err := rc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// A Font represent a font in a PDF file.
// The methods interpret a Font dictionary stored in V.
type Font struct {
	V Value
}

// BaseFont returns the font's name (BaseFont property).
func (f Font) BaseFont() string {
	return f.V.Key("BaseFont").Name()
}

// FirstChar returns the code point of the first character in the font.
func (f Font) FirstChar() int {
	return int(f.V.Key("FirstChar").Int64())
}

// LastChar returns the code point of the last character in the font.
func (f Font) LastChar() int {
	return int(f.V.Key("LastChar").Int64())
}

// Width returns the width of the given code point in thousandths of a
// text space unit. Codes outside /Widths use /MissingWidth from the font
// descriptor, or a nominal 500.
func (f Font) Width(code int) float64 {
	first := f.FirstChar()
	widths := f.V.Key("Widths")
	if code >= first && code-first < widths.Len() {
		if w := widths.Index(code - first).Float64(); w > 0 {
			return w
		}
	}
	if w := f.V.Key("FontDescriptor").Key("MissingWidth").Float64(); w > 0 {
		return w
	}
	return 500
}

// A Matrix is a PDF transformation matrix [a b c d e f]
// stored in row-major 3x3 form.
type Matrix [3][3]float64

// Identity is the identity transformation.
var Identity = Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// NewMatrix returns the matrix for the PDF operands a b c d e f.
func NewMatrix(a, b, c, d, e, f float64) Matrix {
	return Matrix{{a, b, 0}, {c, d, 0}, {e, f, 1}}
}

// Mul returns x·y: the transformation x followed by y.
func (x Matrix) Mul(y Matrix) Matrix {
	var z Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				z[i][j] += x[i][k] * y[k][j]
			}
		}
	}
	return z
}

// Apply transforms the point (x, y).
func (x Matrix) Apply(px, py float64) (float64, float64) {
	return px*x[0][0] + py*x[1][0] + x[2][0], px*x[0][1] + py*x[1][1] + x[2][1]
}

// MatrixFrom reads a six-element PDF matrix array, returning Identity when
// v is not one.
func MatrixFrom(v Value) Matrix {
	if v.Kind() != Array || v.Len() != 6 {
		return Identity
	}
	return NewMatrix(v.Index(0).Float64(), v.Index(1).Float64(), v.Index(2).Float64(),
		v.Index(3).Float64(), v.Index(4).Float64(), v.Index(5).Float64())
}
