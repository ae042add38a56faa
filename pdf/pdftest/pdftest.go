// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
)

// A Page describes one generated page.
type Page struct {
	// Width and Height in points; zero inherits the 612x792 MediaBox of the page tree.
	Width, Height float64
	// Content is the raw content stream.
	Content string
	// Rotate is written as /Rotate when non-zero.
	Rotate int
	// CropBox is written as /CropBox when it has four entries.
	CropBox []float64
}

// Options controls the file structure.
type Options struct {
	// XRefStream writes a cross-reference stream instead of a table.
	XRefStream bool
	// ObjectStream places the font dictionary in an object stream.
	// It implies XRefStream.
	ObjectStream bool
	// Compress Flate-encodes content streams.
	Compress bool
	// Encrypt adds an /Encrypt entry to the trailer.
	Encrypt bool
	// Title is written to the /Info dictionary.
	Title string
}

const (
	catalogID = 1
	pagesID   = 2
	fontID    = 3
	infoID    = 4
	firstPage = 5
)

// Build returns a PDF file with the given pages and default options.
func Build(pages ...Page) []byte {
	return BuildWithOptions(Options{}, pages...)
}

// BuildWithOptions returns a PDF file with the given pages.
func BuildWithOptions(opt Options, pages ...Page) []byte {
	if opt.ObjectStream {
		opt.XRefStream = true
	}
	w := &writer{}
	w.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	w.obj(catalogID, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID))

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+2*i)
	}
	w.obj(pagesID, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> >>",
		strings.Join(kids, " "), len(pages), fontID))

	font := fontDict()
	if !opt.ObjectStream {
		w.obj(fontID, font)
	}
	w.obj(infoID, fmt.Sprintf("<< /Title %s /Producer (pdftest) >>", literal(opt.Title)))

	for i, p := range pages {
		id := firstPage + 2*i
		var b strings.Builder
		fmt.Fprintf(&b, "<< /Type /Page /Parent %d 0 R /Contents %d 0 R", pagesID, id+1)
		if p.Width > 0 && p.Height > 0 {
			fmt.Fprintf(&b, " /MediaBox [0 0 %s %s]", num(p.Width), num(p.Height))
		}
		if len(p.CropBox) == 4 {
			fmt.Fprintf(&b, " /CropBox [%s %s %s %s]", num(p.CropBox[0]), num(p.CropBox[1]), num(p.CropBox[2]), num(p.CropBox[3]))
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&b, " /Rotate %d", p.Rotate)
		}
		b.WriteString(" >>")
		w.obj(id, b.String())

		data := []byte(p.Content)
		hdr := ""
		if opt.Compress {
			data = deflate(data)
			hdr = " /Filter /FlateDecode"
		}
		w.stream(id+1, hdr, data)
	}

	next := firstPage + 2*len(pages)
	objstm := 0
	if opt.ObjectStream {
		objstm = next
		next++
		head := fmt.Sprintf("%d 0 ", fontID)
		w.stream(objstm, fmt.Sprintf(" /Type /ObjStm /N 1 /First %d", len(head)), []byte(head+font))
	}

	trailer := fmt.Sprintf("/Size %d /Root %d 0 R /Info %d 0 R", next, catalogID, infoID)
	if opt.Encrypt {
		trailer += " /Encrypt << /Filter /Standard /V 1 /R 2 /O (owner) /U (user) /P -4 >>"
	}

	if !opt.XRefStream {
		xref := w.buf.Len()
		fmt.Fprintf(&w.buf, "xref\n0 %d\n", next)
		w.buf.WriteString("0000000000 65535 f\r\n")
		for id := 1; id < next; id++ {
			fmt.Fprintf(&w.buf, "%010d %05d n\r\n", w.offsets[id], 0)
		}
		fmt.Fprintf(&w.buf, "trailer\n<< %s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
		return w.buf.Bytes()
	}

	// The xref stream describes itself as the last object.
	xrefID := next
	size := next + 1
	w.grow(xrefID)
	w.offsets[xrefID] = w.buf.Len()
	var rows bytes.Buffer
	row := func(typ byte, f2, f3 int) {
		rows.WriteByte(typ)
		rows.Write([]byte{byte(f2 >> 24), byte(f2 >> 16), byte(f2 >> 8), byte(f2)})
		rows.Write([]byte{byte(f3 >> 8), byte(f3)})
	}
	row(0, 0, 65535)
	for id := 1; id < size; id++ {
		if opt.ObjectStream && id == fontID {
			row(2, objstm, 0)
			continue
		}
		row(1, w.offsets[id], 0)
	}
	trailer = strings.Replace(trailer, fmt.Sprintf("/Size %d", next), fmt.Sprintf("/Size %d", size), 1)
	w.stream(xrefID, " /Type /XRef /W [1 4 2] "+trailer, rows.Bytes())
	fmt.Fprintf(&w.buf, "startxref\n%d\n%%%%EOF\n", w.offsets[xrefID])
	return w.buf.Bytes()
}

type writer struct {
	buf     bytes.Buffer
	offsets []int
}

func (w *writer) grow(id int) {
	for len(w.offsets) <= id {
		w.offsets = append(w.offsets, 0)
	}
}

func (w *writer) obj(id int, body string) {
	w.grow(id)
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *writer) stream(id int, hdr string, data []byte) {
	w.grow(id)
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< /Length %d%s >>\nstream\n", id, len(data), hdr)
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func fontDict() string {
	widths := make([]string, 0, 95)
	for c := 32; c <= 126; c++ {
		widths = append(widths, "556")
	}
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " "))
}

func deflate(data []byte) []byte {
	var b bytes.Buffer
	zw := zlib.NewWriter(&b)
	zw.Write(data)
	zw.Close()
	return b.Bytes()
}

func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return "(" + r.Replace(s) + ")"
}

func num(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", f), "0"), ".")
}
