// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package pdf implements reading of PDF files for page display.
//
// # Overview
//
// A PDF document is a graph of Values, each of which has one of the
// following Kinds:
//
//	Null, for the null object.
//	Integer, for an integer.
//	Real, for a floating-point number.
//	Bool, for a boolean value.
//	Name, for a name constant (as in /Helvetica).
//	String, for a string constant.
//	Dict, for a dictionary of name-value pairs.
//	Array, for an array of values.
//	Stream, for an opaque data stream and associated header dictionary.
//
// The accessors on Value (Int64, Float64, Bool, Name, and so on) return
// a view of the data as the given type. When there is no appropriate view,
// the accessor returns a zero result. That makes it possible to walk a page
// tree without writing error checks at every step; the flip side is that
// mistakes can go unreported.
//
// The Page wrapper interprets the page dictionaries a viewer needs: page
// boxes, rotation, resources and the content stream. Interpret walks the
// operators of a content stream.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"unicode/utf16"

	"github.com/sassoftware/viya-pdf-viewer/logger"
)

var (
	// ErrNotPDF is returned when the input does not start with a %PDF- header.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrEncrypted is returned for documents that carry an /Encrypt dictionary.
	ErrEncrypted = errors.New("encrypted PDF documents are not supported")
)

// A Reader is a single PDF file open for reading.
type Reader struct {
	f          io.ReaderAt
	end        int64
	version    string
	xref       []xref
	trailer    dict
	trailerptr objptr

	mu    sync.Mutex
	cache map[objptr]object
}

type xref struct {
	ptr      objptr
	inStream bool
	stream   objptr
	offset   int64
}

// NewReader opens a file for reading, using the data in f with the given total size.
// A damaged or missing cross-reference table is rebuilt by scanning the file.
func NewReader(f io.ReaderAt, size int64) (r *Reader, err error) {
	defer func() {
		if e := recover(); e != nil {
			r = nil
			err = fmt.Errorf("malformed PDF: %v", e)
		}
	}()

	version, err := CheckHeader(f)
	if err != nil {
		return nil, err
	}

	r = &Reader{f: f, end: size, version: version, cache: make(map[objptr]object)}

	if err := ValidateEOFMarker(f, size); err != nil {
		logger.Debug("missing %%EOF marker, rebuilding cross-reference table", "err", err, true)
		if err := r.rebuildXref(); err != nil {
			return nil, err
		}
		return r, r.checkTrailer()
	}

	startxref, err := FindStartXref(f, size)
	if err == nil {
		err = r.loadXref(startxref)
	}
	if err != nil {
		logger.Debug("cross-reference table unusable, rebuilding", "err", err, true)
		if err := r.rebuildXref(); err != nil {
			return nil, err
		}
	}
	return r, r.checkTrailer()
}

func (r *Reader) loadXref(startxref int64) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("reading xref at %d: %v", startxref, e)
		}
	}()
	if startxref < 0 || startxref >= r.end {
		return fmt.Errorf("startxref %d out of range", startxref)
	}
	b := newBuffer(io.NewSectionReader(r.f, startxref, r.end-startxref), startxref)
	table, trailerptr, trailer, err := readXref(r, b)
	if err != nil {
		return err
	}
	r.xref = table
	r.trailer = trailer
	r.trailerptr = trailerptr
	if r.Trailer().Key("Root").Kind() != Dict {
		return errors.New("trailer has no usable /Root")
	}
	return nil
}

func (r *Reader) checkTrailer() error {
	if _, ok := r.trailer[name("Encrypt")]; ok {
		return ErrEncrypted
	}
	if r.Trailer().Key("Root").Kind() != Dict {
		return errors.New("malformed PDF: missing document catalog")
	}
	return nil
}

// CheckHeader validates the PDF header near the beginning of the file and
// returns the header version (for example "1.7").
// It accepts 1.0–1.7 and 2.0; garbage before the header is tolerated.
func CheckHeader(f io.ReaderAt) (string, error) {
	buf := make([]byte, 1024)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading header: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: empty", ErrNotPDF)
	}
	buf = buf[:n]
	p := bytes.Index(buf, []byte("%PDF-"))
	if p < 0 {
		return "", fmt.Errorf("%w: missing %%PDF- header", ErrNotPDF)
	}
	line := buf[p:]
	if end := bytes.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}
	line = bytes.TrimRight(line, " \t\x00")

	var major, minor int
	if _, err := fmt.Sscanf(string(line), "%%PDF-%d.%d", &major, &minor); err != nil {
		return "", fmt.Errorf("%w: malformed version %q", ErrNotPDF, line)
	}
	if !((major == 1 && minor >= 0 && minor <= 7) || (major == 2 && minor == 0)) {
		return "", fmt.Errorf("unsupported PDF version %d.%d", major, minor)
	}
	logger.Debug(fmt.Sprintf("header: PDF-%d.%d", major, minor), true)
	return fmt.Sprintf("%d.%d", major, minor), nil
}

// ValidateEOFMarker checks the last chunk of the file for the "%%EOF" marker.
func ValidateEOFMarker(f io.ReaderAt, size int64) error {
	const endChunk = 1024
	start := size - endChunk
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return fmt.Errorf("reading trailer: %w", err)
	}
	if !bytes.Contains(buf, []byte("%%EOF")) {
		return errors.New("not a PDF file: missing %%EOF")
	}
	return nil
}

// FindStartXref locates and parses the "startxref" pointer near the end of the file.
// Returns the byte offset where the cross-reference table/stream begins.
func FindStartXref(f io.ReaderAt, size int64) (int64, error) {
	const endChunk = 1024
	start := size - endChunk
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return 0, err
	}
	i := findLastLine(buf, "startxref")
	if i < 0 {
		return 0, errors.New("malformed PDF file: missing final startxref")
	}
	pos := start + int64(i)
	b := newBuffer(io.NewSectionReader(f, pos, size-pos), pos)
	b.allowEOF = true

	if tok := b.readToken(); tok != keyword("startxref") {
		return 0, fmt.Errorf("malformed PDF file: missing startxref, found %v", tok)
	}
	startxref, ok := b.readToken().(int64)
	if !ok {
		return 0, errors.New("malformed PDF file: startxref not followed by integer")
	}
	logger.Debug(fmt.Sprintf("xref: startxref=%d", startxref), true)
	return startxref, nil
}

// Version returns the version from the file header.
func (r *Reader) Version() string {
	return r.version
}

// Trailer returns the file's Trailer value.
func (r *Reader) Trailer() Value {
	return Value{r, r.trailerptr, r.trailer}
}

func readXref(r *Reader, b *buffer) ([]xref, objptr, dict, error) {
	tok := b.readToken()
	if tok == keyword("xref") {
		return readXrefTable(r, b)
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		return readXrefStream(r, b)
	}
	return nil, objptr{}, nil, fmt.Errorf("malformed PDF: cross-reference table not found: %v", tok)
}

func readXrefStream(r *Reader, b *buffer) ([]xref, objptr, dict, error) {
	obj, ok := b.readObject().(objdef)
	if !ok {
		return nil, objptr{}, nil, errors.New("malformed PDF: cross-reference stream not found")
	}
	strmptr := obj.ptr
	strm, ok := obj.obj.(stream)
	if !ok {
		return nil, objptr{}, nil, errors.New("malformed PDF: cross-reference stream not found")
	}
	if strm.hdr["Type"] != name("XRef") {
		return nil, objptr{}, nil, errors.New("malformed PDF: xref stream does not have type XRef")
	}
	size, ok := strm.hdr["Size"].(int64)
	if !ok {
		return nil, objptr{}, nil, errors.New("malformed PDF: xref stream missing Size")
	}
	table := make([]xref, size)

	table, err := readXrefStreamData(r, strm, table, size)
	if err != nil {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: %w", err)
	}

	seen := map[int64]bool{}
	for prevoff := strm.hdr["Prev"]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok || seen[off] || off < 0 || off >= r.end {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev is not a usable offset: %v", prevoff)
		}
		seen[off] = true
		b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		obj, ok := b.readObject().(objdef)
		if !ok {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref prev stream not found at %d", off)
		}
		prevstrm, ok := obj.obj.(stream)
		if !ok || prevstrm.hdr["Type"] != name("XRef") {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref prev stream not found at %d", off)
		}
		prevoff = prevstrm.hdr["Prev"]
		if table, err = readXrefStreamData(r, prevstrm, table, size); err != nil {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: %w", err)
		}
	}

	return table, strmptr, strm.hdr, nil
}

func readXrefStreamData(r *Reader, strm stream, table []xref, size int64) ([]xref, error) {
	index, _ := strm.hdr["Index"].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("invalid Index array %v", objfmt(index))
	}
	ww, ok := strm.hdr["W"].(array)
	if !ok || len(ww) < 3 {
		return nil, fmt.Errorf("xref stream missing W array")
	}

	var w []int
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || i < 0 || i > 8 {
			return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
		}
		w = append(w, int(i))
	}

	v := Value{r, objptr{}, strm}
	wtotal := w[0] + w[1] + w[2]
	buf := make([]byte, wtotal)
	data := v.Reader()
	defer data.Close()
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed Index pair %v %v", objfmt(index[0]), objfmt(index[1]))
		}
		index = index[2:]
		for i := 0; i < int(n); i++ {
			if _, err := io.ReadFull(data, buf); err != nil {
				return nil, fmt.Errorf("reading xref stream: %w", err)
			}
			v1 := decodeInt(buf[0:w[0]])
			if w[0] == 0 {
				v1 = 1
			}
			v2 := decodeInt(buf[w[0] : w[0]+w[1]])
			v3 := decodeInt(buf[w[0]+w[1] : wtotal])
			x := int(start) + i
			table = ensureLen(table, x+1)
			if table[x].ptr != (objptr{}) {
				continue
			}
			switch v1 {
			case 0:
				table[x] = xref{ptr: objptr{0, 65535}}
			case 1:
				table[x] = xref{ptr: objptr{uint32(x), uint16(v3)}, offset: int64(v2)}
			case 2:
				table[x] = xref{ptr: objptr{uint32(x), 0}, inStream: true, stream: objptr{uint32(v2), 0}, offset: int64(v3)}
			default:
				logger.Debug(fmt.Sprintf("xref: unknown entry type %d for object %d", v1, x))
			}
		}
	}
	return table, nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

func readXrefTable(r *Reader, b *buffer) ([]xref, objptr, dict, error) {
	var table []xref

	table, err := readXrefTableData(b, table)
	if err != nil {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: %w", err)
	}

	trailer, ok := b.readObject().(dict)
	if !ok {
		return nil, objptr{}, nil, errors.New("malformed PDF: xref table not followed by trailer dictionary")
	}

	// Hybrid files keep the compressed objects in an xref stream.
	if off, ok := trailer[name("XRefStm")].(int64); ok {
		if table, err = mergeXrefStm(r, table, off); err != nil {
			return nil, objptr{}, nil, err
		}
	}

	seen := map[int64]bool{}
	for prevoff := trailer[name("Prev")]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok || seen[off] || off < 0 || off >= r.end {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev is not a usable offset: %v", prevoff)
		}
		seen[off] = true
		b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		if tok := b.readToken(); tok != keyword("xref") {
			return nil, objptr{}, nil, errors.New("malformed PDF: xref Prev does not point to xref")
		}
		if table, err = readXrefTableData(b, table); err != nil {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: %w", err)
		}
		trailer2, ok := b.readObject().(dict)
		if !ok {
			return nil, objptr{}, nil, errors.New("malformed PDF: xref Prev table not followed by trailer dictionary")
		}
		prevoff = trailer2[name("Prev")]
	}

	size, ok := trailer[name("Size")].(int64)
	if !ok {
		return nil, objptr{}, nil, errors.New("malformed PDF: trailer missing /Size entry")
	}
	if size < int64(len(table)) {
		table = table[:size]
	}

	return table, objptr{}, trailer, nil
}

func mergeXrefStm(r *Reader, table []xref, off int64) ([]xref, error) {
	if off < 0 || off >= r.end {
		return table, nil
	}
	b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
	obj, ok := b.readObject().(objdef)
	if !ok {
		return table, nil
	}
	strm, ok := obj.obj.(stream)
	if !ok || strm.hdr["Type"] != name("XRef") {
		return table, nil
	}
	size, _ := strm.hdr["Size"].(int64)
	return readXrefStreamData(r, strm, table, size)
}

func readXrefTableData(b *buffer, table []xref) ([]xref, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		n, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || n < 0 {
			return nil, errors.New("malformed xref table")
		}
		for i := 0; i < int(n); i++ {
			off, ok1 := b.readToken().(int64)
			gen, ok2 := b.readToken().(int64)
			alloc, ok3 := b.readToken().(keyword)
			if !ok1 || !ok2 || !ok3 || alloc != keyword("f") && alloc != keyword("n") {
				return nil, errors.New("malformed xref table")
			}
			x := int(start) + i
			table = ensureLen(table, x+1)
			if alloc == "n" && table[x].offset == 0 && !table[x].inStream {
				table[x] = xref{ptr: objptr{uint32(x), uint16(gen)}, offset: off}
			}
		}
	}
	return table, nil
}

func ensureLen[T any](s []T, n int) []T {
	if len(s) >= n {
		return s
	}
	if cap(s) >= n {
		return s[:n]
	}
	t := make([]T, n)
	copy(t, s)
	return t
}

func findLastLine(buf []byte, s string) int {
	bs := []byte(s)
	max := len(buf)
	for {
		i := bytes.LastIndex(buf[:max], bs)
		if i <= 0 || i+len(bs) >= len(buf) {
			return -1
		}
		j := i + len(bs)
		for j < len(buf) && (buf[j] == ' ' || buf[j] == '\t') {
			j++
		}
		if (buf[i-1] == '\n' || buf[i-1] == '\r') && j < len(buf) && (buf[j] == '\n' || buf[j] == '\r') {
			return i
		}
		max = i
	}
}

var objdefRE = regexp.MustCompile(`(?m)(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// rebuildXref recreates the cross-reference table by scanning the whole file
// for "n g obj" headers; the last definition of an object wins. The trailer
// is the last "trailer" dictionary, or the last xref stream dictionary, or
// a synthetic one pointing at the first catalog found.
func (r *Reader) rebuildXref() (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("malformed PDF: rebuilding xref: %v", e)
		}
	}()

	data := make([]byte, r.end)
	if _, err := r.f.ReadAt(data, 0); err != nil && err != io.EOF {
		return fmt.Errorf("reading document: %w", err)
	}

	var table []xref
	for _, m := range objdefRE.FindAllSubmatchIndex(data, -1) {
		id, err1 := strconv.ParseUint(string(data[m[2]:m[3]]), 10, 32)
		gen, err2 := strconv.ParseUint(string(data[m[4]:m[5]]), 10, 16)
		if err1 != nil || err2 != nil {
			continue
		}
		table = ensureLen(table, int(id)+1)
		table[id] = xref{ptr: objptr{uint32(id), uint16(gen)}, offset: int64(m[0])}
	}
	if len(table) == 0 {
		return errors.New("malformed PDF: no objects found")
	}
	r.xref = table
	r.trailer = nil
	r.trailerptr = objptr{}

	if i := bytes.LastIndex(data, []byte("trailer")); i >= 0 {
		b := newBuffer(bytes.NewReader(data[i+len("trailer"):]), int64(i+len("trailer")))
		b.allowEOF = true
		if d, ok := b.readObject().(dict); ok {
			r.trailer = d
		}
	}

	if r.trailer == nil || r.Trailer().Key("Root").Kind() != Dict {
		r.trailer = nil
		for id := len(table) - 1; id > 0; id-- {
			x := table[id]
			if x.ptr == (objptr{}) {
				continue
			}
			v := r.resolve(objptr{}, x.ptr)
			if v.Kind() == Stream && v.Key("Type").Name() == "XRef" && v.Key("Root").Kind() == Dict {
				r.trailer = v.data.(stream).hdr
				break
			}
		}
		// Compressed objects of an xref stream are merged in when present.
		if r.trailer != nil {
			if idx, ok := r.trailer[name("Size")].(int64); ok {
				for id := len(table) - 1; id > 0; id-- {
					x := table[id]
					v := r.resolve(objptr{}, x.ptr)
					if v.Kind() == Stream && v.Key("Type").Name() == "XRef" {
						if t, err := readXrefStreamData(r, v.data.(stream), r.xref, idx); err == nil {
							r.xref = t
						}
						break
					}
				}
			}
		}
	}

	if r.trailer == nil {
		for _, x := range table {
			if x.ptr == (objptr{}) {
				continue
			}
			v := r.resolve(objptr{}, x.ptr)
			if v.Key("Type").Name() == "Catalog" {
				r.trailer = dict{name("Root"): x.ptr, name("Size"): int64(len(table))}
				break
			}
		}
	}
	if r.trailer == nil {
		return errors.New("malformed PDF: no trailer or catalog found")
	}
	logger.Debug(fmt.Sprintf("xref: rebuilt table with %d entries", len(r.xref)), true)
	return nil
}

// A Value is a single PDF value, such as an integer, dictionary, or array.
// The zero Value is a PDF null (Kind() == Null, IsNull() = true).
type Value struct {
	r    *Reader
	ptr  objptr
	data interface{}
}

// IsNull reports whether the value is a null. It is equivalent to Kind() == Null.
func (v Value) IsNull() bool {
	return v.data == nil
}

// A ValueKind specifies the kind of data underlying a Value.
type ValueKind int

// The PDF value kinds.
const (
	Null ValueKind = iota
	Bool
	Integer
	Real
	String
	Name
	Dict
	Array
	Stream
)

// Kind reports the kind of value underlying v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	default:
		return Null
	case bool:
		return Bool
	case int64:
		return Integer
	case float64:
		return Real
	case string:
		return String
	case name:
		return Name
	case dict:
		return Dict
	case array:
		return Array
	case stream:
		return Stream
	}
}

// String returns a textual representation of the value v.
// Note that String is not the accessor for values with Kind() == String.
// To access such values, see RawString, Text, and TextFromUTF16.
func (v Value) String() string {
	return objfmt(v.data)
}

func objfmt(x interface{}) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case string:
		if isPDFDocEncoded(x) {
			return strconv.Quote(pdfDocDecode(x))
		}
		if isUTF16(x) {
			return strconv.Quote(utf16Decode(x[2:]))
		}
		return strconv.Quote(x)
	case name:
		return "/" + string(x)
	case dict:
		var keys []string
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			elem := x[name(k)]
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/")
			buf.WriteString(k)
			buf.WriteString(" ")
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString(">>")
		return buf.String()

	case array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()

	case stream:
		return fmt.Sprintf("%v@%d", objfmt(x.hdr), x.offset)

	case objptr:
		return fmt.Sprintf("%d %d R", x.id, x.gen)

	case objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.ptr.id, x.ptr.gen, objfmt(x.obj))
	}
}

// Bool returns v's boolean value.
// If v.Kind() != Bool, Bool returns false.
func (v Value) Bool() bool {
	x, ok := v.data.(bool)
	if !ok {
		return false
	}
	return x
}

// Int64 returns v's int64 value.
// If v.Kind() != Int64, Int64 returns 0.
func (v Value) Int64() int64 {
	x, ok := v.data.(int64)
	if !ok {
		return 0
	}
	return x
}

// Float64 returns v's float64 value, converting from integer if necessary.
// If v.Kind() != Float64 and v.Kind() != Int64, Float64 returns 0.
func (v Value) Float64() float64 {
	x, ok := v.data.(float64)
	if !ok {
		x, ok := v.data.(int64)
		if ok {
			return float64(x)
		}
		return 0
	}
	return x
}

// RawString returns v's string value.
// If v.Kind() != String, RawString returns the empty string.
func (v Value) RawString() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	return x
}

// Text returns v's string value interpreted as a “text string” (ISO 32000 section 7.9.2)
// and converted to UTF-8.
// If v.Kind() != String, Text returns the empty string.
func (v Value) Text() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	if isUTF16(x) {
		return utf16Decode(x[2:])
	}
	return pdfDocDecode(x)
}

// Name returns v's name value.
// If v.Kind() != Name, Name returns the empty string.
// The returned name does not include the leading slash:
// if v corresponds to the name written using the syntax /Helvetica,
// Name() == "Helvetica".
func (v Value) Name() string {
	x, ok := v.data.(name)
	if !ok {
		return ""
	}
	return string(x)
}

// Key returns the value associated with the given name key in the dictionary v.
// Like the result of the Name method, the key should not include a leading slash.
// If v is a stream, Key applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Key returns a null Value.
func (v Value) Key(key string) Value {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return Value{}
		}
		x = strm.hdr
	}
	return v.r.resolve(v.ptr, x[name(key)])
}

// Keys returns a sorted list of the keys in the dictionary v.
// If v is a stream, Keys applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Keys returns nil.
func (v Value) Keys() []string {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return nil
		}
		x = strm.hdr
	}
	keys := []string{} // not nil
	for k := range x {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element in the array v.
// If v.Kind() != Array or if i is outside the array bounds,
// Index returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return v.r.resolve(v.ptr, x[i])
}

// Len returns the length of the array v.
// If v.Kind() != Array, Len returns 0.
func (v Value) Len() int {
	x, ok := v.data.(array)
	if !ok {
		return 0
	}
	return len(x)
}

func (r *Reader) resolve(parent objptr, x interface{}) Value {
	if ptr, ok := x.(objptr); ok {
		if r == nil {
			return Value{}
		}
		obj, ok := r.load(ptr)
		if !ok {
			return Value{}
		}
		x = obj
		parent = ptr
	}

	switch x := x.(type) {
	case nil, bool, int64, float64, name, dict, array, stream, string:
		return Value{r, parent, x}
	default:
		logger.Debug(fmt.Sprintf("unexpected value type %T in resolve", x))
		return Value{}
	}
}

// load returns the object definition for ptr, consulting the object cache.
func (r *Reader) load(ptr objptr) (obj object, ok bool) {
	if ptr.id >= uint32(len(r.xref)) {
		return nil, false
	}
	r.mu.Lock()
	obj, ok = r.cache[ptr]
	r.mu.Unlock()
	if ok {
		return obj, true
	}

	defer func() {
		if e := recover(); e != nil {
			logger.Debug(fmt.Sprintf("loading %d %d R: %v", ptr.id, ptr.gen, e))
			obj, ok = nil, false
		}
	}()

	x := r.xref[ptr.id]
	if x.ptr != ptr || !x.inStream && x.offset == 0 {
		return nil, false
	}
	if x.inStream {
		obj, ok = r.loadFromObjStm(ptr, x)
	} else {
		b := newBuffer(io.NewSectionReader(r.f, x.offset, r.end-x.offset), x.offset)
		def, isDef := b.readObject().(objdef)
		if !isDef || def.ptr != ptr {
			return nil, false
		}
		obj = def.obj
		if s, isStream := obj.(stream); isStream {
			s.ptr = ptr
			obj = s
		}
		ok = true
	}
	if ok {
		r.mu.Lock()
		if r.cache == nil {
			r.cache = make(map[objptr]object)
		}
		r.cache[ptr] = obj
		r.mu.Unlock()
	}
	return obj, ok
}

func (r *Reader) loadFromObjStm(ptr objptr, x xref) (object, bool) {
	strm := r.resolve(objptr{}, x.stream)
	for depth := 0; depth < 16; depth++ {
		if strm.Kind() != Stream || strm.Key("Type").Name() != "ObjStm" {
			return nil, false
		}
		n := int(strm.Key("N").Int64())
		first := strm.Key("First").Int64()
		if first == 0 {
			return nil, false
		}
		rd := strm.Reader()
		b := newBuffer(rd, 0)
		b.allowEOF = true
		for i := 0; i < n; i++ {
			id, _ := b.readToken().(int64)
			off, _ := b.readToken().(int64)
			if uint32(id) == ptr.id {
				b.seekForward(first + off)
				obj := b.readObject()
				rd.Close()
				return obj, true
			}
		}
		rd.Close()
		strm = strm.Key("Extends")
	}
	return nil, false
}

func isUTF16(s string) bool {
	return len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff && len(s)%2 == 0
}

func utf16Decode(s string) string {
	var u []uint16
	for i := 0; i+1 < len(s); i += 2 {
		u = append(u, uint16(s[i])<<8|uint16(s[i+1]))
	}
	return string(utf16.Decode(u))
}

func isPDFDocEncoded(s string) bool {
	if isUTF16(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' || c == 0x7f {
			return false
		}
	}
	return true
}

// pdfDocDecode maps PDFDocEncoding bytes to UTF-8. The printable range
// matches Latin-1; the few differing code points in 0x80–0x9f are mapped
// explicitly.
func pdfDocDecode(s string) string {
	r := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if alt, ok := pdfDocHigh[c]; ok {
			r = append(r, alt)
			continue
		}
		r = append(r, rune(c))
	}
	return string(r)
}

var pdfDocHigh = map[byte]rune{
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…', 0x84: '—', 0x85: '–',
	0x86: 'ƒ', 0x87: '⁄', 0x88: '‹', 0x89: '›', 0x8a: '−', 0x8b: '‰',
	0x8c: '„', 0x8d: '“', 0x8e: '”', 0x8f: '‘', 0x90: '’', 0x91: '‚',
	0x92: '™', 0x93: 'ﬁ', 0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9a: 'ı', 0x9b: 'ł', 0x9c: 'œ', 0x9d: 'š',
	0x9e: 'ž', 0xa0: '€',
}
