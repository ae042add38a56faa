// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"

	"github.com/sassoftware/viya-pdf-viewer/logger"
)

// ErrUnsupportedFilter is reported by stream readers whose filter chain
// names a filter this package cannot decode.
var ErrUnsupportedFilter = errors.New("unsupported stream filter")

type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errorReadCloser) Close() error {
	return e.err
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Reader returns the data contained in the stream v.
// If v.Kind() != Stream, Reader returns a ReadCloser that
// responds to all reads with a “stream not present” error.
// Unsupported filters are reported the same way, wrapping ErrUnsupportedFilter.
func (v Value) Reader() io.ReadCloser {
	x, ok := v.data.(stream)
	if !ok {
		return &errorReadCloser{errors.New("stream not present")}
	}
	length := v.Key("Length").Int64()
	if length < 0 || x.offset+length > v.r.end {
		length = v.r.end - x.offset
	}
	var rd io.Reader = io.NewSectionReader(v.r.f, x.offset, length)
	rc := &readCloser{}

	filter := v.Key("Filter")
	param := v.Key("DecodeParms")
	if param.IsNull() {
		param = v.Key("DP")
	}
	var err error
	switch filter.Kind() {
	default:
		err = fmt.Errorf("%w: filter of kind %v", ErrUnsupportedFilter, filter.Kind())
	case Null:
		// ok
	case Name:
		rd, err = applyFilter(rd, filter.Name(), param, rc)
	case Array:
		for i := 0; i < filter.Len() && err == nil; i++ {
			p := param
			if param.Kind() == Array {
				p = param.Index(i)
			}
			rd, err = applyFilter(rd, filter.Index(i).Name(), p, rc)
		}
	}
	if err != nil {
		rc.Close()
		logger.Debug("stream filter failed", "err", err)
		return &errorReadCloser{err}
	}
	rc.Reader = rd
	return rc
}

func applyFilter(rd io.Reader, filter string, param Value, rc *readCloser) (io.Reader, error) {
	switch filter {
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, filter)
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(rd)
		if err != nil {
			return nil, fmt.Errorf("flate: %w", err)
		}
		rc.closers = append(rc.closers, zr)
		return applyPredictor(zr, param)
	case "ASCII85Decode", "A85":
		return ascii85.NewDecoder(newAlphaReader(rd)), nil
	case "ASCIIHexDecode", "AHx":
		return &hexReader{r: bufio.NewReader(rd)}, nil
	case "RunLengthDecode", "RL":
		return &runLengthReader{r: bufio.NewReader(rd)}, nil
	}
}

func applyPredictor(rd io.Reader, param Value) (io.Reader, error) {
	pred := param.Key("Predictor").Int64()
	if pred <= 1 {
		return rd, nil
	}
	colors := param.Key("Colors").Int64()
	if colors <= 0 {
		colors = 1
	}
	bpc := param.Key("BitsPerComponent").Int64()
	if bpc <= 0 {
		bpc = 8
	}
	columns := param.Key("Columns").Int64()
	if columns <= 0 {
		columns = 1
	}
	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((colors*bpc*columns + 7) / 8)

	switch {
	case pred == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("%w: TIFF predictor with %d bits per component", ErrUnsupportedFilter, bpc)
		}
		return &tiffReader{r: rd, bpp: bpp, row: make([]byte, rowLen)}, nil
	case pred >= 10:
		return &pngReader{r: rd, bpp: bpp, prev: make([]byte, rowLen), cur: make([]byte, 1+rowLen)}, nil
	}
	return nil, fmt.Errorf("%w: predictor %d", ErrUnsupportedFilter, pred)
}

// pngReader undoes the PNG row filters. Each row carries its own filter
// type byte, so mixed filters within one stream are fine.
type pngReader struct {
	r    io.Reader
	bpp  int
	prev []byte
	cur  []byte
	pend []byte
}

func (p *pngReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(p.pend) > 0 {
			m := copy(b, p.pend)
			n += m
			b = b[m:]
			p.pend = p.pend[m:]
			continue
		}
		if _, err := io.ReadFull(p.r, p.cur); err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return n, err
		}
		row := p.cur[1:]
		switch p.cur[0] {
		case 0:
		case 1:
			for i := p.bpp; i < len(row); i++ {
				row[i] += row[i-p.bpp]
			}
		case 2:
			for i := range row {
				row[i] += p.prev[i]
			}
		case 3:
			for i := range row {
				var left byte
				if i >= p.bpp {
					left = row[i-p.bpp]
				}
				row[i] += byte((int(left) + int(p.prev[i])) / 2)
			}
		case 4:
			for i := range row {
				var left, upLeft byte
				if i >= p.bpp {
					left = row[i-p.bpp]
					upLeft = p.prev[i-p.bpp]
				}
				row[i] += paeth(left, p.prev[i], upLeft)
			}
		default:
			return n, fmt.Errorf("malformed PNG predictor row type %d", p.cur[0])
		}
		copy(p.prev, row)
		p.pend = p.prev
	}
	return n, nil
}

func paeth(a, b, c byte) byte {
	pa := abs(int(b) - int(c))
	pb := abs(int(a) - int(c))
	pc := abs(int(a) + int(b) - 2*int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type tiffReader struct {
	r    io.Reader
	bpp  int
	row  []byte
	pend []byte
}

func (t *tiffReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(t.pend) > 0 {
			m := copy(b, t.pend)
			n += m
			b = b[m:]
			t.pend = t.pend[m:]
			continue
		}
		if _, err := io.ReadFull(t.r, t.row); err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return n, err
		}
		for i := t.bpp; i < len(t.row); i++ {
			t.row[i] += t.row[i-t.bpp]
		}
		t.pend = t.row
	}
	return n, nil
}

// alphaReader feeds the ascii85 decoder: it drops an optional "<~" prefix
// and reports EOF at the "~>" end marker.
type alphaReader struct {
	r     *bufio.Reader
	start bool
	done  bool
}

func newAlphaReader(r io.Reader) *alphaReader {
	return &alphaReader{r: bufio.NewReader(r), start: true}
}

func (a *alphaReader) Read(p []byte) (int, error) {
	if a.start {
		a.start = false
		if pre, err := a.r.Peek(2); err == nil && bytes.Equal(pre, []byte("<~")) {
			a.r.Discard(2)
		}
	}
	n := 0
	for n < len(p) && !a.done {
		c, err := a.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if c == '~' {
			a.done = true
			break
		}
		p[n] = c
		n++
	}
	if n == 0 && a.done {
		return 0, io.EOF
	}
	return n, nil
}

type hexReader struct {
	r    *bufio.Reader
	done bool
}

func (h *hexReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && !h.done {
		hi, ok := h.nibble()
		if !ok {
			break
		}
		lo, ok := h.nibble()
		if !ok {
			lo = 0
		}
		p[n] = byte(hi<<4 | lo)
		n++
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (h *hexReader) nibble() (int, bool) {
	for {
		c, err := h.r.ReadByte()
		if err != nil || c == '>' {
			h.done = true
			return 0, false
		}
		if isSpace(c) {
			continue
		}
		x := unhex(c)
		if x < 0 {
			h.done = true
			return 0, false
		}
		return x, true
	}
}

type runLengthReader struct {
	r    *bufio.Reader
	pend []byte
	done bool
}

func (rl *runLengthReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(rl.pend) > 0 {
			m := copy(p[n:], rl.pend)
			n += m
			rl.pend = rl.pend[m:]
			continue
		}
		if rl.done {
			break
		}
		length, err := rl.r.ReadByte()
		if err != nil || length == 128 {
			rl.done = true
			break
		}
		if length < 128 {
			buf := make([]byte, int(length)+1)
			m, _ := io.ReadFull(rl.r, buf)
			rl.pend = buf[:m]
			continue
		}
		c, err := rl.r.ReadByte()
		if err != nil {
			rl.done = true
			break
		}
		rl.pend = bytes.Repeat([]byte{c}, 257-int(length))
	}
	if n == 0 && rl.done {
		return 0, io.EOF
	}
	return n, nil
}
