// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sassoftware/viya-pdf-viewer/logger"
	"golang.org/x/text/encoding/charmap"
)

// A TextEncoding represents a mapping between
// font code points and UTF-8 text.
type TextEncoding interface {
	// Decode returns the UTF-8 text corresponding to
	// the sequence of code points in raw.
	Decode(raw string) (text string)
}

// Composite reports whether the font is a Type0 font with two-byte codes.
func (f Font) Composite() bool {
	return f.V.Key("Subtype").Name() == "Type0"
}

// CIDWidth reads a CID width from the descendant font's /W array, falling
// back to /DW.
func (f Font) CIDWidth(cid int) float64 {
	desc := f.V.Key("DescendantFonts").Index(0)
	w := desc.Key("W")
	for i := 0; i+1 < w.Len(); {
		first := int(w.Index(i).Int64())
		next := w.Index(i + 1)
		if next.Kind() == Array {
			if cid >= first && cid < first+next.Len() {
				return next.Index(cid - first).Float64()
			}
			i += 2
			continue
		}
		if i+2 >= w.Len() {
			break
		}
		if cid >= first && cid <= int(next.Int64()) {
			return w.Index(i + 2).Float64()
		}
		i += 3
	}
	if dw := desc.Key("DW"); !dw.IsNull() {
		return dw.Float64()
	}
	return 1000
}

// Encoder returns the encoding between font code point sequences and UTF-8.
// A ToUnicode CMap wins over the /Encoding entry.
func (f Font) Encoder() TextEncoding {
	if toUnicode := f.V.Key("ToUnicode"); toUnicode.Kind() == Stream {
		if m := readCmap(toUnicode); m != nil {
			return m
		}
		logger.Debug("unreadable ToUnicode CMap", "font", f.BaseFont())
	}
	enc := f.V.Key("Encoding")
	switch enc.Kind() {
	case Name:
		if e := namedEncoding(enc.Name()); e != nil {
			return e
		}
		logger.Debug("unknown encoding", "name", enc.Name())
	case Dict:
		base := namedEncoding(enc.Key("BaseEncoding").Name())
		if base == nil {
			base = pdfDocEncoder{}
		}
		return newDictEncoder(base, enc.Key("Differences"))
	}
	return pdfDocEncoder{}
}

func namedEncoding(name string) TextEncoding {
	switch name {
	case "WinAnsiEncoding":
		return &byteEncoder{charmap.Windows1252}
	case "MacRomanEncoding":
		return &byteEncoder{charmap.Macintosh}
	case "StandardEncoding", "PDFDocEncoding":
		return pdfDocEncoder{}
	}
	return nil
}

type byteEncoder struct {
	table *charmap.Charmap
}

func (e *byteEncoder) Decode(raw string) string {
	r := make([]rune, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		r = append(r, e.table.DecodeByte(raw[i]))
	}
	return string(r)
}

type pdfDocEncoder struct{}

func (pdfDocEncoder) Decode(raw string) string {
	return pdfDocDecode(raw)
}

// dictEncoder applies a /Differences array on top of a base encoding.
type dictEncoder struct {
	base  TextEncoding
	diffs map[byte]rune
}

func newDictEncoder(base TextEncoding, differences Value) *dictEncoder {
	e := &dictEncoder{base: base, diffs: make(map[byte]rune)}
	code := -1
	for i := 0; i < differences.Len(); i++ {
		x := differences.Index(i)
		switch x.Kind() {
		case Integer:
			code = int(x.Int64())
		case Name:
			if code >= 0 && code < 256 {
				if r := glyphRune(x.Name()); r != 0 {
					e.diffs[byte(code)] = r
				}
			}
			code++
		}
	}
	return e
}

func (e *dictEncoder) Decode(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if r, ok := e.diffs[raw[i]]; ok {
			b.WriteRune(r)
			continue
		}
		b.WriteString(e.base.Decode(raw[i : i+1]))
	}
	return b.String()
}

// glyphRune maps an Adobe glyph name to its character: uniXXXX and uXXXX
// forms, single-character names and the common punctuation names.
func glyphRune(name string) rune {
	if r, ok := glyphNames[name]; ok {
		return r
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return r
	}
	hex, ok := strings.CutPrefix(name, "uni")
	if ok && len(hex) >= 4 {
		hex = hex[:4]
	} else if hex, ok = strings.CutPrefix(name, "u"); !ok || len(hex) < 4 || len(hex) > 6 {
		return 0
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || !utf8.ValidRune(rune(n)) {
		return 0
	}
	return rune(n)
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "parenleft": '(', "parenright": ')',
	"asterisk": '*', "plus": '+', "comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=', "greater": '>', "question": '?',
	"at": '@', "bracketleft": '[', "backslash": '\\', "bracketright": ']', "asciicircum": '^',
	"underscore": '_', "grave": '`', "braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',
	"bullet": '•', "endash": '–', "emdash": '—', "ellipsis": '…', "minus": '−',
	"quoteleft": '‘', "quoteright": '’', "quotedblleft": '“', "quotedblright": '”',
	"quotesinglbase": '‚', "quotedblbase": '„', "degree": '°', "plusminus": '±',
	"multiply": '×', "divide": '÷', "mu": 'µ', "section": '§', "paragraph": '¶',
	"copyright": '©', "registered": '®', "trademark": '™', "fi": 'ﬁ', "fl": 'ﬂ',
	"onehalf": '½', "onequarter": '¼', "threequarters": '¾', "Euro": '€', "nbspace": ' ',
}

type byteRange struct {
	low  string
	high string
}

type bfchar struct {
	orig string
	repl string
}

type bfrange struct {
	lo  string
	hi  string
	dst Value
}

// cmap is a ToUnicode CMap.
type cmap struct {
	space   [4][]byteRange // codespace range
	bfrange []bfrange
	bfchar  []bfchar
}

// Decode translates raw character codes into Unicode runes using the CMap
// rules. Codes without a mapping keep their bytes.
func (m *cmap) Decode(raw string) string {
	var runes []rune
	for len(raw) > 0 {
		code, width := m.findNextCodespace(raw)
		if width == 0 {
			runes = append(runes, preserve(raw[:1])...)
			raw = raw[1:]
			continue
		}
		if decoded, ok := m.resolveCodeMapping(code, width); ok {
			runes = append(runes, decoded...)
		} else {
			runes = append(runes, preserve(code)...)
		}
		raw = raw[width:]
	}
	return string(runes)
}

// findNextCodespace checks raw for a valid codespace sequence of one to four bytes.
// A CMap without codespace ranges uses the width of its mappings.
func (m *cmap) findNextCodespace(raw string) (string, int) {
	ranged := false
	for n := 1; n <= 4 && n <= len(raw); n++ {
		for _, space := range m.space[n-1] {
			ranged = true
			if space.low <= raw[:n] && raw[:n] <= space.high {
				return raw[:n], n
			}
		}
	}
	if !ranged {
		if n := m.mappingWidth(); n > 0 && n <= len(raw) {
			return raw[:n], n
		}
	}
	return "", 0
}

func (m *cmap) mappingWidth() int {
	if len(m.bfchar) > 0 {
		return len(m.bfchar[0].orig)
	}
	if len(m.bfrange) > 0 {
		return len(m.bfrange[0].lo)
	}
	return 0
}

// resolveCodeMapping tries to map a code using bfchar or bfrange rules.
func (m *cmap) resolveCodeMapping(code string, width int) ([]rune, bool) {
	for _, bc := range m.bfchar {
		if len(bc.orig) == width && bc.orig == code {
			return []rune(utf16Decode(bc.repl)), true
		}
	}
	for _, br := range m.bfrange {
		if len(br.lo) != width || code < br.lo || br.hi < code {
			continue
		}
		switch br.dst.Kind() {
		case String:
			s := br.dst.RawString()
			if br.lo != code && len(s) > 0 {
				b := []byte(s)
				b[len(b)-1] += code[len(code)-1] - br.lo[len(br.lo)-1]
				s = string(b)
			}
			return []rune(utf16Decode(s)), true
		case Array:
			v := br.dst.Index(int(code[len(code)-1] - br.lo[len(br.lo)-1]))
			if v.Kind() == String {
				return []rune(utf16Decode(v.RawString())), true
			}
		}
	}
	return nil, false
}

// preserve returns code as UTF-8 when it is valid UTF-8, or one rune per
// byte otherwise.
func preserve(code string) []rune {
	if utf8.ValidString(code) {
		return []rune(code)
	}
	r := make([]rune, 0, len(code))
	for i := 0; i < len(code); i++ {
		r = append(r, rune(code[i]))
	}
	return r
}

func readCmap(toUnicode Value) *cmap {
	rd := contentReader(toUnicode)
	defer rd.Close()
	return parseCmap(toUnicode.r, rd)
}

// parseCmap reads the bfchar, bfrange and codespacerange sections of a
// CMap program. It returns nil when the program is malformed.
func parseCmap(r *Reader, rd io.Reader) *cmap {
	var m cmap
	ok := true
	err := InterpretReader(r, rd, func(stk *Stack, op string) {
		if !ok {
			return
		}
		switch op {
		case "endcodespacerange":
			args := stk.Args()
			for i := 0; i+1 < len(args); i += 2 {
				lo, hi := args[i].RawString(), args[i+1].RawString()
				if len(lo) == 0 || len(lo) > 4 || len(lo) != len(hi) {
					logger.Debug("bad codespace range")
					ok = false
					return
				}
				m.space[len(lo)-1] = append(m.space[len(lo)-1], byteRange{lo, hi})
			}
		case "endbfchar":
			args := stk.Args()
			for i := 0; i+1 < len(args); i += 2 {
				m.bfchar = append(m.bfchar, bfchar{args[i].RawString(), args[i+1].RawString()})
			}
		case "endbfrange":
			args := stk.Args()
			for i := 0; i+2 < len(args); i += 3 {
				lo, hi := args[i].RawString(), args[i+1].RawString()
				if len(lo) == 0 || len(lo) != len(hi) {
					continue
				}
				m.bfrange = append(m.bfrange, bfrange{lo, hi, args[i+2]})
			}
		}
	})
	if err != nil || !ok {
		return nil
	}
	return &m
}
