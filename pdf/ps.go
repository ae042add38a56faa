// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"fmt"
	"io"
)

// A Stack represents a stack of values.
type Stack struct {
	stack []Value
}

// Len returns the number of values on the stack.
func (stk *Stack) Len() int {
	return len(stk.stack)
}

// Push pushes v onto the stack.
func (stk *Stack) Push(v Value) {
	stk.stack = append(stk.stack, v)
}

// Pop removes and returns the top value. An empty stack yields a null Value.
func (stk *Stack) Pop() Value {
	n := len(stk.stack)
	if n == 0 {
		return Value{}
	}
	v := stk.stack[n-1]
	stk.stack[n-1] = Value{}
	stk.stack = stk.stack[:n-1]
	return v
}

// Args pops every operand and returns them in push order.
func (stk *Stack) Args() []Value {
	args := make([]Value, len(stk.stack))
	copy(args, stk.stack)
	stk.reset()
	return args
}

func (stk *Stack) reset() {
	for i := range stk.stack {
		stk.stack[i] = Value{}
	}
	stk.stack = stk.stack[:0]
}

// Interpret interprets the content stream (or array of content streams) in
// strm, calling do for each operator with its operands on the stack.
// Operands left on the stack by do are discarded.
//
// Inline images are skipped; do is called with op "BI" and the image
// dictionary as the only operand.
func Interpret(strm Value, do func(stk *Stack, op string)) error {
	rd := contentReader(strm)
	defer rd.Close()
	return InterpretReader(strm.r, rd, do)
}

// InterpretReader is like Interpret but reads the operators from rd.
// Values that reference other objects resolve through r, which may be nil
// for self-contained input.
func InterpretReader(r *Reader, rd io.Reader, do func(stk *Stack, op string)) (err error) {
	defer func() {
		if e := recover(); e != nil {
			if ee, ok := e.(error); ok {
				err = fmt.Errorf("content stream: %w", ee)
				return
			}
			err = fmt.Errorf("content stream: %v", e)
		}
	}()

	b := newBuffer(rd, 0)
	b.allowEOF = true
	b.allowObjptr = false
	b.allowStream = false
	var stk Stack
	for {
		tok := b.readToken()
		if tok == io.EOF {
			return nil
		}
		kw, ok := tok.(keyword)
		if !ok {
			b.unreadToken(tok)
			stk.Push(Value{r, objptr{}, b.readObject()})
			continue
		}
		switch kw {
		case "null", "[", "<<":
			b.unreadToken(tok)
			stk.Push(Value{r, objptr{}, b.readObject()})
			continue
		case "]", ">>", "{", "}":
			// stray delimiters and calculator braces carry no drawing
			continue
		case "BI":
			stk.reset()
			stk.Push(Value{r, objptr{}, b.readInlineImage()})
			do(&stk, "BI")
			stk.reset()
			continue
		}
		do(&stk, string(kw))
		stk.reset()
	}
}

// readInlineImage reads the dictionary of an inline image and skips its
// data up to the closing EI.
func (b *buffer) readInlineImage() dict {
	hdr := make(dict)
	for {
		tok := b.readToken()
		if tok == io.EOF {
			b.errorf("unexpected EOF in inline image")
		}
		if tok == keyword("ID") {
			break
		}
		key, ok := tok.(name)
		if !ok {
			b.errorf("unexpected %v in inline image dictionary", tok)
		}
		hdr[key] = b.readObject()
	}

	b.readByte() // single white-space byte after ID
	w0, w1, w2 := byte(' '), byte(0), byte(0)
	for !b.eof {
		c := b.readByte()
		if isSpace(w0) && w1 == 'E' && w2 == 'I' && (isSpace(c) || isDelim(c)) {
			b.unreadByte()
			return hdr
		}
		w0, w1, w2 = w1, w2, c
	}
	b.errorf("unterminated inline image")
	return nil
}
