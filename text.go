// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/pdf"
	"github.com/sassoftware/viya-pdf-viewer/raster"
)

// BBox is a box in page points with the origin at the top-left corner of
// the displayed page.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextBlock is a run of lines that sit together on the page, such as a
// paragraph, a title block entry or a drawing note.
type TextBlock struct {
	ID   int    `json:"blockId"`
	Page int    `json:"page"`
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
}

// PageText is the text of one page. Err is set when the page content could
// not be read; Blocks then holds what was read before the failure.
type PageText struct {
	Page   int         `json:"page"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Blocks []TextBlock `json:"blocks"`
	Err    error       `json:"-"`
}

// Text extracts the positioned text blocks of every page of a PDF file
// held in memory. In strict mode extraction stops after the first page
// with malformed content.
func (p *Processor) Text(ctx context.Context, data []byte) ([]PageText, error) {
	doc, err := p.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	d := doc.(*pdfDocument)
	var out []PageText
	for n := 1; n <= d.pages; n++ {
		pt, err := p.pageText(ctx, d, n)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out = append(out, pt)
		if pt.Err != nil && p.cfg.ParsingMode == Strict {
			logger.Debug(fmt.Sprintf("Strict mode error, stopping text extraction: page=%d err=%v", n, pt.Err), true)
			break
		}
	}
	logger.Debug(fmt.Sprintf("Text extracted: pages=%d", len(out)), true)
	return out, nil
}

func (p *Processor) pageText(ctx context.Context, d *pdfDocument, n int) (pt PageText, err error) {
	pt.Page = n
	page := d.r.Page(n)
	pt.Width, pt.Height = page.Size()

	if err := p.acquireSlot(ctx); err != nil {
		pt.Err = err
		return pt, err
	}
	defer p.sem.Release(1)
	ctxPage, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()

	defer func() {
		if e := recover(); e != nil {
			logger.Debug(fmt.Sprintf("Recovered from panic while reading text: %v", e), true)
			pt.Err = fmt.Errorf("text panic: %v", e)
		}
	}()
	glyphs, err := raster.Text(ctxPage, page)
	pt.Blocks = groupBlocks(n, glyphs)
	switch {
	case err == nil:
	case errors.Is(err, raster.ErrContent) && p.cfg.ParsingMode == BestEffort:
		logger.Debug("content error, keeping partial text", "page", n, "err", err, true)
	default:
		pt.Err = &RenderError{Page: n, Scale: 1, Err: err}
		return pt, err
	}
	return pt, nil
}

type textLine struct {
	text     strings.Builder
	min, max pdf.Point
	size     float64
}

func (l *textLine) add(g raster.Glyph) {
	l.text.WriteString(g.Text)
	l.min.X, l.min.Y = math.Min(l.min.X, g.Min.X), math.Min(l.min.Y, g.Min.Y)
	l.max.X, l.max.Y = math.Max(l.max.X, g.Max.X), math.Max(l.max.Y, g.Max.Y)
	l.size = math.Max(l.size, g.Size)
}

// joins reports whether g continues the line: the same baseline band and a
// forward gap of less than three font sizes.
func (l *textLine) joins(g raster.Glyph) bool {
	size := math.Max(l.size, g.Size)
	mid := (l.min.Y + l.max.Y) / 2
	gmid := (g.Min.Y + g.Max.Y) / 2
	gap := g.Min.X - l.max.X
	return math.Abs(mid-gmid) < 0.5*size && gap > -0.5*size && gap < 3*size
}

type textBlock struct {
	lines    []*textLine
	min, max pdf.Point
}

// takes reports whether l belongs under the block: less than a line of
// vertical gap and horizontal overlap with the block.
func (b *textBlock) takes(l *textLine) bool {
	gap := l.min.Y - b.max.Y
	return gap > -0.5*l.size && gap < l.size && l.min.X < b.max.X && l.max.X > b.min.X
}

// groupBlocks assembles glyphs into lines and lines into blocks. Blocks are
// numbered from 1 in reading order: top to bottom, then left to right.
func groupBlocks(page int, glyphs []raster.Glyph) []TextBlock {
	var lines []*textLine
	var cur *textLine
	for _, g := range glyphs {
		if cur != nil && cur.joins(g) {
			if g.Min.X-cur.max.X > 0.25*math.Max(cur.size, g.Size) {
				cur.text.WriteByte(' ')
			}
			cur.add(g)
			continue
		}
		cur = &textLine{min: g.Min, max: g.Max}
		cur.add(g)
		lines = append(lines, cur)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].min.Y != lines[j].min.Y {
			return lines[i].min.Y < lines[j].min.Y
		}
		return lines[i].min.X < lines[j].min.X
	})

	var blocks []*textBlock
	for _, l := range lines {
		var into *textBlock
		for _, b := range blocks {
			if b.takes(l) {
				into = b
				break
			}
		}
		if into == nil {
			into = &textBlock{min: l.min, max: l.max}
			blocks = append(blocks, into)
		}
		into.lines = append(into.lines, l)
		into.min.X, into.min.Y = math.Min(into.min.X, l.min.X), math.Min(into.min.Y, l.min.Y)
		into.max.X, into.max.Y = math.Max(into.max.X, l.max.X), math.Max(into.max.Y, l.max.Y)
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].min.Y != blocks[j].min.Y {
			return blocks[i].min.Y < blocks[j].min.Y
		}
		return blocks[i].min.X < blocks[j].min.X
	})

	out := make([]TextBlock, 0, len(blocks))
	for i, b := range blocks {
		text := make([]string, len(b.lines))
		for j, l := range b.lines {
			text[j] = l.text.String()
		}
		out = append(out, TextBlock{
			ID:   i + 1,
			Page: page,
			Text: strings.Join(text, "\n"),
			BBox: BBox{X: b.min.X, Y: b.min.Y, Width: b.max.X - b.min.X, Height: b.max.Y - b.min.Y},
		})
	}
	return out
}

// FormatText lays the blocks out as plain text, one section per page, with
// the position of each block so a reader can follow the page layout.
func FormatText(pages []PageText) string {
	var b strings.Builder
	blocks := 0
	for _, pt := range pages {
		blocks += len(pt.Blocks)
	}
	if blocks == 0 {
		return "No text extracted from the document.\n"
	}
	for _, pt := range pages {
		fmt.Fprintf(&b, "PAGE %d (%d text blocks):\n", pt.Page, len(pt.Blocks))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, tb := range pt.Blocks {
			fmt.Fprintf(&b, "Block %d [Position: x=%.0f, y=%.0f, size=%.0fx%.0f]:\n",
				tb.ID, tb.BBox.X, tb.BBox.Y, tb.BBox.Width, tb.BBox.Height)
			fmt.Fprintf(&b, "  \"%s\"\n\n", tb.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}
