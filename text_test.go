// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"context"
	"testing"

	"github.com/sassoftware/viya-pdf-viewer/pdf"
	"github.com/sassoftware/viya-pdf-viewer/pdf/pdftest"
	"github.com/sassoftware/viya-pdf-viewer/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planSheet() []byte {
	return pdftest.Build(
		pdftest.Page{Content: "BT /F1 12 Tf 72 720 Td (Hello) Tj 0 -14 Td (World) Tj ET " +
			"BT /F1 10 Tf 400 100 Td (Legend) Tj ET"},
		pdftest.Page{Width: 200, Height: 100},
		pdftest.Page{Content: "BT /F1 12 Tf 10 50 Td [(Hello) -1000 (there)] TJ ET"},
	)
}

func TestProcessor_Text(t *testing.T) {
	proc := newTestProcessor(BestEffort)
	pages, err := proc.Text(context.Background(), planSheet())
	require.NoError(t, err)
	require.Len(t, pages, 3)

	first := pages[0]
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 612.0, first.Width)
	assert.Equal(t, 792.0, first.Height)
	require.Len(t, first.Blocks, 2)

	body := first.Blocks[0]
	assert.Equal(t, 1, body.ID)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, "Hello\nWorld", body.Text)
	assert.InDelta(t, 72, body.BBox.X, 1e-9)
	assert.InDelta(t, 62.4, body.BBox.Y, 1e-9)
	assert.InDelta(t, 33.36, body.BBox.Width, 1e-9)
	assert.InDelta(t, 26, body.BBox.Height, 1e-9)

	legend := first.Blocks[1]
	assert.Equal(t, 2, legend.ID)
	assert.Equal(t, "Legend", legend.Text)
	assert.InDelta(t, 400, legend.BBox.X, 1e-9)

	assert.Empty(t, pages[1].Blocks)
	assert.NoError(t, pages[1].Err)

	require.Len(t, pages[2].Blocks, 1)
	assert.Equal(t, "Hello there", pages[2].Blocks[0].Text)
}

func TestProcessor_TextMalformed(t *testing.T) {
	data := pdftest.Build(
		pdftest.Page{Content: "BT /F1 12 Tf 72 720 Td (Kept) Tj (unterminated"},
		pdftest.Page{Content: "BT /F1 12 Tf 72 720 Td (Next) Tj ET"},
	)

	pages, err := newTestProcessor(BestEffort).Text(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.NoError(t, pages[0].Err)
	assert.Equal(t, "Kept", pages[0].Blocks[0].Text)
	assert.Equal(t, "Next", pages[1].Blocks[0].Text)

	pages, err = newTestProcessor(Strict).Text(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, pages, 1, "strict mode stops at the failed page")
	var re *RenderError
	require.ErrorAs(t, pages[0].Err, &re)
	assert.Equal(t, 1, re.Page)
	assert.ErrorIs(t, pages[0].Err, raster.ErrContent)

	_, err = newTestProcessor(BestEffort).Text(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}

func TestProcessor_TextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestProcessor(BestEffort).Text(ctx, planSheet())
	assert.ErrorIs(t, err, context.Canceled)
}

func glyphs(size float64, boxes ...[4]float64) []raster.Glyph {
	var out []raster.Glyph
	for i, b := range boxes {
		out = append(out, raster.Glyph{
			Text: string(rune('a' + i)),
			Min:  pdf.Point{X: b[0], Y: b[1]},
			Max:  pdf.Point{X: b[2], Y: b[3]},
			Size: size,
		})
	}
	return out
}

func TestGroupBlocks(t *testing.T) {
	tests := []struct {
		name   string
		glyphs []raster.Glyph
		want   []string
	}{
		{"empty", nil, []string{}},
		{"touching glyphs", glyphs(10, [4]float64{0, 0, 5, 10}, [4]float64{5, 0, 10, 10}), []string{"ab"}},
		{"word gap", glyphs(10, [4]float64{0, 0, 5, 10}, [4]float64{9, 0, 14, 10}), []string{"a b"}},
		{"column gap", glyphs(10, [4]float64{0, 0, 5, 10}, [4]float64{100, 0, 105, 10}), []string{"a", "b"}},
		{"next line", glyphs(10, [4]float64{0, 0, 5, 10}, [4]float64{0, 12, 5, 22}), []string{"a\nb"}},
		{"far below", glyphs(10, [4]float64{0, 0, 5, 10}, [4]float64{0, 40, 5, 50}), []string{"a", "b"}},
		{"drawn bottom up", glyphs(10, [4]float64{0, 12, 5, 22}, [4]float64{0, 0, 5, 10}), []string{"b\na"}},
		{"side by side", glyphs(10, [4]float64{60, 0, 65, 10}, [4]float64{0, 0, 5, 10}), []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := groupBlocks(3, tt.glyphs)
			got := []string{}
			for i, b := range blocks {
				got = append(got, b.Text)
				assert.Equal(t, i+1, b.ID)
				assert.Equal(t, 3, b.Page)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatText(t *testing.T) {
	assert.Equal(t, "No text extracted from the document.\n", FormatText([]PageText{{Page: 1}}))

	out := FormatText([]PageText{{
		Page: 2,
		Blocks: []TextBlock{{ID: 1, Page: 2, Text: "GENERAL NOTES", BBox: BBox{X: 36, Y: 40.4, Width: 120, Height: 12}}},
	}})
	assert.Equal(t, "PAGE 2 (1 text blocks):\n"+
		"----------------------------------------\n"+
		"Block 1 [Position: x=36, y=40, size=120x12]:\n"+
		"  \"GENERAL NOTES\"\n\n\n", out)
}
