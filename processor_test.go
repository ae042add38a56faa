// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/sassoftware/viya-pdf-viewer/cache"
	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/pdf/pdftest"
	"github.com/sassoftware/viya-pdf-viewer/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// create a Processor
func newTestProcessor(mode ParsingMode) *Processor {
	cfg := NewDefaultConfig()
	cfg.ParsingMode = mode
	return NewProcessor(cfg)
}

func samplePDF() []byte {
	return pdftest.BuildWithOptions(pdftest.Options{Title: "Section A-A"},
		pdftest.Page{Width: 200, Height: 100, Content: "1 0 0 rg 0 0 100 100 re f"},
		pdftest.Page{Content: "BT /F1 12 Tf 72 720 Td (Hello) Tj ET"},
		pdftest.Page{Width: 300, Height: 200, Rotate: 90},
	)
}

func renderFirst(t *testing.T, proc *Processor, data []byte, scale float64) (*image.RGBA, error) {
	t.Helper()
	doc, err := proc.Parse(context.Background(), data)
	require.NoError(t, err)
	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)
	size := page.NativeSize()
	img := image.NewRGBA(image.Rect(0, 0, int(size.Width*scale), int(size.Height*scale)))
	return img, page.Render(context.Background(), img, Viewport{Scale: scale})
}

func TestProcessor_Parse(t *testing.T) {
	proc := newTestProcessor(BestEffort)
	ctx := context.Background()

	doc, err := proc.Parse(ctx, samplePDF())
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount())

	sizes := []Size{{200, 100}, {612, 792}, {200, 300}}
	for i, want := range sizes {
		page, err := doc.Page(ctx, i+1)
		require.NoError(t, err)
		assert.Equal(t, want, page.NativeSize(), "page %d", i+1)
	}

	_, err = doc.Page(ctx, 4)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = doc.Page(ctx, 0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, err = proc.Parse(ctx, []byte("<html>not a pdf</html>"))
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = proc.Parse(cancelled, samplePDF())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_Render(t *testing.T) {
	proc := newTestProcessor(Strict)
	img, err := renderFirst(t, proc, samplePDF(), 2)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{0xff, 0, 0, 0xff}, img.RGBAAt(100, 100))
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, img.RGBAAt(300, 100))
}

// StrictRenderer and BestEffortRenderer
func TestRenderStrategies(t *testing.T) {
	data := pdftest.Build(pdftest.Page{Width: 100, Height: 100, Content: "0 0 1 rg 0 0 100 100 re f ) 0 g"})

	_, err := renderFirst(t, newTestProcessor(Strict), data, 1)
	assert.ErrorIs(t, err, raster.ErrContent)

	img, err := renderFirst(t, newTestProcessor(BestEffort), data, 1)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0xff, 0xff}, img.RGBAAt(50, 50), "partial frame kept")
}

func TestProcessor_FrameCache(t *testing.T) {
	data := samplePDF()
	mem := cache.NewMemory(8)
	cfg := NewDefaultConfig()
	cfg.Cache = mem
	proc := NewProcessor(cfg)

	_, err := renderFirst(t, proc, data, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())

	// replace the cached frame and check it is served instead of rendering
	sum := sha256.Sum256(data)
	key := cache.Key(hex.EncodeToString(sum[:]), 1, 1)
	green := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for i := range green.Pix {
		if i%4 == 1 || i%4 == 3 {
			green.Pix[i] = 0xff
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, green))
	require.NoError(t, mem.Set(context.Background(), key, buf.Bytes()))

	img, err := renderFirst(t, proc, data, 1)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0xff, 0, 0xff}, img.RGBAAt(10, 10))

	// a different scale misses
	_, err = renderFirst(t, proc, data, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2, mem.Len())
}

func TestProcessor_RenderCancelled(t *testing.T) {
	proc := newTestProcessor(BestEffort)
	doc, err := proc.Parse(context.Background(), samplePDF())
	require.NoError(t, err)
	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = page.Render(ctx, image.NewRGBA(image.Rect(0, 0, 200, 100)), Viewport{Scale: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_Metadata(t *testing.T) {
	proc := newTestProcessor(BestEffort)
	info, err := proc.Metadata(context.Background(), samplePDF())
	require.NoError(t, err)
	assert.Equal(t, "Section A-A", info.Title)
	assert.Equal(t, 3, info.Pages)
}

// Processor.Export
func TestProcessor_Export(t *testing.T) {
	proc := newTestProcessor(BestEffort)
	ctx := context.Background()
	doc, err := proc.Parse(ctx, samplePDF())
	require.NoError(t, err)

	var got []int
	for res := range proc.Export(ctx, doc, 0.5) {
		require.NoError(t, res.Err)
		got = append(got, res.Page)
		if res.Page == 2 {
			assert.Equal(t, image.Rect(0, 0, 306, 396), res.Image.Bounds())
		}
	}
	assert.Equal(t, []int{1, 2, 3}, got, "pages emitted in order")
}

func TestProcessor_ExportStrict(t *testing.T) {
	data := pdftest.Build(
		pdftest.Page{Width: 50, Height: 50},
		pdftest.Page{Width: 50, Height: 50, Content: "0 0 m )"},
		pdftest.Page{Width: 50, Height: 50},
	)
	ctx := context.Background()

	strict := newTestProcessor(Strict)
	doc, err := strict.Parse(ctx, data)
	require.NoError(t, err)
	var results []PageImage
	for res := range strict.Export(ctx, doc, 1) {
		results = append(results, res)
	}
	require.Len(t, results, 2, "strict export stops at the failed page")
	assert.NoError(t, results[0].Err)
	var re *RenderError
	require.ErrorAs(t, results[1].Err, &re)
	assert.Equal(t, 2, re.Page)

	lenient := newTestProcessor(BestEffort)
	doc, err = lenient.Parse(ctx, data)
	require.NoError(t, err)
	n := 0
	for res := range lenient.Export(ctx, doc, 1) {
		assert.NoError(t, res.Err)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestStreamInOrder(t *testing.T) {
	proc := newTestProcessor(BestEffort)

	results := make(chan PageImage)
	outCh := make(chan PageImage, 3)

	// Send pages out of order
	go func() {
		results <- PageImage{Page: 3}
		results <- PageImage{Page: 1}
		results <- PageImage{Page: 2}
		close(results)
	}()

	proc.streamInOrder(context.Background(), results, outCh)
	close(outCh)

	var order []int
	for res := range outCh {
		order = append(order, res.Page)
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestAdjustWorkerCount(t *testing.T) {
	proc := &Processor{}

	assert.Equal(t, 1, proc.adjustWorkerCount(0))
	assert.Equal(t, runtime.NumCPU(), proc.adjustWorkerCount(runtime.NumCPU()+4))
	assert.Equal(t, min(2, runtime.NumCPU()), proc.adjustWorkerCount(2))
}

func TestFilterDebug(t *testing.T) {
	var levels []logger.LogLevel
	f := func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		levels = append(levels, level)
	}

	quiet := filterDebug(f, false)
	quiet(logger.DebugLevel, "dropped")
	quiet(logger.ErrorLevel, "kept")
	assert.Equal(t, []logger.LogLevel{logger.ErrorLevel}, levels)

	levels = nil
	filterDebug(f, true)(logger.DebugLevel, "kept")
	assert.Equal(t, []logger.LogLevel{logger.DebugLevel}, levels)
}

// The controller driven end to end over HTTP with the PDF processor.
func TestControllerWithProcessor(t *testing.T) {
	data := samplePDF()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pdf/plan-7" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(data)
	}))
	defer srv.Close()

	cfg := NewDefaultConfig()
	surface := &ImageSurface{}
	c, err := New(cfg, NewHTTPSource(srv.URL, cfg), NewProcessor(cfg), surface)
	require.NoError(t, err)
	d := NewDispatcher(c)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, Event{Trigger: TriggerResize, Width: 400}))
	require.NoError(t, d.Dispatch(ctx, Event{Trigger: TriggerLoad, DocumentID: "plan-7"}))
	st := c.State()
	assert.Equal(t, 3, st.TotalPages)
	assert.Equal(t, 2.0, st.Scale)
	assert.Equal(t, 400, st.OutputWidth)
	assert.Equal(t, 200, st.OutputHeight)

	fr, ok := surface.Frame()
	require.True(t, ok)
	assert.Equal(t, color.RGBA{0xff, 0, 0, 0xff}, fr.Image.RGBAAt(100, 100))

	var buf bytes.Buffer
	require.NoError(t, surface.WritePNG(&buf))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 200), decoded.Bounds())

	err = d.Dispatch(ctx, Event{Trigger: TriggerLoad, DocumentID: "missing"})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, c.State().TotalPages)
}
