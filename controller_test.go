// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"

	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var letter = Size{Width: 612, Height: 792}

type fakePage struct {
	size Size
	err  error

	// when set, Render signals started and waits for release or ctx
	started chan struct{}
	release chan struct{}
}

func (p *fakePage) NativeSize() Size { return p.size }

func (p *fakePage) Render(ctx context.Context, dst draw.Image, vp Viewport) error {
	if p.started != nil {
		close(p.started)
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.err != nil {
		return p.err
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return nil
}

type fakeDoc struct {
	pages []*fakePage
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Page(ctx context.Context, n int) (Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, ErrPageOutOfRange
	}
	return d.pages[n-1], nil
}

// fakeBackend parses the document id returned by fakeSource.
type fakeBackend struct {
	docs map[string]*fakeDoc
}

func (b *fakeBackend) Parse(ctx context.Context, data []byte) (Document, error) {
	d, ok := b.docs[string(data)]
	if !ok {
		return nil, errors.New("not a PDF")
	}
	return d, nil
}

// fakeSource serves the ids known to b and 404 otherwise. The id
// "garbage" returns bytes the backend cannot parse. Fetches of ids in gate
// wait until the channel is closed.
func fakeSource(b *fakeBackend, gate map[string]chan struct{}) Source {
	return SourceFunc(func(ctx context.Context, id string) ([]byte, error) {
		if ch, ok := gate[id]; ok {
			<-ch
		}
		if id == "garbage" {
			return []byte("%!PS"), nil
		}
		if _, ok := b.docs[id]; !ok {
			return nil, &StatusError{Code: 404}
		}
		return []byte(id), nil
	})
}

func pages(n int, size Size) *fakeDoc {
	d := &fakeDoc{}
	for i := 0; i < n; i++ {
		d.pages = append(d.pages, &fakePage{size: size})
	}
	return d
}

type fixture struct {
	c       *Controller
	surface *ImageSurface
	backend *fakeBackend
	gate    map[string]chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := &fakeBackend{docs: map[string]*fakeDoc{
		"five":  pages(5, letter),
		"two":   pages(2, Size{Width: 200, Height: 100}),
		"huge":  pages(1, Size{Width: 200000, Height: 200000}),
		"empty": {},
	}}
	gate := map[string]chan struct{}{}
	s := &ImageSurface{}
	c, err := New(NewDefaultConfig(), fakeSource(b, gate), b, s)
	require.NoError(t, err)
	return &fixture{c: c, surface: s, backend: b, gate: gate}
}

func TestNew(t *testing.T) {
	b := &fakeBackend{}
	_, err := New(nil, fakeSource(b, nil), b, &ImageSurface{})
	assert.NoError(t, err, "nil config uses defaults")

	_, err = New(NewDefaultConfig(), nil, b, &ImageSurface{})
	assert.Error(t, err)

	cfg := NewDefaultConfig()
	cfg.ZoomFactor = 1
	_, err = New(cfg, fakeSource(b, nil), b, &ImageSurface{})
	assert.Error(t, err)
}

func TestInitialState(t *testing.T) {
	f := newFixture(t)
	st := f.c.State()
	assert.Equal(t, Unloaded, st.Status)
	assert.Equal(t, 0, st.TotalPages)
	assert.Equal(t, 1.25, st.Scale)

	ctx := context.Background()
	assert.ErrorIs(t, f.c.Next(ctx), ErrNoDocument)
	assert.ErrorIs(t, f.c.Previous(ctx), ErrNoDocument)
	assert.ErrorIs(t, f.c.ZoomIn(ctx), ErrNoDocument)
	assert.ErrorIs(t, f.c.FitToWidth(ctx), ErrNoDocument)
	assert.ErrorIs(t, f.c.RenderPage(ctx, 1, false), ErrNoDocument)
	assert.NoError(t, f.c.Resize(ctx, 500), "resize without a document only records the width")
	assert.Equal(t, 500, f.c.State().ContainerWidth)
	assert.Equal(t, 0, f.surface.Presents())
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Load(context.Background(), "five"))

	st := f.c.State()
	assert.Equal(t, Loaded, st.Status)
	assert.Equal(t, "five", st.DocumentID)
	assert.Equal(t, 1, st.CurrentPage)
	assert.Equal(t, 5, st.TotalPages)
	assert.Equal(t, 1.25, st.Scale, "no container width, scale unchanged")
	assert.Equal(t, 765, st.OutputWidth)
	assert.Equal(t, 990, st.OutputHeight)

	fr, ok := f.surface.Frame()
	require.True(t, ok)
	assert.Equal(t, 1, fr.Page)
	assert.Equal(t, "1 / 5", fr.Label())
	assert.Equal(t, image.Rect(0, 0, 765, 990), fr.Image.Bounds())
}

func TestLoadFitsContainerWidth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.Resize(ctx, 306))
	require.NoError(t, f.c.Load(ctx, "five"))

	st := f.c.State()
	assert.Equal(t, 0.5, st.Scale)
	assert.Equal(t, 306, st.OutputWidth)
	assert.Equal(t, 396, st.OutputHeight)

	// fitting never goes below the minimum scale
	require.NoError(t, f.c.Resize(ctx, 10))
	assert.Equal(t, 0.2, f.c.State().Scale)
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.Load(ctx, "five"))

	require.NoError(t, f.c.Previous(ctx))
	assert.Equal(t, 1, f.c.State().CurrentPage, "no wrap at the first page")

	require.NoError(t, f.c.Next(ctx))
	require.NoError(t, f.c.Next(ctx))
	assert.Equal(t, 3, f.c.State().CurrentPage)
	fr, _ := f.surface.Frame()
	assert.Equal(t, "3 / 5", fr.Label())

	for i := 0; i < 3; i++ {
		require.NoError(t, f.c.Previous(ctx))
	}
	assert.Equal(t, 1, f.c.State().CurrentPage)

	for i := 0; i < 10; i++ {
		require.NoError(t, f.c.Next(ctx))
	}
	assert.Equal(t, 5, f.c.State().CurrentPage, "no wrap at the last page")
	fr, _ = f.surface.Frame()
	assert.Equal(t, 5, fr.Page)

	err := f.c.RenderPage(ctx, 6, false)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.ErrorIs(t, f.c.RenderPage(ctx, 0, false), ErrPageOutOfRange)
	assert.Equal(t, 5, f.c.State().CurrentPage)
}

func TestZoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.Load(ctx, "five"))
	require.Equal(t, 1.25, f.c.State().Scale)

	require.NoError(t, f.c.ZoomIn(ctx))
	assert.InDelta(t, 1.4375, f.c.State().Scale, 1e-12)
	fr, _ := f.surface.Frame()
	assert.InDelta(t, 1.4375, fr.Scale, 1e-12)
	assert.Equal(t, 879, fr.Image.Bounds().Dx())

	require.NoError(t, f.c.ZoomOut(ctx))
	assert.InDelta(t, 1.25, f.c.State().Scale, 1e-9)

	for i := 0; i < 50; i++ {
		require.NoError(t, f.c.ZoomOut(ctx))
		assert.GreaterOrEqual(t, f.c.State().Scale, 0.2)
	}
	assert.Equal(t, 0.2, f.c.State().Scale)
}

func TestZoomStopsAtMaxScale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.Load(ctx, "two"))

	for i := 0; i < 100; i++ {
		require.NoError(t, f.c.ZoomIn(ctx))
		assert.LessOrEqual(t, f.c.State().Scale, 10.0)
	}
	st := f.c.State()
	assert.Equal(t, 10.0, st.Scale)
	assert.Equal(t, 2000, st.OutputWidth)
	fr, _ := f.surface.Frame()
	assert.Equal(t, 10.0, fr.Scale)

	// fitting a narrow page to a wide container is clamped too
	require.NoError(t, f.c.Resize(ctx, 100000))
	assert.Equal(t, 10.0, f.c.State().Scale)
}

func TestFrameTooLarge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.c.Load(ctx, "huge")
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Equal(t, 1, re.Page)
	assert.Equal(t, 0, f.surface.Presents())

	st := f.c.State()
	assert.Equal(t, Loaded, st.Status)
	assert.Equal(t, 0, st.OutputWidth, "no frame was allocated")

	// fitting to a container still lands at the minimum scale, which is
	// 40000x40000 pixels for this page
	assert.ErrorIs(t, f.c.Resize(ctx, 400), ErrFrameTooLarge)
	assert.Equal(t, 0, f.surface.Presents())

	require.NoError(t, f.c.Load(ctx, "two"))
	assert.Equal(t, 1, f.surface.Presents())

	cfg := NewDefaultConfig()
	cfg.MaxOutputPixels = 100
	c, err := New(cfg, fakeSource(f.backend, nil), f.backend, &ImageSurface{})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Load(ctx, "two"), ErrFrameTooLarge)
}

func TestFitToWidthIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.Load(ctx, "two"))
	require.NoError(t, f.c.Resize(ctx, 800))

	require.NoError(t, f.c.FitToWidth(ctx))
	first := f.c.State()
	require.NoError(t, f.c.FitToWidth(ctx))
	assert.Equal(t, first, f.c.State())
	assert.Equal(t, 4.0, first.Scale)
	assert.Equal(t, 800, first.OutputWidth)
	assert.Equal(t, 400, first.OutputHeight)

	// same width again does not render
	presents := f.surface.Presents()
	require.NoError(t, f.c.Resize(ctx, 800))
	assert.Equal(t, presents, f.surface.Presents())
}

func TestLoadErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.c.Load(ctx, "missing")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "missing", le.ID)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.Code)

	st := f.c.State()
	assert.Equal(t, Unloaded, st.Status)
	assert.Equal(t, 0, st.TotalPages)

	require.NoError(t, f.c.Load(ctx, "five"))
	require.NoError(t, f.c.Next(ctx))
	before := f.c.State()

	for _, id := range []string{"missing", "garbage", "empty"} {
		err := f.c.Load(ctx, id)
		require.ErrorAs(t, err, &le, id)
		assert.Equal(t, before, f.c.State(), "reload failure keeps %s state", id)
	}
	assert.ErrorIs(t, f.c.Load(ctx, "empty"), ErrNoPages)

	// the previous document is still usable
	require.NoError(t, f.c.Next(ctx))
	assert.Equal(t, 3, f.c.State().CurrentPage)
}

func TestRenderError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.docs["five"].pages[2].err = errors.New("bad content")
	require.NoError(t, f.c.Load(ctx, "five"))
	require.NoError(t, f.c.Next(ctx))

	err := f.c.Next(ctx)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 3, re.Page)
	assert.Equal(t, 1.25, re.Scale)

	st := f.c.State()
	assert.Equal(t, 3, st.CurrentPage, "state reflects the requested page")
	fr, _ := f.surface.Frame()
	assert.Equal(t, 2, fr.Page, "surface keeps the last good frame")

	require.NoError(t, f.c.Next(ctx))
	assert.Equal(t, 4, f.c.State().CurrentPage)
}

func TestRenderSuperseded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.Load(ctx, "five"))

	slow := f.backend.docs["five"].pages[1]
	slow.started = make(chan struct{})
	slow.release = make(chan struct{})

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = f.c.RenderPage(ctx, 2, false)
	}()
	<-slow.started

	require.NoError(t, f.c.RenderPage(ctx, 4, false))
	close(slow.release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, ErrSuperseded)
	assert.Equal(t, 4, f.c.State().CurrentPage)
	fr, _ := f.surface.Frame()
	assert.Equal(t, 4, fr.Page, "surface shows the last issued request")
}

func TestLoadSuperseded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gate["five"] = make(chan struct{})

	errc := make(chan error, 1)
	go func() { errc <- f.c.Load(ctx, "five") }()

	// wait until the slow load has started
	require.Eventually(t, func() bool { return f.c.State().Status == Loading }, time.Second, time.Millisecond)
	require.NoError(t, f.c.Load(ctx, "two"))
	close(f.gate["five"])

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	st := f.c.State()
	assert.Equal(t, "two", st.DocumentID)
	assert.Equal(t, 2, st.TotalPages)
	assert.Equal(t, Loaded, st.Status)
}

func TestLoadDropsRenderOfPreviousDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var labels []string
	record := SurfaceFunc(func(fr Frame) error {
		labels = append(labels, fr.Label())
		return nil
	})
	c, err := New(NewDefaultConfig(), fakeSource(f.backend, nil), f.backend, record)
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx, "five"))

	slow := f.backend.docs["five"].pages[1]
	slow.started = make(chan struct{})
	slow.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- c.RenderPage(ctx, 2, false) }()
	<-slow.started

	// Let the old render finish in the gap between the document swap and
	// the first render of the new document.
	var oldErr error
	logger.SetLogger(func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		if msg == "document loaded" && len(keyvals) > 1 && keyvals[1] == "two" {
			close(slow.release)
			oldErr = <-done
		}
	})
	t.Cleanup(func() {
		logger.SetLogger(func(logger.LogLevel, string, ...interface{}) {})
	})

	require.NoError(t, c.Load(ctx, "two"))
	assert.ErrorIs(t, oldErr, ErrSuperseded)
	assert.Equal(t, []string{"1 / 5", "1 / 2"}, labels, "no frame of the previous document after the swap")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "Status(9)", fmt.Sprint(Status(9)))
}
