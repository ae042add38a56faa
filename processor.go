// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"runtime"
	"sync"

	"github.com/sassoftware/viya-pdf-viewer/cache"
	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/pdf"
	"github.com/sassoftware/viya-pdf-viewer/raster"
	"golang.org/x/sync/semaphore"
)

// RenderStrategy paints a single page.
// Different strategies handle content errors differently (strict vs. best-effort).
type RenderStrategy interface {
	RenderPage(ctx context.Context, page pdf.Page, dst draw.Image, scale float64) error
}

// StrictRenderer fails the render on any content stream error.
type StrictRenderer struct{}

func (s *StrictRenderer) RenderPage(ctx context.Context, page pdf.Page, dst draw.Image, scale float64) error {
	return raster.Render(ctx, page, dst, scale)
}

// BestEffortRenderer tolerates content errors.
// If a content stream is malformed, whatever was painted before the error is kept.
type BestEffortRenderer struct{}

func (b *BestEffortRenderer) RenderPage(ctx context.Context, page pdf.Page, dst draw.Image, scale float64) error {
	err := raster.Render(ctx, page, dst, scale)
	if errors.Is(err, raster.ErrContent) {
		// In best-effort mode, keep the partial frame.
		logger.Debug("BestEffortRenderer: content error, keeping partial frame", "err", err, true)
		return nil
	}
	return err
}

// Processor is the Backend built on the pdf and raster packages. It bounds
// concurrent rasterizations and delegates page painting to the chosen
// RenderStrategy.
type Processor struct {
	cfg      *Config
	sem      *semaphore.Weighted
	renderer RenderStrategy
	cache    cache.FrameCache
}

// NewProcessor validates the config and creates a new processor.
// Selects the correct RenderStrategy (Strict or BestEffort).
func NewProcessor(cfg *Config) *Processor {
	//Select RenderStrategy
	var renderer RenderStrategy
	switch cfg.ParsingMode {
	case Strict:
		renderer = &StrictRenderer{}
	case BestEffort:
		renderer = &BestEffortRenderer{}
	}

	//Validate the config object
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	//Set the logger function
	if cfg.Logger != nil {
		logger.SetLogger(filterDebug(cfg.Logger, cfg.DebugOn))
	}

	logger.Debug(fmt.Sprintf("Processor initialized: parsing_mode=%v, max_concurrent_renders=%d, max_workers_per_document=%d",
		cfg.ParsingMode, cfg.MaxConcurrentRenders, cfg.MaxWorkersPerDocument), true)

	return &Processor{
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentRenders)),
		renderer: renderer,
		cache:    cfg.Cache,
	}
}

// filterDebug drops debug messages unless debugOn is set.
func filterDebug(f logger.LogFunc, debugOn bool) logger.LogFunc {
	if debugOn {
		return f
	}
	return func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		if level == logger.DebugLevel {
			return
		}
		f(level, msg, keyvals...)
	}
}

// Parse reads a PDF file held in memory.
func (p *Processor) Parse(ctx context.Context, data []byte) (doc Document, err error) {
	defer func() {
		if e := recover(); e != nil {
			logger.Debug(fmt.Sprintf("Recovered from panic while parsing: %v", e), true)
			doc, err = nil, fmt.Errorf("malformed PDF: %v", e)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Debug(fmt.Sprintf("Failed to open PDF: bytes=%d err=%v", len(data), err), true)
		return nil, err
	}
	sum := sha256.Sum256(data)
	d := &pdfDocument{
		p:      p,
		r:      r,
		digest: hex.EncodeToString(sum[:]),
		pages:  r.NumPage(),
	}
	logger.Debug(fmt.Sprintf("Total pages detected: pages=%d version=%s", d.pages, r.Version()), true)
	return d, nil
}

// Metadata returns the document information of a PDF file held in memory.
func (p *Processor) Metadata(ctx context.Context, data []byte) (pdf.Info, error) {
	doc, err := p.Parse(ctx, data)
	if err != nil {
		return pdf.Info{}, err
	}
	return doc.(*pdfDocument).r.Info(), nil
}

type pdfDocument struct {
	p      *Processor
	r      *pdf.Reader
	digest string
	pages  int
}

func (d *pdfDocument) PageCount() int { return d.pages }

func (d *pdfDocument) Page(ctx context.Context, n int) (Page, error) {
	if n < 1 || n > d.pages {
		return nil, fmt.Errorf("page %d of %d: %w", n, d.pages, ErrPageOutOfRange)
	}
	page := d.r.Page(n)
	if page.V.IsNull() {
		logger.Debug(fmt.Sprintf("Null page encountered: index=%d", n), true)
		return nil, fmt.Errorf("null page %d", n)
	}
	return &pdfPage{doc: d, num: n, page: page}, nil
}

type pdfPage struct {
	doc  *pdfDocument
	num  int
	page pdf.Page
}

func (pg *pdfPage) NativeSize() Size {
	w, h := pg.page.Size()
	return Size{Width: w, Height: h}
}

func (pg *pdfPage) Render(ctx context.Context, dst draw.Image, vp Viewport) error {
	return pg.doc.p.renderPage(ctx, pg, dst, vp.Scale)
}

func (p *Processor) renderPage(ctx context.Context, pg *pdfPage, dst draw.Image, scale float64) error {
	key := cache.Key(pg.doc.digest, pg.num, scale)
	if p.fromCache(ctx, key, dst) {
		logger.Debug(fmt.Sprintf("Frame served from cache: page=%d scale=%v", pg.num, scale), true)
		return nil
	}

	if err := p.acquireSlot(ctx); err != nil {
		logger.Debug(fmt.Sprintf("Failed to acquire slot: err=%v", err), true)
		return err
	}
	defer p.sem.Release(1)

	ctxPage, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()
	if err := p.renderSafely(ctxPage, pg.page, dst, scale); err != nil {
		logger.Debug(fmt.Sprintf("Page render error: page=%d err=%v", pg.num, err), true)
		return err
	}
	p.toCache(ctx, key, dst)
	return nil
}

func (p *Processor) renderSafely(ctx context.Context, page pdf.Page, dst draw.Image, scale float64) (err error) {
	defer func() {
		if e := recover(); e != nil {
			logger.Debug(fmt.Sprintf("Recovered from panic while rendering: %v", e), true)
			err = fmt.Errorf("render panic: %v", e)
		}
	}()
	return p.renderer.RenderPage(ctx, page, dst, scale)
}

func (p *Processor) fromCache(ctx context.Context, key string, dst draw.Image) bool {
	if p.cache == nil {
		return false
	}
	b, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.Debug(fmt.Sprintf("Frame cache read failed: key=%s err=%v", key, err), true)
		}
		return false
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil || img.Bounds().Size() != dst.Bounds().Size() {
		return false
	}
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return true
}

func (p *Processor) toCache(ctx context.Context, key string, img image.Image) {
	if p.cache == nil {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		logger.Debug(fmt.Sprintf("Frame encode failed: key=%s err=%v", key, err), true)
		return
	}
	if err := p.cache.Set(ctx, key, buf.Bytes()); err != nil {
		logger.Debug(fmt.Sprintf("Frame cache write failed: key=%s err=%v", key, err), true)
	}
}

func (p *Processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}

// PageImage is one page produced by Export. Err is set when the page could
// not be rendered.
type PageImage struct {
	Page  int
	Image *image.RGBA
	Err   error
}

// Export renders every page of doc at scale and streams the results in page
// order. In strict mode the stream ends after the first failed page. The
// channel is closed when all pages were sent or ctx is done.
func (p *Processor) Export(ctx context.Context, doc Document, scale float64) <-chan PageImage {
	total := doc.PageCount()
	logger.Debug(fmt.Sprintf("Starting export: pages=%d scale=%v", total, scale), true)

	outCh := make(chan PageImage)
	if total == 0 {
		close(outCh)
		return outCh
	}

	ctx, cancel := context.WithCancel(ctx)
	numWorkers := p.adjustWorkerCount(p.cfg.MaxWorkersPerDocument)
	jobs, results := make(chan int, total), make(chan PageImage, total)

	var wg sync.WaitGroup
	p.startWorkers(ctx, doc, scale, jobs, results, numWorkers, &wg)
	p.feedJobs(ctx, total, jobs)
	close(jobs)

	go func() {
		defer close(outCh)
		defer cancel()
		go func() {
			wg.Wait()
			close(results)
		}()
		p.streamInOrder(ctx, results, outCh)
		logger.Debug(fmt.Sprintf("Export completed: pages=%d", total), true)
	}()
	return outCh
}

func (p *Processor) streamInOrder(ctx context.Context, results chan PageImage, outCh chan PageImage) {
	pageBuffer := make(map[int]PageImage)
	nextPage := 1

	for res := range results {
		pageBuffer[res.Page] = res

		// Emit pages in-order
		for {
			img, ok := pageBuffer[nextPage]
			if !ok {
				break
			}
			select {
			case outCh <- img:
			case <-ctx.Done():
				return
			}
			delete(pageBuffer, nextPage)
			nextPage++

			if img.Err != nil && p.cfg.ParsingMode == Strict {
				logger.Debug(fmt.Sprintf("Strict mode error, stopping export: page=%d err=%v", img.Page, img.Err), true)
				return
			}
		}
	}
}

func (p *Processor) adjustWorkerCount(maxWorkers int) int {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if n := runtime.NumCPU(); maxWorkers > n {
		maxWorkers = n
	}
	logger.Debug(fmt.Sprintf("Adjusted worker count: workers=%d", maxWorkers), true)
	return maxWorkers
}

func (p *Processor) startWorkers(ctx context.Context, doc Document, scale float64, jobs <-chan int, results chan<- PageImage, numWorkers int, wg *sync.WaitGroup) {
	logger.Debug(fmt.Sprintf("Spawning workers: num_workers=%d", numWorkers), true)
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range jobs {
				img, err := p.exportPage(ctx, doc, i, scale)
				results <- PageImage{Page: i, Image: img, Err: err}
				if err != nil {
					logger.Debug(fmt.Sprintf("Worker: page render error: worker_id=%d page=%d err=%v", id, i, err), true)
				}
			}
		}(w)
	}
}

func (p *Processor) exportPage(ctx context.Context, doc Document, n int, scale float64) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := doc.Page(ctx, n)
	if err != nil {
		return nil, err
	}
	w, h, err := outputSize(page.NativeSize(), scale, p.cfg.MaxOutputPixels)
	if err != nil {
		return nil, &RenderError{Page: n, Scale: scale, Err: err}
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := page.Render(ctx, img, Viewport{Scale: scale}); err != nil {
		return nil, &RenderError{Page: n, Scale: scale, Err: err}
	}
	return img, nil
}

func (p *Processor) feedJobs(ctx context.Context, total int, jobs chan<- int) error {
	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled while feeding jobs", true)
			return ctx.Err()
		case jobs <- i:
		}
	}
	logger.Debug(fmt.Sprintf("All jobs queued: total_pages=%d", total), true)
	return nil
}
