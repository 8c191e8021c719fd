// Package render converts acquired documents into ordered page images
// sized for vision model input.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/labsight/labsight/internal/fetch"
)

// ErrRenderFailure is returned when a document cannot be rendered at all.
// This is terminal for the whole request; a partially corrupt document
// cannot be salvaged page by page.
var ErrRenderFailure = errors.New("render failure")

// Page is a single rendered page image. Index is 0-based and defines
// page ordering for everything downstream.
type Page struct {
	Index  int
	Image  []byte
	Width  int
	Height int
}

// Config holds renderer limits.
type Config struct {
	MaxPages    int // cap on rendered pages; overflow is dropped with a warning (default 20)
	DPI         int // raster resolution for PDF pages (default 150)
	MaxImageDim int // single images larger than this are downscaled (default 2048)
	Workers     int // concurrent pdftoppm invocations (default 4)
	Logger      *slog.Logger
}

// Renderer rasterizes PDFs via pdftoppm (poppler-utils) and passes
// single images through, downscaling where needed.
type Renderer struct {
	maxPages    int
	dpi         int
	maxImageDim int
	workers     int
	logger      *slog.Logger
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	if cfg.MaxImageDim <= 0 {
		cfg.MaxImageDim = 2048
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Renderer{
		maxPages:    cfg.MaxPages,
		dpi:         cfg.DPI,
		maxImageDim: cfg.MaxImageDim,
		workers:     cfg.Workers,
		logger:      cfg.Logger,
	}
}

// Render converts a document into an ordered page sequence.
// PDFs become one image per page up to the page cap; a single image
// becomes a one-page sequence. Warnings report non-fatal degradations
// such as dropped overflow pages.
func (r *Renderer) Render(ctx context.Context, doc *fetch.Document) ([]Page, []string, error) {
	if doc == nil || len(doc.Bytes) == 0 {
		return nil, nil, fmt.Errorf("%w: empty document", ErrRenderFailure)
	}
	if doc.IsPDF() {
		return r.renderPDF(ctx, doc.Bytes)
	}
	page, err := r.passThroughImage(doc.Bytes, doc.MimeType)
	if err != nil {
		return nil, nil, err
	}
	return []Page{*page}, nil, nil
}

func (r *Renderer) renderPDF(ctx context.Context, pdf []byte) ([]Page, []string, error) {
	total, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	if total == 0 {
		return nil, nil, fmt.Errorf("%w: document has no pages", ErrRenderFailure)
	}

	var warnings []string
	count := total
	if count > r.maxPages {
		count = r.maxPages
		warnings = append(warnings, fmt.Sprintf(
			"page limit reached: rendered %d of %d pages, dropped %d", count, total, total-count))
	}

	// pdftoppm reads from a file, so the PDF goes to a temp dir shared by
	// all page renders for this document.
	tmpDir, err := os.MkdirTemp("", "labsight-render-*")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: temp dir: %v", ErrRenderFailure, err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		return nil, nil, fmt.Errorf("%w: writing temp PDF: %v", ErrRenderFailure, err)
	}

	pages := make([]Page, count)
	errs := make([]error, count)
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i := 0; i < count; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			page, perr := r.renderPDFPage(ctx, pdfPath, tmpDir, idx)
			if perr != nil {
				errs[idx] = perr
				return
			}
			pages[idx] = *page
		}(i)
	}
	wg.Wait()

	for _, perr := range errs {
		if perr != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrRenderFailure, perr)
		}
	}

	r.logger.Debug("rendered PDF", "pages", count, "total", total, "dpi", r.dpi)
	return pages, warnings, nil
}

// renderPDFPage rasterizes one page (0-based index) with pdftoppm.
func (r *Renderer) renderPDFPage(ctx context.Context, pdfPath, tmpDir string, index int) (*Page, error) {
	pageNum := fmt.Sprintf("%d", index+1)
	prefix := filepath.Join(tmpDir, fmt.Sprintf("page-%04d", index))

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageNum,
		"-l", pageNum,
		"-r", fmt.Sprintf("%d", r.dpi),
		"-singlefile",
		pdfPath,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %d: %v (output: %s)", index+1, err, out)
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d: %v", index+1, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding rendered page %d: %v", index+1, err)
	}

	return &Page{Index: index, Image: data, Width: cfg.Width, Height: cfg.Height}, nil
}
