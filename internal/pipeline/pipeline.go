// Package pipeline runs the end-to-end extraction flow: acquire a
// document, render it to page images, extract entries per page with a
// vision model, and reconcile them against the caller's request.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/labsight/labsight/internal/fetch"
	"github.com/labsight/labsight/internal/parse"
	"github.com/labsight/labsight/internal/prompts"
	"github.com/labsight/labsight/internal/providers"
	"github.com/labsight/labsight/internal/reconcile"
	"github.com/labsight/labsight/internal/render"
)

// Acquirer resolves a source into a document.
type Acquirer interface {
	Acquire(ctx context.Context, src fetch.Source) (*fetch.Document, error)
}

// Renderer converts a document into ordered page images.
type Renderer interface {
	Render(ctx context.Context, doc *fetch.Document) ([]render.Page, []string, error)
}

// Config assembles an Orchestrator.
type Config struct {
	Acquirer Acquirer
	Renderer Renderer
	Vision   providers.VisionClient
	Aliases  *reconcile.AliasTable

	PageConcurrency int           // concurrent page extractions (default 4)
	AcquireAttempts int           // total acquisition attempts incl. the first (default 2)
	Deadline        time.Duration // per-request budget; 0 disables
	ClassifyReports bool          // gate biomarker requests on a report classification pass
	Logger          *slog.Logger
}

// Orchestrator drives one request through the pipeline stages. It is
// safe for concurrent use; all per-request state lives on the stack.
type Orchestrator struct {
	acquirer        Acquirer
	renderer        Renderer
	vision          providers.VisionClient
	aliases         *reconcile.AliasTable
	pageConcurrency int
	acquireAttempts int
	deadline        time.Duration
	classifyReports bool
	logger          *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Acquirer == nil || cfg.Renderer == nil || cfg.Vision == nil {
		return nil, errors.New("pipeline requires an acquirer, a renderer and a vision client")
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 4
	}
	if cfg.AcquireAttempts <= 0 {
		cfg.AcquireAttempts = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		acquirer:        cfg.Acquirer,
		renderer:        cfg.Renderer,
		vision:          cfg.Vision,
		aliases:         cfg.Aliases,
		pageConcurrency: cfg.PageConcurrency,
		acquireAttempts: cfg.AcquireAttempts,
		deadline:        cfg.Deadline,
		classifyReports: cfg.ClassifyReports,
		logger:          cfg.Logger,
	}, nil
}

// Run executes one request. A returned error is always a *Error with a
// stable kind; everything recoverable is folded into the Result.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	reqID := uuid.New().String()
	logger := o.logger.With("request_id", reqID, "task", string(req.Task))

	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	logger.Info("pipeline started", "entities", len(req.Entities))

	doc, err := o.acquire(ctx, req.Source, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("stage complete", "stage", "acquire", "bytes", len(doc.Bytes), "mime_type", doc.MimeType)

	pages, renderWarnings, err := o.renderer.Render(ctx, doc)
	if err != nil {
		logger.Warn("render failed", "error", err)
		return nil, &Error{Kind: KindRenderFailure, Message: err.Error()}
	}

	logger.Debug("stage complete", "stage", "render", "pages", len(pages))

	result := &Result{RequestID: reqID, ModelUsed: o.vision.Name()}
	result.Warnings = append(result.Warnings, renderWarnings...)

	if req.Task == TaskBiomarkers && o.classifyReports {
		verdict, cerr := o.classify(ctx, pages, reqID)
		if cerr != nil {
			// The gate is advisory; never fail a request because the
			// classifier itself misbehaved.
			logger.Warn("report classification unavailable", "error", cerr)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("report classification unavailable: %v", cerr))
		} else {
			result.Classification = verdict
			if !verdict.IsLabReport {
				logger.Info("document rejected by classifier",
					"confidence", verdict.Confidence, "reason", verdict.Reason)
				return nil, &Error{
					Kind:    KindNotALabReport,
					Message: fmt.Sprintf("document is not a lab report (%s confidence): %s", verdict.Confidence, verdict.Reason),
				}
			}
		}
	}

	instruction, err := o.instruction(req)
	if err != nil {
		return nil, &Error{Kind: KindInternal, Message: err.Error()}
	}

	candidates, failures, warnings := o.extractPages(ctx, pages, instruction, reqID, logger)
	result.PagesFailed = failures
	result.PagesProcessed = len(pages) - len(failures)
	result.Warnings = append(result.Warnings, warnings...)

	if result.PagesProcessed == 0 && len(req.Entities) > 0 {
		result.Warnings = append(result.Warnings, "no pages produced usable output")
	}

	requested := req.Entities
	if req.Task == TaskFood {
		requested = nil
	}
	reconciled := reconcile.Reconcile(candidates, requested, o.aliases)
	result.Entities = reconciled.Entities
	result.Warnings = append(result.Warnings, reconciled.Warnings...)

	logger.Info("pipeline finished",
		"pages_processed", result.PagesProcessed,
		"pages_failed", len(result.PagesFailed),
		"entities", len(result.Entities),
		"warnings", len(result.Warnings))

	return result, nil
}

// acquire fetches the document, retrying once on transient failures.
func (o *Orchestrator) acquire(ctx context.Context, src fetch.Source, logger *slog.Logger) (*fetch.Document, error) {
	doc, err := retry.DoWithData(
		func() (*fetch.Document, error) {
			return o.acquirer.Acquire(ctx, src)
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.acquireAttempts)),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(fetch.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("acquisition retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		logger.Warn("acquisition failed", "error", err)
		return nil, acquireError(err)
	}
	return doc, nil
}

func acquireError(err error) *Error {
	switch {
	case errors.Is(err, fetch.ErrTooLarge):
		return &Error{Kind: KindDocumentTooLarge, Message: err.Error()}
	case errors.Is(err, fetch.ErrUnsupportedType):
		return &Error{Kind: KindUnsupportedMimeType, Message: err.Error()}
	case errors.Is(err, fetch.ErrUnreachable):
		return &Error{Kind: KindUnreachableSource, Message: err.Error()}
	default:
		return &Error{Kind: KindInternal, Message: err.Error()}
	}
}

func (o *Orchestrator) instruction(req *Request) (string, error) {
	switch req.Task {
	case TaskFood:
		return prompts.FoodAnalysis(req.Cuisine)
	case TaskBiomarkers, "":
		return prompts.BiomarkerExtraction(req.Entities)
	default:
		return "", fmt.Errorf("unknown task %q", req.Task)
	}
}

// classify runs the document gate on up to the first two pages.
type classificationWire struct {
	IsBloodReport bool   `json:"isBloodReport"`
	Confidence    string `json:"confidence"`
	Reason        string `json:"reason"`
}

func (o *Orchestrator) classify(ctx context.Context, pages []render.Page, reqID string) (*Classification, error) {
	sample := pages
	if len(sample) > 2 {
		sample = sample[:2]
	}
	images := make([][]byte, 0, len(sample))
	for _, p := range sample {
		images = append(images, p.Image)
	}

	resp, err := o.vision.Chat(ctx, &providers.ChatRequest{
		Prompt:    prompts.Classification(),
		Images:    images,
		JSONOnly:  true,
		RequestID: reqID + "-classify",
	})
	if err != nil {
		return nil, err
	}

	raw, err := parse.RecoverJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("classifier returned no parseable JSON: %w", err)
	}
	var wire classificationWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding classifier output: %w", err)
	}
	if wire.Confidence == "" {
		wire.Confidence = "low"
	}
	return &Classification{
		IsLabReport: wire.IsBloodReport,
		Confidence:  wire.Confidence,
		Reason:      wire.Reason,
	}, nil
}

// pageOutcome is the per-page extraction result, joined in page order.
type pageOutcome struct {
	candidates []parse.Candidate
	warnings   []string
	failure    *PageFailure
}

// extractPages fans pages out to the vision client under a concurrency
// bound. Pages abandoned at the request deadline are recorded as
// failures; the pipeline degrades to whatever completed in time.
func (o *Orchestrator) extractPages(ctx context.Context, pages []render.Page, instruction, reqID string, logger *slog.Logger) ([]parse.Candidate, []PageFailure, []string) {
	outcomes := make([]pageOutcome, len(pages))
	sem := make(chan struct{}, o.pageConcurrency)
	var wg sync.WaitGroup

	for i, page := range pages {
		if ctx.Err() != nil {
			outcomes[i] = pageOutcome{failure: &PageFailure{
				Page: page.Index, Reason: "abandoned: request deadline exceeded",
			}}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, p render.Page) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx] = o.extractPage(ctx, p, instruction, reqID, logger)
		}(i, page)
	}
	wg.Wait()

	var candidates []parse.Candidate
	var failures []PageFailure
	var warnings []string
	for _, out := range outcomes {
		if out.failure != nil {
			failures = append(failures, *out.failure)
			continue
		}
		candidates = append(candidates, out.candidates...)
		warnings = append(warnings, out.warnings...)
	}
	return candidates, failures, warnings
}

func (o *Orchestrator) extractPage(ctx context.Context, page render.Page, instruction, reqID string, logger *slog.Logger) pageOutcome {
	resp, err := o.vision.Chat(ctx, &providers.ChatRequest{
		Prompt:    instruction,
		Images:    [][]byte{page.Image},
		JSONOnly:  true,
		RequestID: fmt.Sprintf("%s-p%d", reqID, page.Index),
	})
	if err != nil {
		reason := err.Error()
		if ctx.Err() != nil {
			reason = "abandoned: request deadline exceeded"
		}
		logger.Warn("page extraction failed", "page", page.Index, "error", err)
		return pageOutcome{failure: &PageFailure{Page: page.Index, Reason: reason}}
	}

	candidates, warnings, err := parse.Entries(resp.Content, page.Index)
	if err != nil {
		// The model answered but the answer was unusable. The page was
		// processed; it just contributed nothing.
		logger.Warn("page output unparseable", "page", page.Index, "error", err)
		return pageOutcome{warnings: []string{fmt.Sprintf("page %d: %v", page.Index, err)}}
	}

	logger.Debug("page extracted", "page", page.Index,
		"entries", len(candidates), "attempts", resp.Attempts, "tokens", resp.TotalTokens)
	return pageOutcome{candidates: candidates, warnings: warnings}
}
