package pipeline

import (
	"context"
	"fmt"

	"github.com/labsight/labsight/internal/fetch"
	"github.com/labsight/labsight/internal/reconcile"
)

// Task selects the extraction behavior for a request.
type Task string

const (
	// TaskBiomarkers extracts lab results from a blood test report.
	TaskBiomarkers Task = "biomarkers"
	// TaskFood extracts nutritional values from a food photo.
	TaskFood Task = "food"
)

// Request is one end-to-end extraction job.
type Request struct {
	Task     Task
	Source   fetch.Source
	Entities []string // requested biomarker names; empty means extract everything
	Cuisine  string   // optional hint for food analysis
}

// PageFailure records a page that produced no usable output.
type PageFailure struct {
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}

// Classification is the document gate verdict, reported even when the
// document passes.
type Classification struct {
	IsLabReport bool   `json:"isLabReport"`
	Confidence  string `json:"confidence"` // low, medium or high
	Reason      string `json:"reason,omitempty"`
}

// Result is a completed extraction. A request that reaches extraction
// always produces a Result; page-level trouble degrades into
// PagesFailed and Warnings rather than failing the request.
type Result struct {
	Entities       []reconcile.Entity `json:"entities"`
	PagesProcessed int                `json:"pagesProcessed"`
	PagesFailed    []PageFailure      `json:"pagesFailed,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	Classification *Classification    `json:"classification,omitempty"`
	ModelUsed      string             `json:"modelUsed,omitempty"`
	RequestID      string             `json:"requestId,omitempty"`
}

// Error kinds for terminal pipeline failures.
const (
	KindDocumentTooLarge    = "document_too_large"
	KindUnsupportedMimeType = "unsupported_mime_type"
	KindUnreachableSource   = "unreachable_source"
	KindRenderFailure       = "render_failure"
	KindNotALabReport       = "not_a_lab_report"
	KindInternal            = "internal"
)

// Error is a terminal pipeline failure. Kind is a stable machine-readable
// discriminator; Message is for humans.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Runner is the pipeline boundary the HTTP layer depends on.
type Runner interface {
	Run(ctx context.Context, req *Request) (*Result, error)
}
