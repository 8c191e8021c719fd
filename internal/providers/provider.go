// Package providers contains clients for vision-capable language models.
// The model is treated as an unreliable collaborator with a narrow
// contract: images and text in, text out. Everything downstream assumes
// the output can be absent, malformed, or partially wrong.
package providers

import (
	"context"
	"errors"
	"time"
)

// ErrModelRequestRejected is returned for invalid-request-class failures
// (4xx). These are terminal: retrying an identical bad request cannot
// succeed.
var ErrModelRequestRejected = errors.New("model rejected request")

// ChatRequest is a single model invocation. When Images is non-empty the
// request is sent as a multimodal message.
type ChatRequest struct {
	System      string
	Prompt      string
	Images      [][]byte // encoded PNG/JPEG payloads
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per-attempt cap; falls back to client default
	JSONOnly    bool          // request a JSON-object response format
	RequestID   string
}

// ChatResult is the raw outcome of a model invocation. No semantic
// validation happens at this layer.
type ChatResult struct {
	Content          string
	ModelUsed        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Attempts         int
	Latency          time.Duration
	RequestID        string
}

// VisionClient is the boundary to a hosted multimodal model.
// Implementations own timeout and retry policy; callers only see the
// final outcome. Injectable so pipelines can be tested with
// deterministic stubs.
type VisionClient interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}
