package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockName = "mock"

// MockVisionClient is a deterministic VisionClient for testing.
type MockVisionClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailFirst    int    // fail the first N requests (0 = never)
	FailErr      error  // error to return on failure (defaults to a generic one)
	ResponseText string // default response content
	Reply        func(req *ChatRequest) (string, error) // overrides ResponseText when set

	requestCount atomic.Int64
}

// NewMockVisionClient creates a mock with sensible defaults.
func NewMockVisionClient() *MockVisionClient {
	return &MockVisionClient{
		ResponseText: `{"entries":[]}`,
	}
}

// Name returns the client identifier.
func (c *MockVisionClient) Name() string { return MockName }

// Chat returns the scripted response.
func (c *MockVisionClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	fail := c.ShouldFail || (c.FailFirst > 0 && int(count) <= c.FailFirst)
	if fail {
		if c.FailErr != nil {
			return nil, c.FailErr
		}
		return nil, fmt.Errorf("mock vision client configured to fail")
	}

	content := c.ResponseText
	if c.Reply != nil {
		var err error
		content, err = c.Reply(req)
		if err != nil {
			return nil, err
		}
	}

	return &ChatResult{
		Content:   content,
		ModelUsed: MockName,
		Attempts:  1,
		Latency:   time.Since(start),
		RequestID: fmt.Sprintf("mock-%d", count),
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockVisionClient) RequestCount() int64 { return c.requestCount.Load() }

// Reset resets the request counter.
func (c *MockVisionClient) Reset() { c.requestCount.Store(0) }

var _ VisionClient = (*MockVisionClient)(nil)
