package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4.1-mini"
)

// OpenAIConfig holds configuration for the OpenAI vision client.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // optional (tests, proxies)
	Timeout    time.Duration
	MaxRetries int           // retry attempts after the first (default 2)
	RetryDelay time.Duration // base delay for exponential backoff (default 1s)
	RateLimit  int           // requests per minute (default 150)
	HTTPClient *http.Client  // optional (tests)
}

// OpenAIClient implements VisionClient using the official OpenAI SDK.
// The SDK's built-in retries are disabled; retry policy lives here in an
// explicit bounded-attempt loop so transient/terminal classification is
// testable independent of the transport.
type OpenAIClient struct {
	model      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	limiter    *RateLimiter
	client     openai.Client
}

// NewOpenAIClient creates a new OpenAI vision client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		limiter:    NewRateLimiter(cfg.RateLimit),
		client:     openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return OpenAIName }

// Model returns the configured model.
func (c *OpenAIClient) Model() string { return c.model }

// LimiterStatus returns the rate limiter state.
func (c *OpenAIClient) LimiterStatus() RateLimiterStatus { return c.limiter.Status() }

// Chat sends one request to the model, retrying transient failures
// (timeouts, 429s, 5xx) up to the configured bound with exponential
// backoff. Invalid-request-class errors fail immediately with
// ErrModelRequestRejected.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}

	params := c.buildParams(req)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := c.client.Chat.Completions.New(attemptCtx, params)
		cancel()

		if err != nil {
			transient, mapped := classifyOpenAIError(err)
			if !transient {
				return nil, mapped
			}
			lastErr = mapped
			var apiErr *openai.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
				c.limiter.Record429()
			}
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		if len(resp.Choices) == 0 {
			// A 200 with no choices is a transient provider glitch.
			lastErr = fmt.Errorf("empty choices in response (model=%s)", resp.Model)
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		return &ChatResult{
			Content:          resp.Choices[0].Message.Content,
			ModelUsed:        resp.Model,
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			Attempts:         attempts,
			Latency:          time.Since(start),
			RequestID:        requestID,
		}, nil
	}

	return nil, fmt.Errorf("model call failed after %d attempts: %w", attempts, lastErr)
}

func (c *OpenAIClient) buildParams(req *ChatRequest) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	if len(req.Images) > 0 {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
		}
		for _, img := range req.Images {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: "data:" + imageMime(img) + ";base64," + base64.StdEncoding.EncodeToString(img),
			}))
		}
		messages = append(messages, openai.UserMessage(parts))
	} else {
		messages = append(messages, openai.UserMessage(req.Prompt))
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONOnly {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

// imageMime sniffs the encoding of an image payload for its data URL.
// Rendered PDF pages arrive as PNG; pass-through photos keep whatever
// encoding they were uploaded with.
func imageMime(img []byte) string {
	switch mime := http.DetectContentType(img); mime {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
		return mime
	default:
		return "image/jpeg"
	}
}

// classifyOpenAIError splits failures into transient (retry) and
// terminal (fail now). 4xx other than 408/429 means the request itself
// is bad; retrying an identical request cannot help.
func classifyOpenAIError(err error) (transient bool, mapped error) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode >= 500:
			return true, fmt.Errorf("model error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		default:
			return false, fmt.Errorf("%w (status %d): %s", ErrModelRequestRejected, apiErr.StatusCode, apiErr.Message)
		}
	}
	if errors.Is(err, context.Canceled) {
		return false, err
	}
	// Transport failures and per-attempt timeouts are transient.
	return true, err
}

// sleepWithJitter backs off exponentially with jitter, respecting
// context cancellation.
func (c *OpenAIClient) sleepWithJitter(ctx context.Context, attempt int) {
	delay := c.retryDelay * time.Duration(1<<attempt)
	if delay > 10*time.Second {
		delay = 10 * time.Second
	}
	jittered := time.Duration(float64(delay) * (0.8 + 0.4*rand.Float64()))

	select {
	case <-ctx.Done():
	case <-time.After(jittered):
	}
}

var _ VisionClient = (*OpenAIClient)(nil)
