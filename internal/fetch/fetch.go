// Package fetch acquires documents from URLs or raw bytes, enforcing
// size and content-type limits before anything downstream sees them.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTooLarge is returned when a document exceeds the configured size limit.
	ErrTooLarge = errors.New("document too large")

	// ErrUnsupportedType is returned when the content type is neither PDF
	// nor a supported image format.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrUnreachable is returned on network, DNS, or HTTP-level fetch failures.
	ErrUnreachable = errors.New("source unreachable")
)

// supportedTypes are the mime types the pipeline can render.
var supportedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// Source identifies a document by URL or raw bytes with a declared mime type.
type Source struct {
	URL      string
	Data     []byte
	MimeType string
}

// Document is an acquired document ready for rendering.
type Document struct {
	Bytes    []byte
	MimeType string
}

// IsPDF reports whether the document is a PDF.
func (d *Document) IsPDF() bool {
	return d.MimeType == "application/pdf"
}

// Config holds acquirer limits.
type Config struct {
	MaxBytes   int64         // reject documents larger than this (default 20 MB)
	Timeout    time.Duration // per-fetch HTTP timeout (default 20s)
	HTTPClient *http.Client  // optional (tests)
	Logger     *slog.Logger
}

// Acquirer fetches documents with size and type guards.
// It performs no retries; transient failures surface to the caller,
// which owns retry policy.
type Acquirer struct {
	maxBytes int64
	client   *http.Client
	logger   *slog.Logger
}

// New creates an Acquirer.
func New(cfg Config) *Acquirer {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Acquirer{
		maxBytes: cfg.MaxBytes,
		client:   client,
		logger:   cfg.Logger,
	}
}

// Acquire resolves a Source into a Document.
// Raw bytes are validated in place; URLs are fetched with the size limit
// enforced during transfer so an oversized body is abandoned early.
func (a *Acquirer) Acquire(ctx context.Context, src Source) (*Document, error) {
	if len(src.Data) > 0 {
		return a.fromBytes(src.Data, src.MimeType)
	}
	if src.URL == "" {
		return nil, fmt.Errorf("%w: no URL or data provided", ErrUnreachable)
	}
	return a.fromURL(ctx, src.URL)
}

func (a *Acquirer) fromBytes(data []byte, declared string) (*Document, error) {
	if int64(len(data)) > a.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(data), a.maxBytes)
	}
	mt, err := resolveType(declared, data)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: data, MimeType: mt}, nil
}

func (a *Acquirer) fromURL(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrUnreachable, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from source", ErrUnreachable, resp.StatusCode)
	}

	// Reject via Content-Length before reading the body when the server declares it.
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, perr := strconv.ParseInt(cl, 10, 64); perr == nil && n > a.maxBytes {
			return nil, fmt.Errorf("%w: declared %d bytes exceeds limit of %d", ErrTooLarge, n, a.maxBytes)
		}
	}

	// Enforce the limit during transfer regardless of what was declared.
	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnreachable, err)
	}
	if int64(len(body)) > a.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds limit of %d bytes", ErrTooLarge, a.maxBytes)
	}

	a.logger.Debug("document acquired", "bytes", len(body), "content_type", resp.Header.Get("Content-Type"))

	mt, err := resolveType(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: body, MimeType: mt}, nil
}

// resolveType normalizes a declared content type, sniffing the payload
// when the declaration is missing or generic.
func resolveType(declared string, data []byte) (string, error) {
	mt := ""
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil {
			mt = strings.ToLower(parsed)
		}
	}
	if mt == "" || mt == "application/octet-stream" || mt == "binary/octet-stream" {
		mt = sniffType(data)
	}
	if !supportedTypes[mt] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mt)
	}
	return mt, nil
}

func sniffType(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return "application/pdf"
	}
	return http.DetectContentType(data)
}

// IsTransient reports whether an acquisition error is worth retrying.
// Size and type violations are permanent; everything else (network,
// DNS, HTTP errors) may be transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrUnsupportedType) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrUnreachable)
}
