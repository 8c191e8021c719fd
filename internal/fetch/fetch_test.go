package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\ntrailer\n<< >>\n%%EOF")

func TestAcquire_FromURL(t *testing.T) {
	t.Run("fetches a PDF", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdfBytes)
		}))
		defer srv.Close()

		a := New(Config{})
		doc, err := a.Acquire(context.Background(), Source{URL: srv.URL})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !doc.IsPDF() {
			t.Errorf("expected PDF mime type, got %s", doc.MimeType)
		}
		if !bytes.Equal(doc.Bytes, pdfBytes) {
			t.Error("document bytes do not match source")
		}
	})

	t.Run("sniffs type when server sends octet-stream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(pdfBytes)
		}))
		defer srv.Close()

		a := New(Config{})
		doc, err := a.Acquire(context.Background(), Source{URL: srv.URL})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.MimeType != "application/pdf" {
			t.Errorf("expected application/pdf, got %s", doc.MimeType)
		}
	})

	t.Run("rejects oversized body during transfer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			// No Content-Length; stream past the limit.
			w.Write([]byte("%PDF-"))
			w.Write(bytes.Repeat([]byte("x"), 2048))
		}))
		defer srv.Close()

		a := New(Config{MaxBytes: 1024})
		_, err := a.Acquire(context.Background(), Source{URL: srv.URL})
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("rejects via Content-Length before reading body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Length", "5000000")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		a := New(Config{MaxBytes: 1024})
		_, err := a.Acquire(context.Background(), Source{URL: srv.URL})
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("maps HTTP errors to ErrUnreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		a := New(Config{})
		_, err := a.Acquire(context.Background(), Source{URL: srv.URL})
		if !errors.Is(err, ErrUnreachable) {
			t.Errorf("expected ErrUnreachable, got %v", err)
		}
	})

	t.Run("maps connection failure to ErrUnreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // now nothing listens there

		a := New(Config{})
		_, err := a.Acquire(context.Background(), Source{URL: srv.URL})
		if !errors.Is(err, ErrUnreachable) {
			t.Errorf("expected ErrUnreachable, got %v", err)
		}
	})

	t.Run("rejects unsupported content type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>not a report</body></html>"))
		}))
		defer srv.Close()

		a := New(Config{})
		_, err := a.Acquire(context.Background(), Source{URL: srv.URL})
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
	})
}

func TestAcquire_FromBytes(t *testing.T) {
	a := New(Config{MaxBytes: 1024})

	t.Run("accepts declared PDF", func(t *testing.T) {
		doc, err := a.Acquire(context.Background(), Source{Data: pdfBytes, MimeType: "application/pdf"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !doc.IsPDF() {
			t.Errorf("expected PDF, got %s", doc.MimeType)
		}
	})

	t.Run("sniffs undeclared type", func(t *testing.T) {
		doc, err := a.Acquire(context.Background(), Source{Data: pdfBytes})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.MimeType != "application/pdf" {
			t.Errorf("expected application/pdf, got %s", doc.MimeType)
		}
	})

	t.Run("normalizes content type parameters", func(t *testing.T) {
		doc, err := a.Acquire(context.Background(), Source{Data: pdfBytes, MimeType: "Application/PDF; charset=binary"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.MimeType != "application/pdf" {
			t.Errorf("expected application/pdf, got %s", doc.MimeType)
		}
	})

	t.Run("rejects oversized payload", func(t *testing.T) {
		_, err := a.Acquire(context.Background(), Source{Data: bytes.Repeat([]byte("x"), 2048), MimeType: "application/pdf"})
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("rejects unsupported declared type", func(t *testing.T) {
		_, err := a.Acquire(context.Background(), Source{Data: []byte("hello"), MimeType: "text/plain"})
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
	})
}

func TestAcquire_NoSource(t *testing.T) {
	a := New(Config{})
	_, err := a.Acquire(context.Background(), Source{})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable for empty source, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"too large", ErrTooLarge, false},
		{"unsupported type", ErrUnsupportedType, false},
		{"unreachable", ErrUnreachable, true},
		{"wrapped unreachable", errors.Join(errors.New("fetch"), ErrUnreachable), true},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"unrelated", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestResolveType(t *testing.T) {
	t.Run("detects JPEG by signature", func(t *testing.T) {
		jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0}, 16)...)
		mt, err := resolveType("", jpeg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mt != "image/jpeg" {
			t.Errorf("expected image/jpeg, got %s", mt)
		}
	})

	t.Run("rejects html masquerading as octet-stream", func(t *testing.T) {
		_, err := resolveType("application/octet-stream", []byte(strings.Repeat("<html>", 10)))
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
	})
}
