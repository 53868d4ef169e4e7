package types

import (
	"errors"
	"testing"
)

func TestURLNormalizer(t *testing.T) {
	n, err := NewURLNormalizer("https://example.com")
	if err != nil {
		t.Fatalf("NewURLNormalizer: %v", err)
	}

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"relative path", "/pricing", "https://example.com/pricing", nil},
		{"relative with query", "/search?q=go", "https://example.com/search?q=go", nil},
		{"fragment dropped", "/docs#install", "https://example.com/docs", nil},
		{"same-origin absolute", "https://example.com/about", "https://example.com/about", nil},
		{"empty path becomes root", "https://example.com", "https://example.com/", nil},
		{"external origin", "https://evil.example.org/a", "", ErrExternalURL},
		{"external http", "http://example.com/a", "", ErrExternalURL},
		{"javascript scheme", "javascript:alert(1)", "", ErrInvalidURL},
		{"mailto scheme", "mailto:a@example.com", "", ErrInvalidURL},
		{"empty", "", "", ErrInvalidURL},
		{"whitespace", "   ", "", ErrInvalidURL},
		{"bare fragment", "#section", "", ErrInvalidURL},
		{"unrooted relative", "pricing", "", ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Normalize(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewURLNormalizerRejectsBadOrigin(t *testing.T) {
	for _, origin := range []string{"", "example.com", "/path-only"} {
		if _, err := NewURLNormalizer(origin); err == nil {
			t.Errorf("NewURLNormalizer(%q) succeeded, want error", origin)
		}
	}
}

func TestRetryClassification(t *testing.T) {
	if IsRetryable(ErrInvalidURL) || IsRetryable(ErrExternalURL) {
		t.Error("validation rejections must not be retryable")
	}
	if IsRetryable(ErrClosed) {
		t.Error("closed scheduler must not be retryable")
	}
	if !IsRetryable(ErrRateLimited) {
		t.Error("rate limiting resolves on its own and should retry")
	}
	if !IsRetryable(ErrMaxConcurrent) {
		t.Error("concurrency ceiling resolves on its own and should retry")
	}
}
