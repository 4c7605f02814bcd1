// Package provider implements the translation backends: DeepL, an
// OpenAI-compatible chat model, Simpleen and a mock for tests.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/mdtl"
	"github.com/ZaguanLabs/mdtl/logging"
)

// Canonical backend names.
const (
	ServiceDeepL    = "deepl"
	ServiceChat     = "chat"
	ServiceSimpleen = "simpleen"
)

// DefaultTimeout bounds a single backend call when Config.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Config selects and configures a backend.
type Config struct {
	Service string        // deepl, chat (saia, chatai, openai), simpleen
	APIKey  string        // Credential for the service
	BaseURL string        // Optional endpoint override
	Model   string        // Chat model (chat only)
	Timeout time.Duration // Per-request timeout (default: 60s)
	Logger  logging.Logger
}

// Canonical resolves service aliases. Unknown names are returned lower-cased.
func Canonical(service string) string {
	switch s := strings.ToLower(strings.TrimSpace(service)); s {
	case "saia", "chatai", "openai":
		return ServiceChat
	default:
		return s
	}
}

// New creates the backend named by cfg.Service. Every service needs an API
// key; the mock backend is only reachable by constructing it directly.
func New(cfg Config) (mdtl.Backend, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOp()
	}

	service := Canonical(cfg.Service)
	switch service {
	case ServiceDeepL, ServiceChat, ServiceSimpleen:
	default:
		return nil, &mdtl.ConfigError{
			Field:   "translate.service",
			Message: fmt.Sprintf("unsupported translation service %q", cfg.Service),
		}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &mdtl.ConfigError{Field: "translate.api_key_env", Message: "API key is empty"}
	}

	switch service {
	case ServiceDeepL:
		return NewDeepLBackend(DeepLConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		}), nil
	case ServiceChat:
		return NewChatBackend(ChatConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		}), nil
	default:
		return NewSimpleenBackend(SimpleenConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		}), nil
	}
}

// statusError converts a non-2xx HTTP response into a ProviderError.
func statusError(backend string, status int, body string) *mdtl.ProviderError {
	msg := fmt.Sprintf("unexpected status %d", status)
	if body = strings.TrimSpace(body); body != "" {
		msg += ": " + abbreviate(body, 300)
	}
	return &mdtl.ProviderError{
		Backend:    backend,
		Message:    msg,
		StatusCode: status,
		Retryable:  retryableStatus(status),
	}
}

// transportError wraps a failure to reach the service.
func transportError(ctx context.Context, backend string, err error) *mdtl.ProviderError {
	return &mdtl.ProviderError{
		Backend:   backend,
		Message:   "request failed",
		Cause:     err,
		Retryable: ctx.Err() == nil && isTransient(err),
	}
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection refused", "connection reset", "eof"} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// ensureNewline trims surrounding whitespace and terminates non-empty text
// with a single newline.
func ensureNewline(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return text + "\n"
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
