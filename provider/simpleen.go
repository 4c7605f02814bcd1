package provider

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ZaguanLabs/mdtl"
	"github.com/ZaguanLabs/mdtl/logging"
	"github.com/go-resty/resty/v2"
)

// DefaultSimpleenURL is the Simpleen API host.
const DefaultSimpleenURL = "https://api.simpleen.io"

// SimpleenBackend sends whole markdown documents to Simpleen, which
// understands the format natively.
type SimpleenBackend struct {
	http    *resty.Client
	apiKey  string
	baseURL string
	logger  logging.Logger
}

// SimpleenConfig holds configuration for the Simpleen backend.
type SimpleenConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  logging.Logger
}

type simpleenRequest struct {
	DataFormat     string `json:"dataformat"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Text           string `json:"text"`
}

// NewSimpleenBackend creates a Simpleen backend.
func NewSimpleenBackend(cfg SimpleenConfig) *SimpleenBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultSimpleenURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	return &SimpleenBackend{
		http:    resty.New().SetTimeout(timeout).SetHeader("User-Agent", mdtl.UserAgent()),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Name implements mdtl.Backend.
func (b *SimpleenBackend) Name() string {
	return ServiceSimpleen
}

// Translate implements mdtl.Backend.
func (b *SimpleenBackend) Translate(ctx context.Context, req mdtl.TranslateRequest) (string, error) {
	resp, err := b.http.R().
		SetContext(ctx).
		SetQueryParam("auth_key", b.apiKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetBody(simpleenRequest{
			DataFormat:     "Markdown",
			SourceLanguage: strings.ToUpper(mdtl.ToBCP47(req.SourceLang)),
			TargetLanguage: strings.ToUpper(mdtl.ToBCP47(req.TargetLang)),
			Text:           req.Text,
		}).
		Post(b.baseURL + "/translate")
	if err != nil {
		return "", transportError(ctx, ServiceSimpleen, err)
	}
	if resp.IsError() {
		return "", statusError(ServiceSimpleen, resp.StatusCode(), resp.String())
	}

	b.logger.Debug("simpleen.translated", "path", req.Path, "target", req.TargetLang)
	return ensureNewline(decodeSimpleen(resp.Body())), nil
}

// decodeSimpleen accepts a JSON array of strings, a JSON string, or raw
// text.
func decodeSimpleen(body []byte) string {
	var parts []string
	if err := json.Unmarshal(body, &parts); err == nil {
		return strings.Join(parts, "\n")
	}
	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return text
	}
	return string(body)
}

var _ mdtl.Backend = (*SimpleenBackend)(nil)
