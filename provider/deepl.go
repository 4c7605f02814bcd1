package provider

import (
	"context"
	"strings"
	"time"

	"github.com/ZaguanLabs/mdtl"
	"github.com/ZaguanLabs/mdtl/logging"
	"github.com/ZaguanLabs/mdtl/markdown"
	"github.com/go-resty/resty/v2"
)

// DeepL API hosts. Keys ending in ":fx" belong to the free plan.
const (
	DeepLProURL  = "https://api.deepl.com"
	DeepLFreeURL = "https://api-free.deepl.com"
)

// DeepLBackend translates the document body as HTML so DeepL leaves markup
// alone, then converts the result back to markdown. Front matter is kept
// verbatim.
type DeepLBackend struct {
	http    *resty.Client
	apiKey  string
	baseURL string
	logger  logging.Logger
}

// DeepLConfig holds configuration for the DeepL backend.
type DeepLConfig struct {
	APIKey  string
	BaseURL string // Default: chosen from the key type
	Timeout time.Duration
	Logger  logging.Logger
}

type deeplRequest struct {
	Text               []string `json:"text"`
	SourceLang         string   `json:"source_lang,omitempty"`
	TargetLang         string   `json:"target_lang"`
	TagHandling        string   `json:"tag_handling"`
	OutlineDetection   bool     `json:"outline_detection"`
	PreserveFormatting bool     `json:"preserve_formatting"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// NewDeepLBackend creates a DeepL backend.
func NewDeepLBackend(cfg DeepLConfig) *DeepLBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DeepLProURL
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			baseURL = DeepLFreeURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	return &DeepLBackend{
		http:    resty.New().SetTimeout(timeout).SetHeader("User-Agent", mdtl.UserAgent()),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Name implements mdtl.Backend.
func (b *DeepLBackend) Name() string {
	return ServiceDeepL
}

// BaseURL returns the API host in use.
func (b *DeepLBackend) BaseURL() string {
	return b.baseURL
}

// Translate implements mdtl.Backend.
func (b *DeepLBackend) Translate(ctx context.Context, req mdtl.TranslateRequest) (string, error) {
	doc, err := markdown.Split(req.Text)
	if err != nil {
		return "", &mdtl.ProviderError{Backend: ServiceDeepL, Message: "splitting front matter", Cause: err}
	}
	if strings.TrimSpace(doc.Body) == "" {
		return doc.Join(""), nil
	}

	body, err := markdown.ToHTML(doc.Body)
	if err != nil {
		return "", &mdtl.ProviderError{Backend: ServiceDeepL, Message: "rendering markdown", Cause: err}
	}

	var result deeplResponse
	resp, err := b.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "DeepL-Auth-Key "+b.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(deeplRequest{
			Text:               []string{body},
			SourceLang:         DeepLSourceLang(req.SourceLang),
			TargetLang:         DeepLTargetLang(req.TargetLang),
			TagHandling:        "html",
			OutlineDetection:   false,
			PreserveFormatting: true,
		}).
		SetResult(&result).
		Post(b.baseURL + "/v2/translate")
	if err != nil {
		return "", transportError(ctx, ServiceDeepL, err)
	}
	if resp.IsError() {
		return "", statusError(ServiceDeepL, resp.StatusCode(), resp.String())
	}
	if len(result.Translations) == 0 {
		return "", &mdtl.ProviderError{Backend: ServiceDeepL, Message: "no translations in response"}
	}

	translated, err := markdown.FromHTML(result.Translations[0].Text)
	if err != nil {
		return "", &mdtl.ProviderError{Backend: ServiceDeepL, Message: "converting translated html", Cause: err}
	}
	if translated == "" {
		return "", nil
	}

	b.logger.Debug("deepl.translated", "path", req.Path, "target", req.TargetLang, "chars", len(body))
	return doc.Join(translated), nil
}

// DeepLSourceLang maps a locale to a DeepL source language. DeepL accepts
// only the base language for sources.
func DeepLSourceLang(code string) string {
	return strings.ToUpper(mdtl.BaseLang(code))
}

// DeepLTargetLang maps a locale to a DeepL target language. Bare EN and PT
// are ambiguous for DeepL targets and default to EN-US and PT-PT.
func DeepLTargetLang(code string) string {
	target := strings.ToUpper(mdtl.ToBCP47(code))
	switch target {
	case "EN":
		return "EN-US"
	case "PT":
		return "PT-PT"
	}
	return target
}

var _ mdtl.Backend = (*DeepLBackend)(nil)
