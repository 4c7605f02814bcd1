package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ZaguanLabs/mdtl"
	"github.com/ZaguanLabs/mdtl/logging"
	"github.com/ZaguanLabs/mdtl/markdown"
	"github.com/sashabaranov/go-openai"
)

// Chat defaults target the GWDG Chat AI (SAIA) OpenAI-compatible endpoint.
const (
	DefaultChatBaseURL = "https://chat-ai.academiccloud.de/v1"
	DefaultChatModel   = "openai-gpt-oss-120b"
)

const chatTopP = 0.3

var reasoningBlock = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

const chatSystemPrompt = "You are an expert translator specialized in technical documentation. " +
	"Your task is to translate markdown content while perfectly preserving ALL markdown formatting and structure. " +
	"\n\nRULES TO STRICTLY FOLLOW:" +
	"\n1. Keep all headers (# Heading) with the exact same level" +
	"\n2. Preserve all bullet points and numbered lists with their original indentation" +
	"\n3. Keep all hyperlinks in format [text](url) - translate only the text part, NOT the URL" +
	"\n4. Keep all images in format ![alt text](url) - translate only the alt text part" +
	"\n5. Keep all blockquotes (lines starting with >) with their original nesting level" +
	"\n6. Preserve all inline formatting: **bold**, *italic*, `code`, ~~strikethrough~~" +
	"\n7. Keep all tables with their original structure, including | and - characters" +
	"\n8. Preserve all horizontal rules (---)" +
	"\n9. Keep all line breaks, including trailing double spaces for forced line breaks" +
	"\n10. DO NOT add or remove any markdown elements or structure" +
	"\n11. DO NOT translate content inside placeholders marked as CODEBLOCK_X_PLACEHOLDER" +
	"\n12. ALWAYS maintain the exact same document structure" +
	"\n13. Keep YAML front matter keys unchanged; translate only human-readable values such as title and description" +
	"\n\nThis is critically important documentation that must maintain its exact structure."

// ChatBackend translates whole documents with an OpenAI-compatible chat
// completion API.
type ChatBackend struct {
	client *openai.Client
	model  string
	logger logging.Logger
}

// ChatConfig holds configuration for the chat backend.
type ChatConfig struct {
	APIKey  string
	BaseURL string        // Default: DefaultChatBaseURL
	Model   string        // Default: DefaultChatModel
	Timeout time.Duration // Default: DefaultTimeout
	Logger  logging.Logger
}

// NewChatBackend creates a chat backend.
func NewChatBackend(cfg ChatConfig) *ChatBackend {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = DefaultChatBaseURL
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	return &ChatBackend{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger,
	}
}

// Name implements mdtl.Backend.
func (b *ChatBackend) Name() string {
	return ServiceChat
}

// Model returns the configured model.
func (b *ChatBackend) Model() string {
	return b.model
}

// Translate sends the document with fenced code blocks replaced by
// placeholders, then restores them and checks that headings, code blocks and
// links survived.
func (b *ChatBackend) Translate(ctx context.Context, req mdtl.TranslateRequest) (string, error) {
	protected, blocks := markdown.ProtectCodeBlocks(req.Text)

	started := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req.SourceLang, req.TargetLang, protected)},
		},
		// go-openai omits a zero temperature, so use the smallest positive value.
		Temperature:        math.SmallestNonzeroFloat32,
		TopP:               chatTopP,
		ChatTemplateKwargs: map[string]any{"enable_thinking": false},
	})
	if err != nil {
		return "", &mdtl.ProviderError{
			Backend:    ServiceChat,
			Message:    fmt.Sprintf("chat completion with %s failed", b.model),
			StatusCode: statusCode(err),
			Cause:      err,
			Retryable:  ctx.Err() == nil && isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return "", &mdtl.ProviderError{
			Backend:   ServiceChat,
			Message:   "no choices in response",
			Retryable: true,
		}
	}

	b.logger.Debug("chat.completed",
		"model", b.model,
		"path", req.Path,
		"duration", time.Since(started).Round(time.Millisecond).String(),
	)

	content, reasoning := stripReasoning(resp.Choices[0].Message.Content)
	if reasoning != "" {
		b.logger.Debug("chat.reasoning_removed", "path", req.Path, "chars", len(reasoning))
	}

	restored, missing := markdown.RestoreCodeBlocks(content, blocks)
	if missing > 0 {
		b.logger.Warn("chat.placeholders_missing", "path", req.Path, "missing", missing)
	}

	if diff := markdown.Measure(req.Text).Diff(markdown.Measure(restored)); len(diff) > 0 {
		b.logger.Warn("chat.structure_mismatch",
			"path", req.Path,
			"target", req.TargetLang,
			"diff", strings.Join(diff, ", "),
		)
	}

	return ensureNewline(restored), nil
}

func buildUserPrompt(sourceLang, targetLang, content string) string {
	return fmt.Sprintf(
		"Translate the following markdown content from %s to %s. "+
			"Remember to follow ALL the rules about preserving markdown formatting:\n\n%s",
		strings.ToUpper(mdtl.ToBCP47(sourceLang)), strings.ToUpper(mdtl.ToBCP47(targetLang)), content,
	)
}

// stripReasoning removes the first <think>...</think> block some models emit
// and returns it separately.
func stripReasoning(content string) (string, string) {
	loc := reasoningBlock.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, ""
	}
	reasoning := content[loc[2]:loc[3]]
	return content[:loc[0]] + content[loc[1]:], strings.TrimSpace(reasoning)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isRetryableError(err error) bool {
	if status := statusCode(err); status != 0 {
		return retryableStatus(status)
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate limit", "timeout", "connection refused", "temporary", "503", "502", "429"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return isTransient(err)
}

var _ mdtl.Backend = (*ChatBackend)(nil)
