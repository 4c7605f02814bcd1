// Package notice renders the "automatically translated" note added to
// machine-translated pages and places it in the document.
package notice

import (
	"embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/ZaguanLabs/mdtl"
	"github.com/ZaguanLabs/mdtl/markdown"
)

//go:embed active.*.toml
var localeFS embed.FS

var catalogs = []string{
	"active.en.toml",
	"active.de.toml",
	"active.fr.toml",
	"active.es.toml",
	"active.it.toml",
	"active.pt.toml",
	"active.nl.toml",
}

var (
	titleMessage = &i18n.Message{ID: "notice_title", Other: "Note"}
	bodyMessage  = &i18n.Message{
		ID:    "notice_body",
		Other: "This document was automatically translated from {{.Source}} to {{.Target}}.",
	}
)

// ThemeMaterial selects the admonition style understood by mkdocs-material.
const ThemeMaterial = "material"

// Notifier builds localized notices for one site theme.
type Notifier struct {
	bundle *i18n.Bundle
	theme  string
}

// New builds a Notifier backed by the embedded catalogs.
func New(theme string) (*Notifier, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range catalogs {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, err
		}
	}

	return &Notifier{
		bundle: bundle,
		theme:  strings.ToLower(strings.TrimSpace(theme)),
	}, nil
}

// Sentence returns the notice text in the target language, falling back to
// English. Language codes are shown upper-cased.
func (n *Notifier) Sentence(sourceLang, targetLang string) string {
	data := map[string]any{
		"Source": strings.ToUpper(sourceLang),
		"Target": strings.ToUpper(targetLang),
	}
	return n.localize(targetLang, bodyMessage, data)
}

// Block renders the full markdown block for the configured theme.
func (n *Notifier) Block(sourceLang, targetLang string) string {
	sentence := n.Sentence(sourceLang, targetLang)
	if n.theme == ThemeMaterial {
		return "!!! note\n    " + sentence + "\n"
	}
	title := strings.ToUpper(n.localize(targetLang, titleMessage, nil))
	return "> **" + title + ":** " + sentence + "\n"
}

// Apply inserts the notice into a translated document. It has the shape of
// mdtl.NoticeFunc.
func (n *Notifier) Apply(content, sourceLang, targetLang string) string {
	return Insert(content, n.Block(sourceLang, targetLang))
}

var _ mdtl.NoticeFunc = (*Notifier)(nil).Apply

func (n *Notifier) localize(targetLang string, msg *i18n.Message, data map[string]any) string {
	localizer := i18n.NewLocalizer(n.bundle, mdtl.ToBCP47(targetLang), language.English.String())
	// A fallback to English still renders, alongside a not-found error.
	out, _ := localizer.Localize(&i18n.LocalizeConfig{
		DefaultMessage: msg,
		TemplateData:   data,
	})
	if out != "" {
		return out
	}
	fallback := msg.Other
	for key, value := range data {
		fallback = strings.ReplaceAll(fallback, "{{."+key+"}}", fmt.Sprint(value))
	}
	return fallback
}

var (
	levelOneHeading = regexp.MustCompile(`^# `)
	fenceLine       = regexp.MustCompile("^(```|~~~)")
)

// Insert places block after the first level-1 heading of the body. Without
// such a heading it goes right after the front matter, or at the very top.
// Headings inside fenced code are ignored.
func Insert(content, block string) string {
	block = strings.TrimRight(block, "\n")

	doc, err := markdown.Split(content)
	if err != nil {
		doc = markdown.Document{Body: content}
	}
	body := doc.Body

	lines := strings.SplitAfter(body, "\n")
	inFence := false
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r\n")
		if fenceLine.MatchString(trimmed) {
			inFence = !inFence
		}
		offset += len(line)
		if inFence || !levelOneHeading.MatchString(trimmed) {
			continue
		}

		head := strings.TrimRight(body[:offset], "\r\n")
		rest := strings.TrimLeft(body[offset:], "\r\n")
		return doc.Join(head + "\n\n" + block + "\n\n" + rest)
	}

	return doc.Join(block + "\n\n" + strings.TrimLeft(body, "\r\n"))
}
