package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\n]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// FromHTML converts an HTML fragment, as produced by ToHTML and echoed back
// by a markup-aware translation service, into markdown.
func FromHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return "", nil
	}

	out := renderBlocks(body.Nodes[0])
	out = blankLines.ReplaceAllString(strings.TrimSpace(out), "\n\n")
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

// renderBlocks renders the children of n as a sequence of blocks. Runs of
// inline content between block elements become paragraphs.
func renderBlocks(n *html.Node) string {
	var b strings.Builder
	var run strings.Builder

	flush := func() {
		if text := strings.TrimSpace(run.String()); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
		run.Reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isBlock(c) {
			flush()
			b.WriteString(renderBlock(c))
			continue
		}
		run.WriteString(renderInline(c))
	}
	flush()
	return b.String()
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.P, atom.Pre, atom.Ul, atom.Ol, atom.Blockquote, atom.Hr,
		atom.Table, atom.Dl, atom.Div, atom.Section, atom.Article,
		atom.Header, atom.Footer, atom.Aside, atom.Nav, atom.Figure, atom.Details:
		return true
	}
	return false
}

func renderBlock(n *html.Node) string {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		line := strings.Repeat("#", level) + " " + strings.TrimSpace(renderChildrenInline(n))
		if id := attr(n, "id"); id != "" {
			line += " {#" + id + "}"
		}
		return line + "\n\n"
	case atom.P:
		return strings.TrimSpace(renderChildrenInline(n)) + "\n\n"
	case atom.Pre:
		return renderPre(n)
	case atom.Ul:
		return renderList(n, false) + "\n"
	case atom.Ol:
		return renderList(n, true) + "\n"
	case atom.Blockquote:
		inner := strings.TrimSpace(renderBlocks(n))
		return prefixLines(inner, "> ", ">") + "\n\n"
	case atom.Hr:
		return "---\n\n"
	case atom.Table:
		return renderTable(n)
	case atom.Dl:
		return renderDefinitions(n)
	}
	return renderBlocks(n)
}

func renderChildrenInline(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(renderInline(c))
	}
	return b.String()
}

func renderInline(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return spaceRun.ReplaceAllString(n.Data, " ")
	case html.ElementNode:
	default:
		return ""
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		return wrapInline(renderChildrenInline(n), "**")
	case atom.Em, atom.I:
		return wrapInline(renderChildrenInline(n), "*")
	case atom.Del, atom.S:
		return wrapInline(renderChildrenInline(n), "~~")
	case atom.Code:
		return codeSpan(textContent(n))
	case atom.Br:
		return "  \n"
	case atom.A:
		text := strings.TrimSpace(renderChildrenInline(n))
		href := attr(n, "href")
		if href == "" {
			return text
		}
		if title := attr(n, "title"); title != "" {
			return "[" + text + "](" + href + " \"" + title + "\")"
		}
		return "[" + text + "](" + href + ")"
	case atom.Img:
		out := "![" + attr(n, "alt") + "](" + attr(n, "src")
		if title := attr(n, "title"); title != "" {
			out += " \"" + title + "\""
		}
		return out + ")"
	}

	if isBlock(n) {
		return strings.TrimSpace(renderBlock(n))
	}
	return renderChildrenInline(n)
}

// wrapInline keeps surrounding spaces outside the emphasis markers.
func wrapInline(inner, marker string) string {
	trimmed := strings.TrimSpace(inner)
	if trimmed == "" {
		return inner
	}
	lead := inner[:len(inner)-len(strings.TrimLeft(inner, " "))]
	trail := inner[len(strings.TrimRight(inner, " ")):]
	return lead + marker + trimmed + marker + trail
}

func codeSpan(code string) string {
	fence := "`"
	for strings.Contains(code, fence) {
		fence += "`"
	}
	if strings.HasPrefix(code, "`") || strings.HasSuffix(code, "`") {
		return fence + " " + code + " " + fence
	}
	return fence + code + fence
}

func renderPre(n *html.Node) string {
	lang := ""
	code := n
	if c := firstElementChild(n); c != nil && c.DataAtom == atom.Code {
		code = c
		for _, class := range strings.Fields(attr(c, "class")) {
			if after, ok := strings.CutPrefix(class, "language-"); ok {
				lang = after
				break
			}
		}
	}
	text := strings.TrimSuffix(textContent(code), "\n")
	return "```" + lang + "\n" + text + "\n```\n\n"
}

func renderList(n *html.Node, ordered bool) string {
	var b strings.Builder
	index := 1
	if start, err := strconv.Atoi(attr(n, "start")); err == nil && ordered {
		index = start
	}

	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		marker := "- "
		if ordered {
			marker = strconv.Itoa(index) + ". "
			index++
		}

		content := strings.TrimSpace(renderBlocks(li))
		if !hasChild(li, atom.P) {
			content = blankLines.ReplaceAllString(content, "\n")
			content = strings.ReplaceAll(content, "\n\n", "\n")
		}
		indent := strings.Repeat(" ", len(marker))
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			switch {
			case i == 0:
				b.WriteString(marker + line)
			case line == "":
			default:
				b.WriteString(indent + line)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderTable(n *html.Node) string {
	var rows [][]string
	var aligns []string
	headerRows := 0

	var walk func(*html.Node, bool)
	walk = func(node *html.Node, inHead bool) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead:
				walk(c, true)
			case atom.Tbody, atom.Tfoot:
				walk(c, false)
			case atom.Tr:
				var row []string
				isHead := inHead
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode || (cell.DataAtom != atom.Th && cell.DataAtom != atom.Td) {
						continue
					}
					text := strings.TrimSpace(renderChildrenInline(cell))
					row = append(row, strings.ReplaceAll(text, "|", `\|`))
					if len(rows) == 0 {
						aligns = append(aligns, cellAlign(cell))
						if cell.DataAtom == atom.Th {
							isHead = true
						}
					}
				}
				if isHead && len(rows) == 0 {
					headerRows = 1
				}
				rows = append(rows, row)
			}
		}
	}
	walk(n, false)

	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	header := rows[0]
	body := rows[1:]
	if headerRows == 0 {
		header = make([]string, width)
		body = rows
	}
	writeRow(header)
	b.WriteString("|")
	for i := 0; i < width; i++ {
		align := ""
		if i < len(aligns) {
			align = aligns[i]
		}
		switch align {
		case "left":
			b.WriteString(" :--- |")
		case "center":
			b.WriteString(" :---: |")
		case "right":
			b.WriteString(" ---: |")
		default:
			b.WriteString(" --- |")
		}
	}
	b.WriteString("\n")
	for _, row := range body {
		writeRow(row)
	}
	return b.String() + "\n"
}

func cellAlign(cell *html.Node) string {
	if a := attr(cell, "align"); a != "" {
		return strings.ToLower(a)
	}
	style := strings.ReplaceAll(strings.ToLower(attr(cell, "style")), " ", "")
	for _, a := range []string{"left", "center", "right"} {
		if strings.Contains(style, "text-align:"+a) {
			return a
		}
	}
	return ""
}

func renderDefinitions(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Dt:
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.TrimSpace(renderChildrenInline(c)) + "\n")
		case atom.Dd:
			content := strings.TrimSpace(renderBlocks(c))
			first, rest, _ := strings.Cut(content, "\n")
			b.WriteString(":   " + first + "\n")
			if rest != "" {
				b.WriteString(prefixLines(rest, "    ", "") + "\n")
			}
		}
	}
	return b.String() + "\n"
}

// prefixLines prefixes every line; blank lines get blankPrefix instead.
func prefixLines(text, prefix, blankPrefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = blankPrefix
		} else {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func hasChild(n *html.Node, a atom.Atom) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
