// Package markdown holds the markdown helpers shared by the translation
// backends: front matter handling, HTML round-tripping for services that
// translate markup, fenced code block protection for chat models and a cheap
// structural comparison of source and translation.
//
// Conversion is best-effort. Constructs without an HTML equivalent that
// survives a round trip (admonitions, custom extensions) come back as plain
// paragraphs.
package markdown
