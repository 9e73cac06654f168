package textutil

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// nonSpokenSelector lists elements that never carry readable article prose.
const nonSpokenSelector = "script, style, noscript, iframe, svg, figure, nav, form, button, video, audio, picture"

var spaceRun = regexp.MustCompile(`[ \t\r\n]+`)

// SpeechText converts an article body (HTML or plain text) into flat prose
// suitable for a speech engine. Headings and list items end sentences, link
// text is kept without URLs, and images, code, and embedded media are dropped.
func SpeechText(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	return MarkdownToSpeech(HTMLToMarkdown(body))
}

// HTMLToMarkdown strips non-prose elements and converts the rest to markdown.
// Input that fails to parse as HTML is returned unchanged.
func HTMLToMarkdown(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find(nonSpokenSelector).Remove()
	converter := md.NewConverter("", true, nil)
	return converter.Convert(doc.Selection)
}

// MarkdownToSpeech walks the markdown AST and emits speakable text.
func MarkdownToSpeech(markdown string) string {
	reader := text.NewReader([]byte(markdown))
	doc := goldmark.New().Parser().Parse(reader)

	var w speechWriter
	w.walk(doc, reader.Source())
	return strings.TrimSpace(spaceRun.ReplaceAllString(w.String(), " "))
}

type speechWriter struct {
	strings.Builder
}

func (w *speechWriter) walk(node ast.Node, source []byte) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML, *ast.Image, *ast.ThematicBreak:
		return
	case *ast.AutoLink:
		return
	case *ast.Text:
		value := util.UnescapePunctuations(n.Segment.Value(source))
		value = util.ResolveNumericReferences(value)
		value = util.ResolveEntityNames(value)
		w.Write(value)
		if n.SoftLineBreak() || n.HardLineBreak() {
			w.WriteByte(' ')
		}
		return
	case *ast.String:
		w.Write(n.Value)
		return
	case *ast.CodeSpan:
		w.children(n, source)
		return
	case *ast.Heading, *ast.ListItem:
		w.children(n, source)
		w.endSentence()
		return
	case *ast.Paragraph, *ast.TextBlock:
		w.children(n, source)
		w.endSentence()
		return
	}
	w.children(node, source)
}

func (w *speechWriter) children(node ast.Node, source []byte) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		w.walk(c, source)
	}
}

// endSentence terminates the current block with a full stop unless it
// already ends in sentence punctuation.
func (w *speechWriter) endSentence() {
	current := strings.TrimRight(w.String(), " \t\n")
	if current == "" {
		return
	}
	if w.Len() != len(current) {
		w.Reset()
		w.WriteString(current)
	}
	switch current[len(current)-1] {
	case '.', '!', '?', ':', ';':
		w.WriteByte(' ')
	default:
		w.WriteString(". ")
	}
}
