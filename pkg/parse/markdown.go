// Package parse extracts structure from model replies: fenced code blocks,
// list items and JSON documents.
package parse

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type CodeBlock struct {
	Code     string
	Language string
}

func parseMarkdown(markdownText string) (ast.Node, []byte) {
	source := []byte(markdownText)
	return goldmark.DefaultParser().Parse(text.NewReader(source)), source
}

func blockLines(n ast.Node, source []byte) string {
	lines := n.Lines()
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ExtractCodeBlocks returns every fenced code block, in document order.
func ExtractCodeBlocks(markdownText string) ([]CodeBlock, error) {
	document, source := parseMarkdown(markdownText)

	var blocks []CodeBlock
	err := ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if v, ok := n.(*ast.FencedCodeBlock); ok {
			blocks = append(blocks, CodeBlock{
				Code:     blockLines(v, source),
				Language: string(v.Language(source)),
			})
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// FirstCodeBlock returns the first fenced code block, if any.
func FirstCodeBlock(markdownText string) (CodeBlock, bool) {
	blocks, err := ExtractCodeBlocks(markdownText)
	if err != nil || len(blocks) == 0 {
		return CodeBlock{}, false
	}
	return blocks[0], true
}

// StripFences returns the content of the first fenced block when the text
// contains one, and the trimmed text otherwise.
func StripFences(s string) string {
	if cb, ok := FirstCodeBlock(s); ok {
		return cb.Code
	}
	return strings.TrimSpace(s)
}

// ExtractListItems returns the text of the items of every top-level list.
// Nested lists are flattened into their parent item's text.
func ExtractListItems(markdownText string) ([]string, error) {
	document, source := parseMarkdown(markdownText)

	var items []string
	for n := document.FirstChild(); n != nil; n = n.NextSibling() {
		list, ok := n.(*ast.List)
		if !ok {
			continue
		}
		for cur := list.FirstChild(); cur != nil; cur = cur.NextSibling() {
			t := strings.TrimSpace(itemText(cur, source))
			if t != "" {
				items = append(items, t)
			}
		}
	}
	return items, nil
}

func itemText(item ast.Node, source []byte) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Kind() {
		case ast.KindParagraph, ast.KindTextBlock:
			parts = append(parts, string(c.Text(source)))
		}
	}
	return strings.Join(parts, " ")
}

// NonEmptyLines splits text into trimmed, non-blank lines.
func NonEmptyLines(s string) []string {
	var ret []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			ret = append(ret, l)
		}
	}
	return ret
}
