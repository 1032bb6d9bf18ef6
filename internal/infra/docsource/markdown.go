package docsource

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownParser normalizes knowledge-base markdown to plain text before
// chunking, grounded on vvoland-cagent's pkg/app/export/html.go goldmark
// wiring (same GFM extension set) but walking the AST for text instead of
// rendering HTML, since the sync pipeline embeds and indexes prose, not
// markup.
var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// markdownToText strips markdown syntax, returning the document's plain
// text with paragraph breaks preserved for the chunker.
func markdownToText(src []byte) string {
	reader := text.NewReader(src)
	doc := markdownParser.Parser().Parse(reader)

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindListItem:
				buf.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteString("\n")
			}
		case *ast.CodeSpan:
		case *ast.FencedCodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				line := t.Lines().At(i)
				buf.Write(line.Value(src))
			}
		case *ast.CodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				line := t.Lines().At(i)
				buf.Write(line.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return strings.TrimSpace(string(src))
	}
	return strings.TrimSpace(buf.String())
}
