package source

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New()

// parseMarkdown returns headings, paragraphs and list item text blocks in
// document order. Code blocks are skipped.
func parseMarkdown(data []byte) ([]string, error) {
	doc := markdownParser.Parser().Parse(text.NewReader(data))

	var paras []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock:
			paras = append(paras, blockText(n, data))
			return ast.WalkSkipChildren, nil
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return paras, nil
}

// blockText joins the source lines of a block node with spaces.
func blockText(n ast.Node, source []byte) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if line := strings.TrimSpace(string(seg.Value(source))); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
