package indexer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"research-vectordb/internal/metadata"
)

// Metadata keys and values that mark a document as markdown.
var (
	markdownKeys  = []string{"content_type", "mimeType"}
	markdownTypes = map[string]bool{"text/markdown": true, "text/x-markdown": true}
)

// MarkdownExtractor renders markdown to plain text for embedding.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a goldmark-backed extractor with GFM tables and strikethrough.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		),
	}
}

// IsMarkdown reports whether metadata declares the document as markdown.
func IsMarkdown(md metadata.Metadata) bool {
	for _, key := range markdownKeys {
		if v, ok := md[key].Str(); ok && markdownTypes[strings.ToLower(strings.TrimSpace(v))] {
			return true
		}
	}
	return false
}

// PlainText strips markdown syntax, keeping one line per block.
// Headings, paragraphs, list items, table rows and code blocks each become a line.
func (e *MarkdownExtractor) PlainText(content string) string {
	source := []byte(content)
	doc := e.parser.Parser().Parse(text.NewReader(source))

	var lines []string
	var line strings.Builder
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch v := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock, *extast.TableRow, *extast.TableHeader:
			flush()
		case *extast.TableCell:
			if !entering {
				line.WriteByte(' ')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				flush()
				segments := v.Lines()
				for i := 0; i < segments.Len(); i++ {
					seg := segments.At(i)
					line.Write(seg.Value(source))
				}
				flush()
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				line.Write(v.Segment.Value(source))
				if v.SoftLineBreak() || v.HardLineBreak() {
					line.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				line.Write(v.Value)
			}
		case *ast.AutoLink:
			if entering {
				line.Write(v.URL(source))
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(lines, "\n")
}
