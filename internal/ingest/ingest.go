package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

// Document is the extracted text of one source file.
type Document struct {
	FileName string
	Text     string
}

var binaryExts = map[string]struct{}{
	".pdf": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".webp": {}, ".bmp": {}, ".tif": {}, ".tiff": {}, ".heic": {},
}

func LoadFile(path string) (*Document, error) {
	if _, ok := binaryExts[strings.ToLower(filepath.Ext(path))]; ok {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), appErr.ErrUnsupportedFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(filepath.Base(path), data)
}

// Parse extracts plain text from file content. Markdown is flattened to its
// text; anything else must be UTF-8 text. PDF and images are extracted
// elsewhere and rejected here.
func Parse(fileName string, data []byte) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := binaryExts[ext]; ok {
		return nil, fmt.Errorf("%s: %w", fileName, appErr.ErrUnsupportedFile)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not utf-8 text: %w", fileName, appErr.ErrUnsupportedFile)
	}
	var content string
	switch ext {
	case ".md", ".markdown":
		content = markdownText(data)
	default:
		content = string(data)
	}
	if strings.TrimSpace(content) == "" {
		return nil, appErr.ErrEmptyContent
	}
	return &Document{FileName: fileName, Text: content}, nil
}

func markdownText(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			if s := strings.TrimSpace(inlineText(node, source)); s != "" {
				blocks = append(blocks, s)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var b strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(source))
			}
			if s := strings.TrimSpace(b.String()); s != "" {
				blocks = append(blocks, s)
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(blocks, "\n\n")
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeSpan:
			b.WriteString(inlineText(node, source))
		case *ast.RawHTML:
		case *ast.AutoLink:
			b.Write(node.URL(source))
		default:
			b.WriteString(inlineText(node, source))
		}
	}
	return b.String()
}
