package ui

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// renderMarkdown turns question and answer bodies into HTML. Raw HTML in the
// source is dropped and links are restricted to safe schemes.
func renderMarkdown(source string) template.HTML {
	// parsers keep state between calls
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.Safelink | html.HrefTargetBlank | html.NoreferrerLinks,
	})
	return template.HTML(markdown.ToHTML([]byte(source), p, renderer))
}
