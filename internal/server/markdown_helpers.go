package server

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = buildContentSanitizer()

func buildContentSanitizer() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	return policy
}

// renderMarkdown converts article Markdown to sanitized HTML.
func renderMarkdown(text string) string {
	if text == "" {
		return ""
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags,
	})

	htmlBytes := markdown.ToHTML([]byte(text), mdParser, renderer)
	return string(sanitizer.SanitizeBytes(htmlBytes))
}
