package service

import (
	"fmt"
	"strings"

	"github.com/kitbuilder587/webctx/internal/domain"
)

// MaxExcerptLength - лимит отрывка страницы в промпте, в символах.
const MaxExcerptLength = 500

const contextInstruction = "Use the web context above where it is relevant to the request. Prefer it over prior knowledge when they disagree and mention the URL you relied on."

// BuildContextPrompt дописывает к запросу блоки с найденными страницами.
// Без контента возвращает запрос без изменений.
func BuildContextPrompt(prompt string, items []domain.ScrapedContent) string {
	if len(items) == 0 {
		return prompt
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\n=== WEB CONTEXT ===\n")
	for i, c := range items {
		title := c.Title
		if title == "" {
			title = c.URL
		}
		fmt.Fprintf(&sb, "\n[W%d] %s\n", i+1, title)
		fmt.Fprintf(&sb, "URL: %s\n", c.URL)
		fmt.Fprintf(&sb, "%s\n", Excerpt(c.Content, MaxExcerptLength))
	}
	sb.WriteString("\n=== INSTRUCTIONS ===\n")
	sb.WriteString(contextInstruction)
	return sb.String()
}

// Excerpt обрезает текст до max символов вместе с многоточием.
func Excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return strings.TrimSpace(string(r[:max-3])) + "..."
}
