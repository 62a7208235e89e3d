package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/kitbuilder587/webctx/internal/domain"
)

var (
	ErrLowQuality = fmt.Errorf("%w: below minimum word count", domain.ErrContentQuality)
	ErrNoContent  = fmt.Errorf("%w: no extractable text", domain.ErrContentQuality)
	ErrInvalidURL = errors.New("invalid url")
)

// MinRegionChars - короче этого регион считается пустым и берется следующий.
const MinRegionChars = 200

// сначала основные области контента, потом общие контейнеры
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".markdown-body",
	".post-content",
	".article-content",
	".entry-content",
	".documentation",
	".docs-content",
	"#content",
	".content",
	"#main",
	".main",
	".container",
}

var boilerplateSelectors = strings.Join([]string{
	"script", "style", "noscript", "iframe", "svg", "template",
	"nav", "header", "footer", "aside", "form",
	"[role='navigation']", "[role='banner']", "[role='contentinfo']", "[aria-hidden='true']",
	".nav", ".navbar", ".menu", ".sidebar", ".breadcrumb", ".breadcrumbs",
	".ad", ".ads", ".advert", ".advertisement", "[id^='ad-']", "[class*='sponsor']",
	".popup", ".modal", "[class*='cookie']", "[id*='cookie']", ".newsletter",
	".social", ".share", ".social-share", ".comments", "#comments",
}, ", ")

// ExtractFromHTML - чистая функция разбора страницы. pageURL нужен readability для относительных ссылок.
func ExtractFromHTML(rawHTML string, pageURL *url.URL, opts Options) (*domain.ScrapedContent, error) {
	opts = opts.withDefaults()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	meta := extractMetadata(doc)

	doc.Find(boilerplateSelectors).Remove()

	text := ""
	for _, sel := range contentSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := collapse(nodeText(s)); utf8.RuneCountInString(t) >= MinRegionChars {
				text = t
				return false
			}
			return true
		})
		if text != "" {
			break
		}
	}

	if text == "" {
		if t, articleTitle := readabilityText(rawHTML, pageURL); utf8.RuneCountInString(t) >= MinRegionChars {
			text = t
			if title == "" {
				title = articleTitle
			}
		}
	}

	if text == "" {
		text = collapse(nodeText(doc.Find("body")))
	}
	if text == "" {
		return nil, ErrNoContent
	}

	if title == "" {
		title = collapse(doc.Find("h1").First().Text())
	}

	text = truncate(text, opts.MaxContentLength)
	words := len(strings.Fields(text))

	pageStr := ""
	if pageURL != nil {
		pageStr = pageURL.String()
	}
	content := &domain.ScrapedContent{
		URL:       pageStr,
		Title:     title,
		Content:   text,
		Metadata:  meta,
		WordCount: words,
	}
	if words < opts.MinWordCount {
		return content, fmt.Errorf("%w: %d < %d", ErrLowQuality, words, opts.MinWordCount)
	}
	return content, nil
}

func extractMetadata(doc *goquery.Document) domain.ContentMetadata {
	desc := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if desc == "" {
		desc = strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}

	var keywords []string
	if kw := doc.Find(`meta[name="keywords"]`).AttrOr("content", ""); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
	}
	return domain.ContentMetadata{Description: desc, Keywords: keywords}
}

func readabilityText(rawHTML string, pageURL *url.URL) (string, string) {
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "http", Host: "localhost"}
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), pageURL)
	if err != nil || article.Content == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", ""
	}
	return collapse(nodeText(doc.Selection)), strings.TrimSpace(article.Title)
}

// nodeText склеивает текстовые узлы через пробел, чтобы <p>a</p><p>b</p> не давало "ab".
func nodeText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode, html.DocumentNode:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate режет по рунам и не оставляет обрывок слова в конце.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)[:max]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
