package extractor

import (
	"net/url"
	"strings"
)

var selfTestPage = `<html><head><title>Self test</title>
<meta name="description" content="extractor self test"></head>
<body><nav>Home | Docs | Blog</nav>
<article><h1>Self test</h1><p>` + strings.Repeat("The extractor reads this paragraph to verify region selection. ", 12) + `</p></article>
<footer>Copyright</footer></body></html>`

// SelfTest прогоняет разбор на встроенной странице, без сети и браузера.
func (e *Extractor) SelfTest() bool {
	u, _ := url.Parse("https://selftest.local/page")
	c, err := ExtractFromHTML(selfTestPage, u, Options{MinWordCount: 50})
	if err != nil {
		e.logger.Warn("extractor self test failed")
		return false
	}
	return c.Title == "Self test" &&
		c.Metadata.Description != "" &&
		!strings.Contains(c.Content, "Copyright") &&
		!strings.Contains(c.Content, "Home | Docs")
}
