package domain

type ContentMetadata struct {
	Description string
	Keywords    []string
}

// ScrapedContent - текст страницы, прошедший порог по количеству слов.
type ScrapedContent struct {
	URL            string
	Title          string
	Content        string
	Metadata       ContentMetadata
	WordCount      int
	RelevanceScore float64
}

func (c ScrapedContent) HasDescription() bool {
	return c.Metadata.Description != ""
}

func (c ScrapedContent) HasKeywords() bool {
	return len(c.Metadata.Keywords) > 0
}
