package domain

import "strings"

// SearchQuery - один поисковый запрос, живет в рамках одного прогона пайплайна.
type SearchQuery struct {
	Text     string
	Category string
	Priority int // 1 = самый релевантный
	Engines  []string
}

func (q SearchQuery) HasEngine(name string) bool {
	if len(q.Engines) == 0 {
		return false
	}
	for _, e := range q.Engines {
		if strings.EqualFold(e, name) {
			return true
		}
	}
	return false
}

// Reprioritize переписывает Priority по текущему порядку.
func Reprioritize(queries []SearchQuery) {
	for i := range queries {
		queries[i].Priority = i + 1
	}
}
