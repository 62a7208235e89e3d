package category

import (
	"sort"
	"strings"
)

const maxCategories = 3

// Categorizer - категории по ключевым словам, без LLM.
type Categorizer struct {
	registry      *Registry
	minConfidence float64
}

func NewCategorizer(registry *Registry) *Categorizer {
	if registry == nil {
		registry = Defaults()
	}
	return &Categorizer{
		registry:      registry,
		minConfidence: 0.3,
	}
}

func (c *Categorizer) Registry() *Registry { return c.registry }

// Score - уверенность что промпт относится к категории (0.0-1.0)
func Score(cat Category, prompt string) float64 {
	if len(cat.Keywords) == 0 {
		return 0
	}

	p := " " + strings.ToLower(prompt) + " "
	matches := 0
	for _, kw := range cat.Keywords {
		if strings.Contains(p, strings.ToLower(kw)) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}

	// минимум 0.5 если хоть что-то совпало
	conf := float64(matches) / float64(len(cat.Keywords))
	if conf < 0.5 {
		conf = 0.5
	}
	return conf
}

// Categorize возвращает до 3 категорий, самая подходящая первая.
// Пустой результат - ни одна категория не подошла.
func (c *Categorizer) Categorize(prompt string) []string {
	type scored struct {
		cat   Category
		score float64
	}

	var matched []scored
	for _, cat := range c.registry.All() {
		if s := Score(cat, prompt); s >= c.minConfidence {
			matched = append(matched, scored{cat, s})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].cat.Priority < matched[j].cat.Priority
	})

	if len(matched) > maxCategories {
		matched = matched[:maxCategories]
	}

	names := make([]string, len(matched))
	for i, m := range matched {
		names[i] = m.cat.Name
	}
	return names
}

// SelfTest - проверка для health check.
func (c *Categorizer) SelfTest() bool {
	if c.registry.Len() == 0 {
		return false
	}
	if _, err := c.registry.Get(Coding); err != nil {
		// кастомный реестр без coding - достаточно что он не пустой
		return true
	}
	got := c.Categorize("implement a python function for the api server")
	return len(got) > 0 && got[0] == Coding
}
