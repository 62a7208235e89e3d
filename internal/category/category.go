package category

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	Coding        = "coding"
	Documentation = "documentation"
	DevOps        = "devops"
	Data          = "data"
	Writing       = "writing"
	General       = "general"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyRegistry   = errors.New("category registry is empty")
)

type Category struct {
	Name         string   `yaml:"-"`
	SystemPrompt string   `yaml:"system_prompt"`
	Priority     int      `yaml:"priority"`
	Keywords     []string `yaml:"keywords"`
}

// Registry только на чтение после загрузки.
type Registry struct {
	byName map[string]Category
}

type registryFile struct {
	Categories map[string]Category `yaml:"categories"`
}

func NewRegistry(categories []Category) *Registry {
	r := &Registry{byName: make(map[string]Category, len(categories))}
	for _, c := range categories {
		c.Name = strings.ToLower(c.Name)
		r.byName[c.Name] = c
	}
	return r
}

// LoadFile читает yaml вида categories: {name: {priority, keywords, system_prompt}}.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, ErrEmptyRegistry
	}

	cats := make([]Category, 0, len(f.Categories))
	for name, c := range f.Categories {
		c.Name = name
		cats = append(cats, c)
	}
	return NewRegistry(cats), nil
}

func (r *Registry) Get(name string) (Category, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	return c, nil
}

// All - по приоритету, затем по имени.
func (r *Registry) All() []Category {
	out := make([]Category, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Registry) Len() int { return len(r.byName) }

// SystemPrompts - промпты категорий в переданном порядке, неизвестные пропускаются.
func (r *Registry) SystemPrompts(names []string) []string {
	var out []string
	for _, n := range names {
		if c, err := r.Get(n); err == nil && c.SystemPrompt != "" {
			out = append(out, c.SystemPrompt)
		}
	}
	return out
}
