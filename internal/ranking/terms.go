package ranking

import (
	"strings"
	"unicode"
)

var stopWords = toSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "of", "to", "in", "on", "at", "by",
	"for", "with", "about", "from", "into", "over", "under", "as", "is", "are", "was", "were", "be",
	"been", "being", "it", "its", "this", "that", "these", "those", "i", "me", "my", "we", "our",
	"you", "your", "he", "she", "they", "them", "their", "what", "which", "who", "whom", "how",
	"why", "when", "where", "do", "does", "did", "can", "could", "should", "would", "will", "shall",
	"may", "might", "must", "have", "has", "had", "not", "no", "so", "too", "very", "just", "also",
	"some", "any", "all", "more", "most", "other", "such", "than", "up", "down", "out", "using",
	"use", "want", "need", "please", "help", "make", "build", "create", "write", "get", "like",
)

// общие поисковые модификаторы, не несут смысла запроса
var searchModifiers = toSet(
	"tutorial", "tutorials", "guide", "guides", "documentation", "docs", "doc", "best", "practices",
	"practice", "example", "examples", "how-to", "howto", "introduction", "intro", "overview",
	"latest", "reference", "learn", "tips", "complete", "step", "simple", "easy", "beginner",
	"beginners", "advanced",
)

// языки и фреймворки: совпадение дает доменный бонус
var techStacks = toSet(
	"go", "golang", "python", "javascript", "typescript", "java", "kotlin", "rust", "c++", "c#",
	"ruby", "php", "swift", "scala", "elixir", "haskell", "sql", "bash",
	"fastapi", "django", "flask", "react", "vue", "angular", "svelte", "next.js", "node.js", "nodejs",
	"express", "spring", "rails", "laravel", "gin", "echo", "fiber", "pytorch", "tensorflow",
	"pandas", "numpy", "kubernetes", "docker", "terraform", "ansible", "postgres", "postgresql",
	"mysql", "mongodb", "redis", "kafka", "graphql", "grpc",
)

// технические существительные
var techNouns = toSet(
	"api", "apis", "server", "servers", "client", "websocket", "websockets", "database", "schema",
	"query", "queries", "endpoint", "endpoints", "authentication", "auth", "oauth", "jwt", "cache",
	"caching", "deployment", "container", "containers", "cluster", "microservice", "microservices",
	"middleware", "router", "routing", "http", "rest", "protocol", "async", "concurrency", "thread",
	"threads", "testing", "tests", "pipeline", "migration", "index", "performance", "security",
	"logging", "metrics", "monitoring", "queue", "stream", "streaming", "model", "models",
	"production", "framework", "library", "sdk", "cli",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.' && r != '-'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".-")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Terms - значимые термины в порядке появления, без повторов.
func Terms(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenize(text) {
		if seen[tok] || stopWords[tok] || searchModifiers[tok] {
			continue
		}
		if len([]rune(tok)) < 2 && !techStacks[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// IsStopWord - стоп-слово или поисковый модификатор.
func IsStopWord(word string) bool {
	w := strings.ToLower(word)
	return stopWords[w] || searchModifiers[w]
}

// IsTechStack - язык или фреймворк из известного списка.
func IsTechStack(word string) bool {
	return techStacks[strings.ToLower(word)]
}
