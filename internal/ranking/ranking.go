package ranking

import (
	"net/url"
	"sort"
	"strings"

	"github.com/kitbuilder587/webctx/internal/domain"
)

const (
	weightOverlap  = 0.4
	weightDomain   = 0.3
	weightSemantic = 0.2
	weightCoverage = 0.1
)

// QueryScore - насколько поисковый запрос соответствует промпту, [0,1].
func QueryScore(query, prompt string) float64 {
	q := Terms(query)
	p := Terms(prompt)
	if len(q) == 0 || len(p) == 0 {
		return 0
	}

	pSet := toSet(p...)
	shared := 0
	for _, t := range q {
		if pSet[t] {
			shared++
		}
	}
	union := len(q) + len(p) - shared

	overlap := float64(shared) / float64(union)
	coverage := float64(shared) / float64(len(p))
	semantic := 2 * float64(lcs(q, p)) / float64(len(q)+len(p))

	score := weightOverlap*overlap +
		weightDomain*domainBonus(q, pSet) +
		weightSemantic*semantic +
		weightCoverage*coverage
	return clamp(score)
}

// domainBonus: общий язык/фреймворк 0.5, каждое общее техническое слово 0.25, не больше 1.
func domainBonus(q []string, pSet map[string]bool) float64 {
	bonus := 0.0
	stackMatched := false
	for _, t := range q {
		if !pSet[t] {
			continue
		}
		switch {
		case techStacks[t] && !stackMatched:
			bonus += 0.5
			stackMatched = true
		case techNouns[t]:
			bonus += 0.25
		}
	}
	if bonus > 1 {
		bonus = 1
	}
	return bonus
}

// lcs - длина наибольшей общей подпоследовательности, учитывает порядок слов.
func lcs(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

var authoritativeDomains = []string{
	"github.com", "gitlab.com", "stackoverflow.com", "stackexchange.com", "developer.mozilla.org",
	"wikipedia.org", "python.org", "go.dev", "golang.org", "rust-lang.org", "nodejs.org",
	"learn.microsoft.com", "docs.microsoft.com", "cloud.google.com", "aws.amazon.com",
	"kubernetes.io", "docker.com", "pypi.org", "npmjs.com", "pkg.go.dev", "w3.org", "ietf.org",
}

// ContentScore - качество и авторитетность страницы, [0,1].
func ContentScore(c domain.ScrapedContent) float64 {
	wc := float64(c.WordCount)
	if wc > 1000 {
		wc = 1000
	}
	score := 0.3 * wc / 1000
	if c.HasDescription() {
		score += 0.2
	}
	if c.HasKeywords() {
		score += 0.1
	}

	host, path := "", ""
	if u, err := url.Parse(c.URL); err == nil {
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		path = strings.ToLower(u.Path)
	}
	if hostMatches(host, authoritativeDomains) {
		score += 0.2
	}
	if isDocsSite(host, path) {
		score += 0.15
	}
	if isBlog(host, path) {
		score += 0.1
	}

	if c.WordCount < 100 {
		score *= 0.5
	}
	return clamp(score)
}

func hostMatches(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isDocsSite(host, path string) bool {
	return strings.HasPrefix(host, "docs.") ||
		strings.HasPrefix(host, "developer.") ||
		strings.Contains(host, "readthedocs") ||
		strings.HasPrefix(path, "/docs") ||
		strings.Contains(path, "/documentation") ||
		strings.Contains(path, "/reference/")
}

func isBlog(host, path string) bool {
	return strings.HasPrefix(host, "blog.") ||
		host == "medium.com" || strings.HasSuffix(host, ".medium.com") ||
		host == "dev.to" || strings.HasSuffix(host, ".hashnode.dev") ||
		strings.Contains(path, "/blog") ||
		strings.Contains(path, "/article") ||
		strings.Contains(path, "/posts/")
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// RankQueries сортирует запросы по QueryScore (стабильно) и переписывает Priority.
func RankQueries(prompt string, queries []domain.SearchQuery) []domain.SearchQuery {
	type scored struct {
		q     domain.SearchQuery
		score float64
	}
	items := make([]scored, len(queries))
	for i, q := range queries {
		items[i] = scored{q, QueryScore(q.Text, prompt)}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	out := make([]domain.SearchQuery, len(items))
	for i, it := range items {
		out[i] = it.q
	}
	domain.Reprioritize(out)
	return out
}

// RankContent проставляет RelevanceScore и сортирует по убыванию, исходный срез не трогает.
func RankContent(items []domain.ScrapedContent) []domain.ScrapedContent {
	out := make([]domain.ScrapedContent, len(items))
	copy(out, items)
	for i := range out {
		out[i].RelevanceScore = ContentScore(out[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	return out
}
