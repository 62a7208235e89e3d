package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/category"
	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/llm"
	"github.com/kitbuilder587/webctx/internal/ranking"
)

const MaxQueries = 3

// протоколы и спецификации, для documentation-категории идут первыми
var protocolKeywords = []string{
	"http", "https", "rest", "grpc", "graphql", "websocket", "websockets", "oauth", "oauth2", "openapi",
	"swagger", "jwt", "tcp", "udp", "mqtt", "amqp", "smtp", "dns", "tls", "rfc", "json-rpc", "mcp",
}

type Planner struct {
	llm    llm.Client
	logger *zap.Logger
	now    func() time.Time
}

func New(client llm.Client, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{llm: client, logger: logger, now: time.Now}
}

// Plan возвращает до трех запросов, отсортированных по релевантности к промпту.
// Никогда не падает: при любой внутренней ошибке отдает пустой список.
func (p *Planner) Plan(ctx context.Context, prompt string, categories []string) (queries []domain.SearchQuery) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("query planning panicked", zap.Any("panic", r))
			queries = []domain.SearchQuery{}
		}
	}()

	if strings.TrimSpace(prompt) == "" {
		return []domain.SearchQuery{}
	}
	if len(categories) == 0 {
		return p.finish(prompt, TemplateQueries(prompt, "", p.now().Year()))
	}

	top := strings.ToLower(categories[0])
	candidates := p.llmCandidates(ctx, prompt, top)
	if len(candidates) == 0 {
		p.logger.Debug("llm gave no queries, using templates", zap.String("category", top))
		return p.finish(prompt, TemplateQueries(prompt, top, p.now().Year()))
	}

	qs := make([]domain.SearchQuery, len(candidates))
	for i, c := range candidates {
		qs[i] = domain.SearchQuery{Text: c, Category: top}
	}
	return p.finish(prompt, qs)
}

// KeywordQueries - запросы только по промпту, когда категоризация ничего не дала.
func (p *Planner) KeywordQueries(prompt string) []domain.SearchQuery {
	return p.finish(prompt, KeywordQueries(prompt, p.now().Year()))
}

func (p *Planner) finish(prompt string, qs []domain.SearchQuery) []domain.SearchQuery {
	ranked := ranking.RankQueries(prompt, qs)
	if len(ranked) > MaxQueries {
		ranked = ranked[:MaxQueries]
	}
	return ranked
}

func (p *Planner) llmCandidates(ctx context.Context, prompt, cat string) []string {
	if p.llm == nil {
		return nil
	}

	system := fmt.Sprintf(`You are a search query optimizer for %s tasks.

Task: Generate 1-%d web search queries that find current, authoritative material for the request.

Rules:
1. Queries in ENGLISH
2. Use keywords, not full sentences
3. Prefer terms like "documentation", "best practices", "tutorial"
4. Name the concrete technology from the request
5. One query per line, no explanations`, cat, MaxQueries)

	resp, err := p.llm.CompleteWithSystem(ctx, system, "Request: "+prompt)
	if err != nil {
		p.logger.Warn("query planning llm call failed", zap.Error(err))
		return nil
	}
	return ParseQueryCandidates(resp)
}

// TemplateQueries - запасные запросы по шаблону категории.
func TemplateQueries(prompt, cat string, year int) []domain.SearchQuery {
	terms := ranking.Terms(prompt)
	if len(terms) == 0 {
		return []domain.SearchQuery{}
	}
	top := topTerms(terms, 3)
	joined := strings.Join(top, " ")

	var texts []string
	switch cat {
	case category.Coding:
		tech := primaryTech(terms)
		texts = append(texts, tech+" best practices documentation")
		if rest := without(top, tech); len(rest) > 0 {
			texts = append(texts, tech+" "+strings.Join(rest, " ")+" example")
		}
	case category.Documentation:
		if proto := firstProtocol(terms); proto != "" {
			texts = append(texts,
				proto+" specification documentation",
				proto+" protocol reference "+fmt.Sprint(year),
			)
		} else {
			texts = append(texts, joined+" documentation guide")
		}
	case category.DevOps:
		texts = append(texts, joined+" deployment best practices")
	case category.Data:
		texts = append(texts, joined+" data tutorial")
	case category.Writing:
		texts = append(texts, joined+" writing guide examples")
	default:
		texts = append(texts, joined+" best practices")
	}

	out := make([]domain.SearchQuery, 0, len(texts))
	for _, t := range texts {
		out = append(out, domain.SearchQuery{Text: t, Category: cat})
	}
	return out
}

// KeywordQueries - три самых длинных значимых слова плюс варианты с годом.
func KeywordQueries(prompt string, year int) []domain.SearchQuery {
	terms := ranking.Terms(prompt)
	if len(terms) == 0 {
		return []domain.SearchQuery{}
	}
	longest := make([]string, len(terms))
	copy(longest, terms)
	sort.SliceStable(longest, func(i, j int) bool { return len(longest[i]) > len(longest[j]) })
	if len(longest) > 3 {
		longest = longest[:3]
	}
	base := strings.Join(longest, " ")

	return []domain.SearchQuery{
		{Text: base, Category: category.General},
		{Text: fmt.Sprintf("%s %d latest", base, year), Category: category.General},
		{Text: fmt.Sprintf("%s best practices documentation %d", base, year), Category: category.General},
	}
}

func topTerms(terms []string, n int) []string {
	if len(terms) <= n {
		return terms
	}
	return terms[:n]
}

// primaryTech - первый язык/фреймворк из промпта, иначе самое длинное слово.
func primaryTech(terms []string) string {
	for _, t := range terms {
		if ranking.IsTechStack(t) {
			return t
		}
	}
	best := terms[0]
	for _, t := range terms[1:] {
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}

func firstProtocol(terms []string) string {
	for _, t := range terms {
		for _, p := range protocolKeywords {
			if t == p {
				return t
			}
		}
	}
	return ""
}

func without(terms []string, drop string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != drop {
			out = append(out, t)
		}
	}
	return out
}
