package enhancer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/category"
	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/llm"
	"github.com/kitbuilder587/webctx/internal/metrics"
)

const baseSystemPrompt = `You are a prompt engineer.

Your task is to rewrite the user's request into a clearer, more complete prompt for a language model.

Rules:
1. Keep the user's intent and every concrete requirement
2. Use the supplied web context when it is relevant, cite its URLs
3. Add structure: goal, constraints, expected output
4. Do not answer the request, only rewrite it
5. Return only the rewritten prompt`

type Options struct {
	MaxIterations int
	CostLimit     float64 // <0 - без лимита
	Model         string
}

type Request struct {
	Prompt     string // промпт с веб-контекстом
	Original   string // запрос пользователя как есть
	Categories []string
}

type Result struct {
	Prompt     string
	Iterations int // сколько раз вызывали модель
	Accepted   int // сколько итераций прошло политику
	Cost       float64
	TokensUsed int
}

type Deps struct {
	LLM      llm.Generator
	Registry *category.Registry
	Policy   AcceptancePolicy
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Options  Options
}

type Enhancer struct {
	llm      llm.Generator
	registry *category.Registry
	policy   AcceptancePolicy
	logger   *zap.Logger
	metrics  *metrics.Metrics
	defaults Options
}

func New(deps Deps) *Enhancer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = category.Defaults()
	}
	if deps.Options.MaxIterations <= 0 {
		deps.Options.MaxIterations = 2
	}
	if deps.Options.CostLimit == 0 {
		deps.Options.CostLimit = 0.05
	}
	return &Enhancer{
		llm:      deps.LLM,
		registry: deps.Registry,
		policy:   deps.Policy,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		defaults: deps.Options,
	}
}

func (e *Enhancer) merge(opts Options) Options {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = e.defaults.MaxIterations
	}
	if opts.CostLimit == 0 {
		opts.CostLimit = e.defaults.CostLimit
	}
	if opts.Model == "" {
		opts.Model = e.defaults.Model
	}
	return opts
}

// Enhance прогоняет промпт через модель несколько раз. Первая итерация
// сравнивается с исходным запросом, следующие с последней принятой.
// Ошибка возвращается только если упал самый первый вызов.
func (e *Enhancer) Enhance(ctx context.Context, req Request, opts Options) (*Result, error) {
	opts = e.merge(opts)
	if e.llm == nil {
		return nil, fmt.Errorf("%w: no generator configured", domain.ErrEnhancementProvider)
	}

	original := req.Original
	if original == "" {
		original = req.Prompt
	}

	res := &Result{Prompt: req.Prompt}
	system := e.systemPrompt(req.Categories)
	baseline := original
	current := req.Prompt

	for i := 0; i < opts.MaxIterations; i++ {
		if opts.CostLimit > 0 && res.Cost >= opts.CostLimit {
			e.logger.Info("enhancer cost limit reached",
				zap.Float64("cost", res.Cost),
				zap.Float64("limit", opts.CostLimit),
			)
			break
		}

		gen, err := e.llm.Generate(ctx, llm.GenerateRequest{
			System:      system,
			Prompt:      e.userPrompt(current, original, i),
			Model:       opts.Model,
			MaxTokens:   2000,
			Temperature: 0.3,
		})
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("%w: %w", domain.ErrEnhancementProvider, err)
			}
			e.logger.Warn("enhancer iteration failed, keeping last prompt",
				zap.Error(err),
				zap.Int("iteration", i+1),
			)
			break
		}

		res.Iterations++
		res.Cost += gen.Cost
		res.TokensUsed += gen.TokensUsed
		if e.metrics != nil {
			e.metrics.AddEnhancerCost(gen.Cost)
		}

		candidate := strings.TrimSpace(gen.Content)
		if !e.policy.Accept(baseline, candidate) {
			e.logger.Debug("enhancer iteration rejected",
				zap.Int("iteration", i+1),
				zap.Int("length", len(candidate)),
			)
			break
		}

		res.Accepted++
		res.Prompt = candidate
		baseline = candidate
		current = candidate
	}

	e.logger.Info("enhancement completed",
		zap.Int("iterations", res.Iterations),
		zap.Int("accepted", res.Accepted),
		zap.Float64("cost", res.Cost),
	)
	return res, nil
}

func (e *Enhancer) systemPrompt(categories []string) string {
	prompts := e.registry.SystemPrompts(categories)
	if len(prompts) == 0 {
		return baseSystemPrompt
	}
	return baseSystemPrompt + "\n\nDomain guidance:\n" + strings.Join(prompts, "\n")
}

func (e *Enhancer) userPrompt(current, original string, iteration int) string {
	var sb strings.Builder
	if iteration == 0 {
		sb.WriteString("=== REQUEST ===\n")
		sb.WriteString(current)
		sb.WriteString("\n\n=== INSTRUCTIONS ===\n")
		sb.WriteString("Rewrite the request above into an improved prompt.")
		return sb.String()
	}

	sb.WriteString("=== ORIGINAL REQUEST ===\n")
	sb.WriteString(original)
	sb.WriteString("\n\n=== CURRENT PROMPT ===\n")
	sb.WriteString(current)
	sb.WriteString("\n\n=== INSTRUCTIONS ===\n")
	sb.WriteString("Refine the current prompt further. Keep everything the original request asks for.")
	return sb.String()
}
